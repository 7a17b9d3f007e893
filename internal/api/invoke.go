package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

func (h *Handlers) getInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	result, err := h.d.Dispatch(r.Context(), bridge.CmdGetState, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) getCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.commands)
}

// invoke runs one driver command with the request body as its arguments
// and answers with the command's JSON result.
func (h *Handlers) invoke(w http.ResponseWriter, r *http.Request) {
	cmd := chi.URLParam(r, "cmd")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, models.ErrBadRequest("failed to read request body"))
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, models.ErrBadRequest("request body too large"))
		return
	}
	var args json.RawMessage
	if s := strings.TrimSpace(string(body)); s != "" {
		if !json.Valid(body) {
			writeError(w, models.ErrBadRequest("invalid JSON body"))
			return
		}
		args = body
	}

	result, err := h.d.Dispatch(r.Context(), cmd, args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
