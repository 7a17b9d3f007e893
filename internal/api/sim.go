package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Simulator is the physical side of a simulated board.
type Simulator interface {
	PressKey(ctx context.Context, led int) error
	PressToggle(ctx context.Context) error
	Shortcut(ctx context.Context, shortcut string) bool
	SetPlugged(plugged bool)
}

type simHandlers struct {
	sim Simulator
}

func (s simHandlers) routes(r chi.Router) {
	r.Post("/keys/{led}/press", s.press)
	r.Post("/toggle", s.toggle)
	r.Post("/shortcut", s.shortcut)
	r.Post("/plug", s.plug)
}

func (s simHandlers) press(w http.ResponseWriter, r *http.Request) {
	led, err := intParam(r, "led")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sim.PressKey(r.Context(), led); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s simHandlers) toggle(w http.ResponseWriter, r *http.Request) {
	if err := s.sim.PressToggle(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s simHandlers) shortcut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Shortcut string `json:"shortcut"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Shortcut == "" {
		writeError(w, models.ErrBadRequest("shortcut is required"))
		return
	}
	handled := s.sim.Shortcut(r.Context(), body.Shortcut)
	writeJSON(w, http.StatusOK, map[string]bool{"handled": handled})
}

func (s simHandlers) plug(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plugged *bool `json:"plugged"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Plugged == nil {
		writeError(w, models.ErrBadRequest("plugged is required"))
		return
	}
	s.sim.SetPlugged(*body.Plugged)
	w.WriteHeader(http.StatusNoContent)
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
