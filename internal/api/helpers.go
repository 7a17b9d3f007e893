// Package api is the driver host's HTTP surface: the WebSocket bridge
// endpoint, REST command invocation, an SSE push stream and /metrics.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/identity"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// maxBodyBytes bounds invoke payloads.
const maxBodyBytes = 1 << 20

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	d        bridge.Dispatcher
	commands []string
	info     identity.Info
	metrics  *Metrics
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as an AppError JSON body.
func writeError(w http.ResponseWriter, err error) {
	appErr := models.AsAppError(err)
	writeJSON(w, statusFor(appErr), appErr)
}

// statusFor picks the HTTP status of an AppError. Errors decoded from the
// wire carry only their code.
func statusFor(e *models.AppError) int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case models.CodeBadRequest:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeNotConnected:
		return http.StatusConflict
	case models.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
