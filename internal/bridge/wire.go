package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Envelope types.
const (
	TypeInvoke   = "invoke"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Envelope is the message exchanged with a remote driver host over
// WebSocket or MQTT.
type Envelope struct {
	Type    string           `json:"type"`
	ID      string           `json:"id,omitempty"`
	Cmd     string           `json:"cmd,omitempty"`
	Args    json.RawMessage  `json:"args,omitempty"`
	ReplyTo string           `json:"reply_to,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *models.AppError `json:"error,omitempty"`
	Event   string           `json:"event,omitempty"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// NewResponse builds the reply to an invoke envelope.
func NewResponse(req Envelope, result any, err error) Envelope {
	resp := Envelope{Type: TypeResponse, ID: req.ID, Cmd: req.Cmd}
	if err != nil {
		resp.Error = models.AsAppError(err)
		return resp
	}
	if result != nil {
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			resp.Error = models.ErrInternal(mErr.Error())
			return resp
		}
		resp.Result = raw
	}
	return resp
}

// NewEvent builds a push event envelope.
func NewEvent(name string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeEvent, Event: name, Payload: raw}, nil
}

// encodeArgs marshals invoke arguments. nil becomes no arguments.
func encodeArgs(args any) (json.RawMessage, error) {
	if args == nil {
		return nil, nil
	}
	if raw, ok := args.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(args)
}

// decodeResponse turns a response envelope into the caller's result.
func decodeResponse(resp Envelope, out any) error {
	if resp.Error != nil {
		if resp.Error.Code == models.CodeUnavailable {
			return fmt.Errorf("%w: %s", ErrUnavailable, resp.Error.Message)
		}
		return resp.Error
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("bridge: decode %s result: %w", resp.Cmd, err)
	}
	return nil
}

func unavailableError(msg string) *models.AppError {
	return &models.AppError{Code: models.CodeUnavailable, Message: msg, Status: http.StatusServiceUnavailable}
}
