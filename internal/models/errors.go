package models

import (
	"errors"
	"net/http"
)

// Sentinel errors. Every AppError matches one of these through errors.Is,
// also after it has been decoded from the wire.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotConnected = errors.New("device not connected")
	ErrNoSuchItem   = errors.New("no such item")
)

// Error codes carried on the wire.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeNotFound     = "NOT_FOUND"
	CodeNotConnected = "NOT_CONNECTED"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL"
)

// AppError is a structured error reported by the driver.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Is maps error codes onto the package sentinels.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Code == CodeBadRequest
	case ErrNotConnected:
		return e.Code == CodeNotConnected
	case ErrNoSuchItem:
		return e.Code == CodeNotFound
	}
	return false
}

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return &AppError{Code: CodeNotFound, Message: msg, Status: http.StatusNotFound}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: CodeBadRequest, Message: msg, Status: http.StatusBadRequest}
	}
	ErrNoDevice = &AppError{Code: CodeNotConnected, Message: "Not connected", Status: http.StatusConflict}
	ErrInternal = func(msg string) *AppError {
		return &AppError{Code: CodeInternal, Message: msg, Status: http.StatusInternalServerError}
	}
)

// AsAppError converts any error into an AppError suitable for the wire.
// A nil error yields nil.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ErrBadRequest(err.Error())
	case errors.Is(err, ErrNotConnected):
		return &AppError{Code: CodeNotConnected, Message: err.Error(), Status: http.StatusConflict}
	case errors.Is(err, ErrNoSuchItem):
		return ErrNotFound(err.Error())
	}
	return ErrInternal(err.Error())
}
