// Package bridge is the typed command façade over the channel to the
// Deck-8 driver host. The channel itself is a Transport chosen once at
// startup: Null when there is no host, Local for an in-process driver,
// WS or MQTT for a remote one.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnavailable means no driver host is reachable. Reads return it;
// writes swallow it.
var ErrUnavailable = errors.New("bridge: driver host unavailable")

// Handler receives the raw payload of one push event.
type Handler func(payload json.RawMessage)

// Unlisten removes an event handler. It is safe to call more than once.
type Unlisten func()

// Transport carries commands and push events to and from a driver host.
type Transport interface {
	// Invoke runs cmd with JSON-encodable args and decodes the result into
	// out (which may be nil). It returns ErrUnavailable when there is no host.
	Invoke(ctx context.Context, cmd string, args, out any) error

	// Listen registers h for the named push event.
	Listen(ctx context.Context, event string, h Handler) (Unlisten, error)

	// Available reports whether a host is currently reachable.
	Available() bool

	Close() error
}

// Null is the transport used when no driver host exists.
type Null struct{}

func (Null) Invoke(context.Context, string, any, any) error { return ErrUnavailable }

func (Null) Listen(context.Context, string, Handler) (Unlisten, error) {
	return func() {}, nil
}

func (Null) Available() bool { return false }

func (Null) Close() error { return nil }
