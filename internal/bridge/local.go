package bridge

import (
	"context"
	"encoding/json"
	"sync"
)

// Dispatcher executes driver commands in-process.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd string, args json.RawMessage) (any, error)
	Subscribe(fn func(event string, payload any)) (cancel func())
}

// Local is a transport for a driver running in the same process. Values
// cross it as JSON so callers never share memory with the driver.
type Local struct {
	d Dispatcher

	mu     sync.Mutex
	closed bool
}

// NewLocal wraps a dispatcher.
func NewLocal(d Dispatcher) *Local {
	return &Local{d: d}
}

func (l *Local) Invoke(ctx context.Context, cmd string, args, out any) error {
	if !l.Available() {
		return ErrUnavailable
	}
	raw, err := encodeArgs(args)
	if err != nil {
		return err
	}
	result, err := l.d.Dispatch(ctx, cmd, raw)
	return decodeResponse(NewResponse(Envelope{Cmd: cmd}, result, err), out)
}

func (l *Local) Listen(_ context.Context, event string, h Handler) (Unlisten, error) {
	if !l.Available() {
		return func() {}, nil
	}
	cancel := l.d.Subscribe(func(name string, payload any) {
		if name != event {
			return
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		h(raw)
	})
	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (l *Local) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
