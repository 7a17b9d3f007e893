package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	wsHandshakeTimeout = 2 * time.Second
	wsProbeTimeout     = time.Second
	wsResyncTimeout    = 5 * time.Second
)

// WS is a transport to a driver host's /ws endpoint. It dials lazily and
// redials after a drop, no more often than the redial limiter allows.
// Handlers registered with Listen survive reconnects: while any exist,
// a dropped connection is redialed in the background and the host's
// current state is replayed to state-updated handlers once it is back.
type WS struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	redial *rate.Limiter
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	conn      *websocket.Conn
	closed    bool
	redialing bool
	pending   map[string]chan Envelope
	listeners map[string]map[uint64]Handler
	nextID    uint64

	writeMu sync.Mutex
}

// NewWS creates a WebSocket transport for a ws:// or wss:// URL.
func NewWS(url string) *WS {
	ctx, cancel := context.WithCancel(context.Background())
	return &WS{
		url:       url,
		header:    http.Header{},
		dialer:    &websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
		redial:    rate.NewLimiter(rate.Every(time.Second), 3),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]chan Envelope),
		listeners: make(map[string]map[uint64]Handler),
	}
}

// SetAPIKey sends key in the X-Api-Key header on every dial.
func (t *WS) SetAPIKey(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if key == "" {
		t.header.Del("X-Api-Key")
		return
	}
	t.header.Set("X-Api-Key", key)
}

// SetRedialLimit replaces the redial limiter. Call dials and background
// redials share it.
func (t *WS) SetRedialLimit(every time.Duration, burst int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.redial = rate.NewLimiter(rate.Every(every), burst)
}

func (t *WS) connect(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrUnavailable
	}
	if t.conn != nil {
		return t.conn, nil
	}
	if !t.redial.Allow() {
		return nil, ErrUnavailable
	}
	return t.dialLocked(ctx)
}

func (t *WS) dialLocked(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		slog.Debug("bridge: ws dial failed", "url", t.url, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	slog.Info("bridge: ws connected", "url", t.url)
	t.conn = conn
	go t.readLoop(conn)
	return conn, nil
}

func (t *WS) readLoop(conn *websocket.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("bridge: ws read failed", "err", err)
			}
			t.drop(conn)
			return
		}
		switch env.Type {
		case TypeResponse:
			t.mu.Lock()
			ch := t.pending[env.ID]
			delete(t.pending, env.ID)
			t.mu.Unlock()
			if ch != nil {
				ch <- env
			}
		case TypeEvent:
			for _, h := range t.handlers(env.Event) {
				h(env.Payload)
			}
		}
	}
}

// drop forgets conn and fails every call waiting on it.
func (t *WS) drop(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != conn {
		return
	}
	_ = conn.Close()
	t.conn = nil
	for id, ch := range t.pending {
		ch <- Envelope{Type: TypeResponse, ID: id, Error: unavailableError("connection closed")}
		delete(t.pending, id)
	}
	t.startRedialLocked()
}

func (t *WS) listeningLocked() bool {
	for _, hs := range t.listeners {
		if len(hs) > 0 {
			return true
		}
	}
	return false
}

func (t *WS) startRedialLocked() {
	if t.closed || t.redialing || !t.listeningLocked() {
		return
	}
	t.redialing = true
	go t.redialLoop()
}

// redialLoop dials until it succeeds, the transport closes or the last
// listener goes away.
func (t *WS) redialLoop() {
	for {
		t.mu.Lock()
		lim := t.redial
		t.mu.Unlock()
		if err := lim.Wait(t.ctx); err != nil {
			t.mu.Lock()
			t.redialing = false
			t.mu.Unlock()
			return
		}

		t.mu.Lock()
		if t.closed || !t.listeningLocked() {
			t.redialing = false
			t.mu.Unlock()
			return
		}
		var err error
		if t.conn == nil {
			_, err = t.dialLocked(t.ctx)
		}
		if err == nil {
			t.redialing = false
		}
		t.mu.Unlock()

		if err == nil {
			t.resync()
			return
		}
	}
}

// resync replays the host's state to state-updated handlers. Pushes sent
// while the connection was down are lost.
func (t *WS) resync() {
	hs := t.handlers(EventStateUpdated)
	if len(hs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(t.ctx, wsResyncTimeout)
	defer cancel()
	var raw json.RawMessage
	if err := t.Invoke(ctx, CmdGetState, nil, &raw); err != nil {
		slog.Debug("bridge: ws resync failed", "err", err)
		return
	}
	slog.Info("bridge: ws reconnected", "url", t.url)
	for _, h := range hs {
		h(raw)
	}
}

func (t *WS) handlers(event string) []Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	hs := make([]Handler, 0, len(t.listeners[event]))
	for _, h := range t.listeners[event] {
		hs = append(hs, h)
	}
	return hs
}

func (t *WS) Invoke(ctx context.Context, cmd string, args, out any) error {
	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	raw, err := encodeArgs(args)
	if err != nil {
		return err
	}
	req := Envelope{Type: TypeInvoke, ID: uuid.NewString(), Cmd: cmd, Args: raw}
	ch := make(chan Envelope, 1)

	t.mu.Lock()
	t.pending[req.ID] = ch
	t.mu.Unlock()

	t.writeMu.Lock()
	err = conn.WriteJSON(req)
	t.writeMu.Unlock()
	if err != nil {
		t.forget(req.ID)
		t.drop(conn)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	select {
	case resp := <-ch:
		return decodeResponse(resp, out)
	case <-ctx.Done():
		t.forget(req.ID)
		return ctx.Err()
	}
}

func (t *WS) forget(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *WS) Listen(ctx context.Context, event string, h Handler) (Unlisten, error) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	if t.listeners[event] == nil {
		t.listeners[event] = make(map[uint64]Handler)
	}
	t.listeners[event][id] = h
	t.mu.Unlock()

	// Events only flow over a live connection.
	if _, err := t.connect(ctx); err != nil {
		slog.Debug("bridge: ws listen without connection", "event", event, "err", err)
		t.mu.Lock()
		if t.conn == nil {
			t.startRedialLocked()
		}
		t.mu.Unlock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners[event], id)
			t.mu.Unlock()
		})
	}, nil
}

func (t *WS) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), wsProbeTimeout)
	defer cancel()
	_, err := t.connect(ctx)
	return err == nil
}

func (t *WS) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.mu.Unlock()
	t.cancel()
	if conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	t.drop(conn)
	return nil
}
