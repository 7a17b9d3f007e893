package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Host status payloads, published retained on Topics.Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// MessageHandler receives one MQTT message.
type MessageHandler func(topic string, payload []byte)

// MQTTConn is the part of an MQTT client the bridge needs.
type MQTTConn interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, h MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
	Close() error
}

// Topics builds the topic tree for one device:
//
//	deck8/<device>/cmd/<cmd>        invoke envelopes
//	deck8/<device>/resp/<client>    response envelopes
//	deck8/<device>/event/<name>     push events
//	deck8/<device>/status           retained host status
type Topics struct {
	Device string
}

func (t Topics) base() string { return "deck8/" + t.Device }

func (t Topics) Command(cmd string) string { return t.base() + "/cmd/" + cmd }
func (t Topics) AllCommands() string { return t.base() + "/cmd/+" }
func (t Topics) Response(clientID string) string { return t.base() + "/resp/" + clientID }
func (t Topics) Event(name string) string { return t.base() + "/event/" + name }
func (t Topics) Status() string { return t.base() + "/status" }

// CommandName extracts the command from a command topic.
func (t Topics) CommandName(topic string) (string, bool) {
	prefix := t.base() + "/cmd/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(topic, prefix)
	return name, name != "" && !strings.Contains(name, "/")
}

// MQTT is a transport to a driver host reached through a broker.
type MQTT struct {
	conn     MQTTConn
	topics   Topics
	clientID string

	mu         sync.Mutex
	started    bool
	hostOnline bool
	closed     bool
	pending    map[string]chan Envelope
	listeners  map[string]map[uint64]Handler
	nextID     uint64
	subscribed map[string]bool
}

// NewMQTT creates a transport for device using conn. clientID must be
// unique among clients of the same device; empty picks a random one.
func NewMQTT(conn MQTTConn, device, clientID string) *MQTT {
	if clientID == "" {
		clientID = "deck8-" + uuid.NewString()[:8]
	}
	return &MQTT{
		conn:       conn,
		topics:     Topics{Device: device},
		clientID:   clientID,
		pending:    make(map[string]chan Envelope),
		listeners:  make(map[string]map[uint64]Handler),
		subscribed: make(map[string]bool),
	}
}

// start subscribes to the response and status topics once.
func (t *MQTT) start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.mu.Unlock()

	if err := t.conn.Subscribe(t.topics.Status(), t.onStatus); err != nil {
		t.resetStart()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := t.conn.Subscribe(t.topics.Response(t.clientID), t.onResponse); err != nil {
		t.resetStart()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (t *MQTT) resetStart() {
	t.mu.Lock()
	t.started = false
	t.mu.Unlock()
}

func (t *MQTT) onStatus(_ string, payload []byte) {
	online := string(payload) == StatusOnline
	t.mu.Lock()
	t.hostOnline = online
	var failed map[string]chan Envelope
	if !online {
		failed = t.pending
		t.pending = make(map[string]chan Envelope)
	}
	t.mu.Unlock()
	for id, ch := range failed {
		ch <- unavailableResponse(id)
	}
	slog.Debug("bridge: mqtt host status", "device", t.topics.Device, "online", online)
}

func (t *MQTT) onResponse(_ string, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("bridge: malformed mqtt response", "err", err)
		return
	}
	t.mu.Lock()
	ch := t.pending[env.ID]
	delete(t.pending, env.ID)
	t.mu.Unlock()
	if ch != nil {
		ch <- env
	}
}

func (t *MQTT) Invoke(ctx context.Context, cmd string, args, out any) error {
	if !t.Available() {
		return ErrUnavailable
	}
	raw, err := encodeArgs(args)
	if err != nil {
		return err
	}
	req := Envelope{Type: TypeInvoke, ID: uuid.NewString(), Cmd: cmd, Args: raw, ReplyTo: t.clientID}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	ch := make(chan Envelope, 1)
	t.mu.Lock()
	t.pending[req.ID] = ch
	t.mu.Unlock()

	if err := t.conn.Publish(t.topics.Command(cmd), data, false); err != nil {
		t.forget(req.ID)
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

func (t *MQTT) forget(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *MQTT) Listen(_ context.Context, event string, h Handler) (Unlisten, error) {
	if !t.conn.IsConnected() {
		return func() {}, nil
	}
	if err := t.start(); err != nil {
		return func() {}, err
	}

	t.mu.Lock()
	t.nextID++
	id := t.nextID
	if t.listeners[event] == nil {
		t.listeners[event] = make(map[uint64]Handler)
	}
	t.listeners[event][id] = h
	needSub := !t.subscribed[event]
	t.subscribed[event] = true
	t.mu.Unlock()

	if needSub {
		err := t.conn.Subscribe(t.topics.Event(event), func(_ string, payload []byte) {
			var env Envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				slog.Warn("bridge: malformed mqtt event", "event", event, "err", err)
				return
			}
			t.mu.Lock()
			hs := make([]Handler, 0, len(t.listeners[event]))
			for _, h := range t.listeners[event] {
				hs = append(hs, h)
			}
			t.mu.Unlock()
			for _, h := range hs {
				h(env.Payload)
			}
		})
		if err != nil {
			t.mu.Lock()
			delete(t.listeners[event], id)
			t.subscribed[event] = false
			t.mu.Unlock()
			return func() {}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
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

// Available reports whether the broker is connected and the host has
// announced itself online.
func (t *MQTT) Available() bool {
	if !t.conn.IsConnected() {
		return false
	}
	if err := t.start(); err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && t.hostOnline
}

func (t *MQTT) Close() error {
	t.mu.Lock()
	t.closed = true
	failed := t.pending
	t.pending = make(map[string]chan Envelope)
	t.mu.Unlock()
	for id, ch := range failed {
		ch <- unavailableResponse(id)
	}
	return t.conn.Close()
}

func unavailableResponse(id string) Envelope {
	return Envelope{Type: TypeResponse, ID: id, Error: unavailableError("driver host went offline")}
}
