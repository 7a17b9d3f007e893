// Package mqttbridge serves a driver host over MQTT: invoke envelopes
// arrive on deck8/<device>/cmd/<cmd>, responses go to the caller's reply
// topic and push events are published under deck8/<device>/event/.
package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

const queueSize = 64

var errStopped = errors.New("mqttbridge: responder stopped")

// Responder answers bridge commands published on a broker. Commands run
// one at a time in arrival order on a worker goroutine, so the broker
// client's callback goroutine never blocks on the driver.
type Responder struct {
	conn   bridge.MQTTConn
	topics bridge.Topics
	d      bridge.Dispatcher

	jobs chan bridge.Envelope

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	unsub   func()
	wg      sync.WaitGroup
}

// New creates a responder for device. The connection's will, if any,
// should target Topics().Status().
func New(conn bridge.MQTTConn, device string, d bridge.Dispatcher) *Responder {
	return &Responder{
		conn:   conn,
		topics: bridge.Topics{Device: device},
		d:      d,
		jobs:   make(chan bridge.Envelope, queueSize),
	}
}

// Topics returns the topic tree served.
func (r *Responder) Topics() bridge.Topics { return r.topics }

// Start subscribes to commands, forwards push events and announces the
// host online. It returns once serving; Stop or ctx cancellation ends it.
func (r *Responder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)

	r.wg.Add(1)
	go r.work(ctx)

	if err := r.conn.Subscribe(r.topics.AllCommands(), func(topic string, payload []byte) {
		r.enqueue(ctx, topic, payload)
	}); err != nil {
		cancel()
		r.wg.Wait()
		return fmt.Errorf("mqttbridge: subscribe commands: %w", err)
	}
	r.unsub = r.d.Subscribe(r.forward)

	if err := r.conn.Publish(r.topics.Status(), []byte(bridge.StatusOnline), true); err != nil {
		r.unsub()
		_ = r.conn.Unsubscribe(r.topics.AllCommands())
		cancel()
		r.wg.Wait()
		return fmt.Errorf("mqttbridge: publish status: %w", err)
	}
	r.cancel = cancel
	r.running = true
	slog.Info("mqttbridge: serving", "device", r.topics.Device)
	return nil
}

// Stop announces the host offline and stops serving.
func (r *Responder) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel, unsub := r.cancel, r.unsub
	r.mu.Unlock()

	unsub()
	err := r.conn.Publish(r.topics.Status(), []byte(bridge.StatusOffline), true)
	if uerr := r.conn.Unsubscribe(r.topics.AllCommands()); uerr != nil {
		slog.Debug("mqttbridge: unsubscribe", "err", uerr)
	}
	cancel()
	r.wg.Wait()
	return err
}

func (r *Responder) enqueue(ctx context.Context, topic string, payload []byte) {
	var req bridge.Envelope
	if err := json.Unmarshal(payload, &req); err != nil {
		slog.Warn("mqttbridge: malformed command", "topic", topic, "err", err)
		return
	}
	if req.ReplyTo == "" {
		slog.Warn("mqttbridge: command without reply_to dropped", "topic", topic)
		return
	}
	if name, ok := r.topics.CommandName(topic); ok {
		req.Cmd = name
	}
	if req.Type != bridge.TypeInvoke {
		r.reply(req, nil, models.ErrBadRequest("unknown message type: "+req.Type))
		return
	}
	select {
	case r.jobs <- req:
	case <-ctx.Done():
		r.reply(req, nil, &models.AppError{Code: models.CodeUnavailable, Message: errStopped.Error()})
	}
}

func (r *Responder) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case req := <-r.jobs:
			result, err := r.d.Dispatch(ctx, req.Cmd, req.Args)
			r.reply(req, result, err)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Responder) reply(req bridge.Envelope, result any, err error) {
	data, merr := json.Marshal(bridge.NewResponse(req, result, err))
	if merr != nil {
		slog.Error("mqttbridge: encode response", "cmd", req.Cmd, "err", merr)
		return
	}
	if perr := r.conn.Publish(r.topics.Response(req.ReplyTo), data, false); perr != nil {
		slog.Warn("mqttbridge: publish response", "cmd", req.Cmd, "err", perr)
	}
}

func (r *Responder) forward(event string, payload any) {
	env, err := bridge.NewEvent(event, payload)
	if err != nil {
		slog.Warn("mqttbridge: encode event", "event", event, "err", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := r.conn.Publish(r.topics.Event(event), data, false); err != nil {
		slog.Warn("mqttbridge: publish event", "event", event, "err", err)
	}
}
