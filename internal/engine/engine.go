// Package engine owns the client's canonical view of the Deck-8 and keeps
// it in step with the driver host: user edits apply locally first, rapid
// edits are coalesced, failures follow a fixed per-group policy and push
// events from the host win over local guesses.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/events"
	"github.com/churrosoft/deck8-hub-go/internal/models"
	"github.com/churrosoft/deck8-hub-go/internal/notify"
)

const (
	DefaultDebounce    = 50 * time.Millisecond
	DefaultCallTimeout = 3 * time.Second
)

// Options configures an Engine. Zero durations take the defaults.
type Options struct {
	Bridge      *bridge.Bridge
	Bus         *events.Bus
	Notifier    notify.Notifier
	Debounce    time.Duration
	CallTimeout time.Duration
}

// Engine is the single owner of a client's StateSnapshot.
type Engine struct {
	b        *bridge.Bridge
	bus      *events.Bus
	notifier notify.Notifier
	timeout  time.Duration
	writes   *debouncer
	subs     *events.Manager

	mu       sync.Mutex
	state    models.StateSnapshot
	editSlot models.ActiveSlot
	stopSubs func()
}

// New creates an engine in the disconnected default state.
// It does not talk to the bridge until Init or Connect.
func New(o Options) *Engine {
	if o.Bridge == nil {
		o.Bridge = bridge.New(nil)
	}
	if o.Bus == nil {
		o.Bus = events.NewBus()
	}
	if o.Notifier == nil {
		o.Notifier = notify.Log{}
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	return &Engine{
		b:        o.Bridge,
		bus:      o.Bus,
		notifier: o.Notifier,
		timeout:  o.CallTimeout,
		writes:   newDebouncer(o.Debounce),
		subs:     events.NewManager(o.Bridge),
		state:    models.DefaultState(),
		editSlot: models.SlotA,
	}
}

// State returns a deep copy of the current snapshot.
func (e *Engine) State() models.StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.DeepCopy()
}

// Bus returns the bus every state change is published on.
func (e *Engine) Bus() *events.Bus { return e.bus }

// EditSlot returns the slot the user is editing. It is local only.
func (e *Engine) EditSlot() models.ActiveSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editSlot
}

// SetEditSlot changes the slot the user is editing without touching the device.
func (e *Engine) SetEditSlot(s models.ActiveSlot) error {
	if !s.Valid() {
		return models.ErrBadRequest("slot must be A or B")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editSlot = s
	return nil
}

// apply mutates a copy of the snapshot, installs it and publishes it.
func (e *Engine) apply(fn func(*models.StateSnapshot)) models.StateSnapshot {
	e.mu.Lock()
	next := e.state.DeepCopy()
	fn(&next)
	e.state = next
	snap := next.DeepCopy()
	e.mu.Unlock()
	e.bus.Publish(snap)
	return snap
}

// replace installs an authoritative snapshot wholesale.
func (e *Engine) replace(s models.StateSnapshot) {
	e.apply(func(st *models.StateSnapshot) { *st = s.DeepCopy() })
}

func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// fail applies the group's policy to a failed bridge call. An unavailable
// bridge is never reported to the user. Silent groups swallow the error.
func (e *Engine) fail(g Group, action string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bridge.ErrUnavailable) {
		slog.Debug("engine: no driver host", "action", action)
		return err
	}
	p := PolicyFor(g)
	if !p.Visible {
		slog.Debug("engine: write failed", "group", g, "action", action, "err", err)
		return nil
	}
	slog.Warn("engine: "+action+" failed", "group", g, "err", err)
	e.notifier.Notify(action+" failed", models.AsAppError(err).Message)
	if p.Refresh {
		if rerr := e.Refresh(context.Background()); rerr != nil {
			slog.Debug("engine: refresh after failure", "err", rerr)
		}
	}
	return err
}

// send runs one bridge write with the call timeout and the group's policy.
func (e *Engine) send(g Group, action string, fn func(ctx context.Context) error) {
	ctx, cancel := e.callCtx(context.Background())
	defer cancel()
	_ = e.fail(g, action, fn(ctx))
}

// debounced schedules a coalesced write for one field.
func (e *Engine) debounced(key string, g Group, action string, fn func(ctx context.Context) error) {
	e.writes.schedule(key, func() { e.send(g, action, fn) })
}

// call runs one immediate bridge call under the group's policy.
func (e *Engine) call(ctx context.Context, g Group, action string, fn func(ctx context.Context) error) error {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()
	return e.fail(g, action, fn(cctx))
}

// Refresh replaces the snapshot with the driver host's. Pending debounced
// writes are sent first so the host's answer already contains them.
func (e *Engine) Refresh(ctx context.Context) error {
	e.writes.flush()
	cctx, cancel := e.callCtx(ctx)
	defer cancel()
	s, err := e.b.GetState(cctx)
	if err != nil {
		return err
	}
	e.replace(s)
	return nil
}

// Init subscribes to push events and connects silently. Failures are
// logged only; the engine stays in its default state.
func (e *Engine) Init(ctx context.Context) {
	e.mu.Lock()
	if e.stopSubs == nil {
		e.stopSubs = e.subs.Start(ctx, e)
	}
	e.mu.Unlock()

	cctx, cancel := e.callCtx(ctx)
	ok, err := e.b.Connect(cctx)
	cancel()
	if err != nil {
		slog.Debug("engine: startup connect failed", "err", err)
		return
	}
	if err := e.Refresh(ctx); err != nil {
		slog.Debug("engine: startup refresh failed", "err", err)
	}
	slog.Info("engine: started", "connected", ok)
}

// Connect is a user-requested reconnect. Its outcome is always reported.
func (e *Engine) Connect(ctx context.Context) (bool, error) {
	cctx, cancel := e.callCtx(ctx)
	ok, err := e.b.Connect(cctx)
	cancel()
	if err != nil {
		e.notifier.Notify("Connect failed", models.AsAppError(err).Message)
		return false, err
	}
	if rerr := e.Refresh(ctx); rerr != nil {
		slog.Debug("engine: refresh after connect", "err", rerr)
	}
	if !ok {
		e.notifier.Notify("Deck-8 not found", "Plug in the keypad and try again.")
		return false, nil
	}
	slog.Info("engine: connected")
	return true, nil
}

// Flush sends every pending debounced write now.
func (e *Engine) Flush() { e.writes.flush() }

// Pending returns the number of debounced writes not yet sent.
func (e *Engine) Pending() int { return e.writes.pending() }

// Close stops the push subscription and flushes pending writes.
func (e *Engine) Close() {
	e.mu.Lock()
	stop := e.stopSubs
	e.stopSubs = nil
	e.mu.Unlock()
	if stop != nil {
		stop()
	}
	e.writes.flush()
}

// ApplySlotToggled merges a slot-toggled push. The host flips every key
// along with the global slot, so the keys follow.
func (e *Engine) ApplySlotToggled(slot models.ActiveSlot) {
	if !slot.Valid() {
		return
	}
	e.apply(func(s *models.StateSnapshot) {
		if s.ActiveSlot == slot {
			return
		}
		s.ActiveSlot = slot
		for i := range s.Keys {
			s.Keys[i].ActiveSlot = s.Keys[i].ActiveSlot.Other()
		}
	})
}

// ApplyStateUpdated installs a pushed snapshot. Pending local writes are
// dropped since the host's state wins.
func (e *Engine) ApplyStateUpdated(s models.StateSnapshot) {
	if n := e.writes.cancelAll(); n > 0 {
		slog.Debug("engine: push superseded pending writes", "count", n)
	}
	e.replace(s)
}

var _ events.Sink = (*Engine)(nil)

func checkIndex(i int) error {
	if !models.ValidKeyIndex(i) {
		return models.ErrBadRequest("key index out of range")
	}
	return nil
}
