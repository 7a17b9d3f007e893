package events_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/events"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// pushHost is a dispatcher that only emits events.
type pushHost struct {
	mu   sync.Mutex
	subs map[int]func(string, any)
	next int
}

func newPushHost() *pushHost { return &pushHost{subs: make(map[int]func(string, any))} }

func (p *pushHost) Dispatch(context.Context, string, json.RawMessage) (any, error) {
	return nil, nil
}

func (p *pushHost) Subscribe(fn func(string, any)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *pushHost) emit(event string, payload any) {
	p.mu.Lock()
	fns := make([]func(string, any), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(event, payload)
	}
}

func (p *pushHost) listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

type recordingSink struct {
	mu     sync.Mutex
	slots  []models.ActiveSlot
	states []models.StateSnapshot
}

func (r *recordingSink) ApplySlotToggled(s models.ActiveSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, s)
}

func (r *recordingSink) ApplyStateUpdated(s models.StateSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func TestManagerDeliversEvents(t *testing.T) {
	host := newPushHost()
	m := events.NewManager(bridge.New(bridge.NewLocal(host)))
	sink := &recordingSink{}

	stop := m.Start(context.Background(), sink)
	defer stop()

	host.emit(bridge.EventSlotToggled, models.SlotB)
	st := models.DefaultState()
	st.Connected = true
	host.emit(bridge.EventStateUpdated, st)

	if len(sink.slots) != 1 || sink.slots[0] != models.SlotB {
		t.Errorf("slots = %v", sink.slots)
	}
	if len(sink.states) != 1 || !sink.states[0].Connected {
		t.Errorf("states = %+v", sink.states)
	}
}

func TestManagerStartIsIdempotent(t *testing.T) {
	host := newPushHost()
	m := events.NewManager(bridge.New(bridge.NewLocal(host)))
	sink := &recordingSink{}

	stop1 := m.Start(context.Background(), sink)
	stop2 := m.Start(context.Background(), sink)
	if n := host.listeners(); n != 2 {
		t.Fatalf("listeners = %d, want 2 (one per event)", n)
	}
	host.emit(bridge.EventSlotToggled, models.SlotA)
	if len(sink.slots) != 1 {
		t.Errorf("event delivered %d times", len(sink.slots))
	}

	stop2()
	stop1()
	if n := host.listeners(); n != 0 {
		t.Errorf("listeners after stop = %d", n)
	}
	if m.Active() {
		t.Error("manager still active")
	}
}

func TestManagerStopWithoutBridge(t *testing.T) {
	m := events.NewManager(bridge.New(nil))
	stop := m.Start(context.Background(), &recordingSink{})
	stop()
	stop()

	// A fresh Start after stop works again.
	stop = m.Start(context.Background(), &recordingSink{})
	if !m.Active() {
		t.Error("restart should be active")
	}
	stop()
}
