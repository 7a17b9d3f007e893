package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Sink receives push events from the driver host.
type Sink interface {
	ApplySlotToggled(slot models.ActiveSlot)
	ApplyStateUpdated(s models.StateSnapshot)
}

// Manager owns the long-lived push subscriptions of one client.
type Manager struct {
	b *bridge.Bridge

	mu   sync.Mutex
	stop func()
}

// NewManager creates a manager over a bridge.
func NewManager(b *bridge.Bridge) *Manager {
	return &Manager{b: b}
}

// Start subscribes sink to slot-toggled and state-updated. Calling Start
// while already subscribed returns the existing stop func. The stop func
// is safe to call any number of times, also when the bridge never came up.
func (m *Manager) Start(ctx context.Context, sink Sink) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return m.stop
	}

	var unlistens []bridge.Unlisten
	if un, err := m.b.OnSlotToggled(ctx, sink.ApplySlotToggled); err != nil {
		slog.Debug("events: slot-toggled subscription failed", "err", err)
	} else {
		unlistens = append(unlistens, un)
	}
	if un, err := m.b.OnStateUpdated(ctx, sink.ApplyStateUpdated); err != nil {
		slog.Debug("events: state-updated subscription failed", "err", err)
	} else {
		unlistens = append(unlistens, un)
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			for _, un := range unlistens {
				un()
			}
			m.mu.Lock()
			m.stop = nil
			m.mu.Unlock()
		})
	}
	m.stop = stop
	return stop
}

// Active reports whether a subscription is in place.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop != nil
}
