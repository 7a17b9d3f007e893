// Package events fans engine snapshots out to observers and manages the
// push-event subscription from the driver host.
package events

import (
	"sync"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

const observerQueue = 4

// Bus delivers engine snapshots to observers without ever blocking the
// engine. An observer that falls behind loses its oldest queued snapshot,
// so the newest one is always delivered.
type Bus struct {
	mu        sync.Mutex
	observers map[string]chan models.StateSnapshot
	dropped   uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{observers: make(map[string]chan models.StateSnapshot)}
}

// Subscribe registers an observer under id. Reusing an id closes the
// previous channel.
func (b *Bus) Subscribe(id string) <-chan models.StateSnapshot {
	ch := make(chan models.StateSnapshot, observerQueue)
	b.mu.Lock()
	prev := b.observers[id]
	b.observers[id] = ch
	b.mu.Unlock()
	if prev != nil {
		close(prev)
	}
	return ch
}

// Unsubscribe closes and forgets the observer's channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	ch := b.observers[id]
	delete(b.observers, id)
	b.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// Publish queues a private copy of s for every observer.
func (b *Bus) Publish(s models.StateSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.observers {
		snap := s.DeepCopy()
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full. Only the observer receives concurrently, so after
		// discarding the oldest there is room for the send.
		select {
		case <-ch:
			b.dropped++
		default:
		}
		ch <- snap
	}
}

// SubscriberCount returns the number of observers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Dropped returns how many queued snapshots were discarded for slow observers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
