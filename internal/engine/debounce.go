package engine

import (
	"sync"
	"time"
)

// debouncer holds at most one pending write per field key. Scheduling a
// field again cancels and replaces its pending write.
type debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	slots map[string]*writeSlot
	wg    sync.WaitGroup
}

type writeSlot struct {
	timer *time.Timer
	gen   uint64
	fn    func()
	// run serializes sends for one field.
	run sync.Mutex
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, slots: make(map[string]*writeSlot)}
}

// schedule replaces the pending write for key with fn.
func (d *debouncer) schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.slots[key]
	if !ok {
		s = &writeSlot{}
		d.slots[key] = s
	}
	d.stopLocked(s)
	s.gen++
	gen := s.gen
	s.fn = fn
	d.wg.Add(1)
	s.timer = time.AfterFunc(d.delay, func() { d.fire(s, gen) })
}

// stopLocked cancels a pending timer. A timer that already fired settles
// its own WaitGroup count in fire.
func (d *debouncer) stopLocked(s *writeSlot) {
	if s.timer != nil && s.timer.Stop() {
		d.wg.Done()
	}
	s.timer = nil
}

func (d *debouncer) fire(s *writeSlot, gen uint64) {
	defer d.wg.Done()
	s.run.Lock()
	defer s.run.Unlock()

	d.mu.Lock()
	if s.gen != gen || s.fn == nil {
		// Superseded or cancelled.
		d.mu.Unlock()
		return
	}
	fn := s.fn
	s.fn = nil
	s.timer = nil
	d.mu.Unlock()
	fn()
}

// cancelAll drops every pending write without sending it.
func (d *debouncer) cancelAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.slots {
		if s.fn != nil {
			n++
		}
		d.stopLocked(s)
		s.gen++
		s.fn = nil
	}
	return n
}

// flush sends every pending write now and waits for in-flight sends.
func (d *debouncer) flush() {
	d.mu.Lock()
	var due []func()
	for _, s := range d.slots {
		if s.timer != nil && s.timer.Stop() {
			s.timer = nil
			gen := s.gen
			slot := s
			due = append(due, func() { d.fire(slot, gen) })
		}
	}
	d.mu.Unlock()
	for _, f := range due {
		f()
	}
	d.wg.Wait()
}

// pending returns the number of writes waiting for their window to close.
func (d *debouncer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.slots {
		if s.fn != nil {
			n++
		}
	}
	return n
}
