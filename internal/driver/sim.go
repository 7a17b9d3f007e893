package driver

import (
	"context"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
)

// Simulator drives the physical side of a simulated Deck-8: key presses,
// the global toggle shortcut and the USB cable.
type Simulator struct {
	host  *Host
	board *Board
}

// NewSimulator pairs a host with the board it opens.
func NewSimulator(h *Host, b *Board) *Simulator {
	return &Simulator{host: h, board: b}
}

// PressKey presses the key at LED index led.
func (s *Simulator) PressKey(ctx context.Context, led int) error {
	return s.host.PressKey(ctx, led)
}

// PressToggle fires the global toggle shortcut.
func (s *Simulator) PressToggle(ctx context.Context) error {
	return s.host.PressToggle(ctx)
}

// Shortcut delivers a global shortcut string such as "Ctrl+Alt+M" and
// reports whether a key owned it.
func (s *Simulator) Shortcut(ctx context.Context, shortcut string) bool {
	return s.host.HandleShortcut(ctx, shortcut)
}

// SetPlugged plugs or unplugs the board. Unplugging drops the open device
// and pushes the disconnected snapshot.
func (s *Simulator) SetPlugged(plugged bool) {
	s.board.SetPlugged(plugged)
	if plugged {
		return
	}
	h := s.host
	h.mu.Lock()
	h.dropDeviceLocked()
	snap := h.snapshotLocked()
	h.mu.Unlock()
	h.emit(bridge.EventStateUpdated, snap)
}
