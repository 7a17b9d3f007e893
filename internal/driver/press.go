package driver

import (
	"context"
	"log/slog"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/keycode"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// PressKey handles a physical press of one key (LED order): the key
// flips its slot and plays its sound. Subscribers get the new snapshot.
func (h *Host) PressKey(ctx context.Context, led int) error {
	if err := checkIndex(led); err != nil {
		return err
	}
	h.mu.Lock()
	err := h.toggleKeyLocked(ctx, led)
	if err != nil {
		slog.Warn("driver: key press apply", "key", led, "err", err)
	}
	if ref := h.sound.KeySounds[led]; ref != nil {
		if e := h.sound.FindSound(*ref); e != nil {
			if perr := h.playLocked(*e); perr != nil {
				slog.Warn("driver: key sound", "key", led, "err", perr)
			}
		}
	}
	snap := h.snapshotLocked()
	h.mu.Unlock()
	h.emit(bridge.EventStateUpdated, snap)
	return err
}

// PressToggle handles the global toggle shortcut.
func (h *Host) PressToggle(ctx context.Context) error {
	h.mu.Lock()
	slot, err := h.toggleSlotLocked(ctx)
	h.mu.Unlock()
	if err != nil {
		slog.Warn("driver: toggle apply", "err", err)
	}
	h.emit(bridge.EventSlotToggled, slot)
	return err
}

// refreshShortcutsLocked rebuilds the shortcut-to-key table from the keymap.
// Keys whose keycode has no shortcut string are not reachable that way.
func (h *Host) refreshShortcutsLocked() {
	m := make(map[string]int, models.NumKeys)
	for km, code := range h.keymaps {
		if s, ok := keycode.Shortcut(code); ok {
			m[s] = models.KeymapToLED(km)
		}
	}
	h.shortcuts = m
}

// Shortcuts returns the current shortcut-to-LED table.
func (h *Host) Shortcuts() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.shortcuts))
	for k, v := range h.shortcuts {
		out[k] = v
	}
	return out
}

// HandleShortcut routes a global shortcut to the key that emits it.
func (h *Host) HandleShortcut(ctx context.Context, shortcut string) bool {
	h.mu.Lock()
	led, ok := h.shortcuts[shortcut]
	h.mu.Unlock()
	if !ok {
		return false
	}
	_ = h.PressKey(ctx, led)
	return true
}

// WatchSounds drops library entries whose files are deleted behind the
// host's back and notifies subscribers.
func (h *Host) WatchSounds(ctx context.Context) error {
	return h.sounds.Watch(ctx, func(filename string) {
		h.mu.Lock()
		var id string
		for _, e := range h.sound.SoundLibrary {
			if e.Filename == filename {
				id = e.ID
				break
			}
		}
		if id == "" {
			h.mu.Unlock()
			return
		}
		slog.Info("driver: sound file removed externally", "file", filename, "id", id)
		h.forgetSoundLocked(context.Background(), id)
		h.persistLocked()
		snap := h.snapshotLocked()
		h.mu.Unlock()
		h.emit(bridge.EventStateUpdated, snap)
	})
}
