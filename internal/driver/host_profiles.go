package driver

import (
	"context"
	"log/slog"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

func (h *Host) ListProfiles() ([]string, error) { return h.profiles.List() }

func (h *Host) DeleteProfile(name string) error { return h.profiles.Delete(name) }

// SaveProfile stores the current keys, slot, keymap and soundboard under name.
func (h *Host) SaveProfile(name string) error {
	h.mu.Lock()
	keymaps := h.keymaps
	audio := h.sound.DeepCopy()
	prof := models.Profile{
		Name:        name,
		Keys:        h.keys,
		ActiveSlot:  h.slot,
		Keymaps:     &keymaps,
		AudioConfig: &audio,
	}
	h.mu.Unlock()
	return h.profiles.Save(prof)
}

// LoadProfile replaces the editable state with a saved profile and pushes
// it to the device. Connection and device metadata are left alone.
func (h *Host) LoadProfile(ctx context.Context, name string) (models.StateSnapshot, error) {
	prof, err := h.profiles.Load(name)
	if err != nil {
		return models.StateSnapshot{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.keys = prof.Keys
	for i := range h.keys {
		if !h.keys[i].ActiveSlot.Valid() {
			h.keys[i].ActiveSlot = models.SlotA
		}
	}
	if prof.ActiveSlot.Valid() {
		h.slot = prof.ActiveSlot
	}
	if prof.AudioConfig != nil {
		audio := prof.AudioConfig.DeepCopy()
		audio.SoundFiles = nil
		if audio.SoundLibrary == nil {
			audio.SoundLibrary = []models.SoundEntry{}
		}
		for _, i := range audio.DanglingKeySounds() {
			audio.KeySounds[i] = nil
		}
		audio.AudioInputDevice = h.sound.AudioInputDevice
		audio.AudioOutputDevice = h.sound.AudioOutputDevice
		audio.SoundboardEnabled = h.sound.SoundboardEnabled
		h.sound = audio
	}
	h.persistLocked()

	if prof.Keymaps != nil {
		for i, code := range prof.Keymaps {
			if err := h.writeKeycodeLocked(ctx, i, code); err != nil {
				return models.StateSnapshot{}, err
			}
		}
		h.refreshShortcutsLocked()
	}
	if err := h.applyAllLocked(ctx); err != nil {
		return models.StateSnapshot{}, err
	}
	if h.dev != nil {
		if err := h.dev.CustomSave(ctx); err != nil {
			slog.Warn("driver: custom save after profile load", "err", err)
		}
	}
	return h.snapshotLocked(), nil
}
