package driver

import (
	"context"
	"fmt"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// SetKeyColor stores a slot color and makes that slot the key's active one.
func (h *Host) SetKeyColor(ctx context.Context, index int, slot models.ActiveSlot, c models.HsvColor) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if !slot.Valid() {
		return models.ErrBadRequest(fmt.Sprintf("invalid slot %q", slot))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	k := &h.keys[index]
	k.SetColor(slot, c)
	k.ActiveSlot = slot
	defer h.persistLocked()
	if k.OverrideEnabled && h.dev != nil {
		return h.dev.SetKeyColor(ctx, uint8(index), c)
	}
	return nil
}

// ToggleSlot flips the global slot and every key with it.
func (h *Host) ToggleSlot(ctx context.Context) (models.ActiveSlot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.toggleSlotLocked(ctx)
}

func (h *Host) toggleSlotLocked(ctx context.Context) (models.ActiveSlot, error) {
	h.slot = h.slot.Other()
	for i := range h.keys {
		h.keys[i].ActiveSlot = h.keys[i].ActiveSlot.Other()
	}
	h.persistLocked()
	if err := h.applyAllLocked(ctx); err != nil {
		return h.slot, err
	}
	return h.slot, nil
}

// ToggleKeySlot flips one key's active slot.
func (h *Host) ToggleKeySlot(ctx context.Context, index int) (models.StateSnapshot, error) {
	if err := checkIndex(index); err != nil {
		return models.StateSnapshot{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.toggleKeyLocked(ctx, index); err != nil {
		return models.StateSnapshot{}, err
	}
	return h.snapshotLocked(), nil
}

func (h *Host) toggleKeyLocked(ctx context.Context, led int) error {
	h.keys[led].ActiveSlot = h.keys[led].ActiveSlot.Other()
	h.persistLocked()
	return h.applyKeyLocked(ctx, led)
}

// SetKeycode writes a layer-0 keycode. index is in keymap (matrix) order.
func (h *Host) SetKeycode(ctx context.Context, index int, code uint16) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.writeKeycodeLocked(ctx, index, code); err != nil {
		return err
	}
	h.refreshShortcutsLocked()
	return nil
}

// SetKeyOverride enables or disables the per-key color override.
func (h *Host) SetKeyOverride(ctx context.Context, index int, enabled bool) (models.StateSnapshot, error) {
	if err := checkIndex(index); err != nil {
		return models.StateSnapshot{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys[index].OverrideEnabled = enabled
	h.persistLocked()
	if h.dev != nil {
		if err := h.applyKeyLocked(ctx, index); err != nil {
			return models.StateSnapshot{}, err
		}
		if err := h.dev.CustomSave(ctx); err != nil {
			return models.StateSnapshot{}, err
		}
	}
	return h.snapshotLocked(), nil
}

// ApplyColors pushes every key's effective color to the device.
func (h *Host) ApplyColors(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.requireDevice(); err != nil {
		return err
	}
	return h.applyAllLocked(ctx)
}

// DisableAllOverrides hands every LED back to the matrix effect without
// changing the stored configuration.
func (h *Host) DisableAllOverrides(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	dev, err := h.requireDevice()
	if err != nil {
		return err
	}
	for led := 0; led < models.NumKeys; led++ {
		if err := dev.DisableOverride(ctx, uint8(led)); err != nil {
			return err
		}
	}
	return nil
}

// GetKeymap re-reads the keymap when connected, else returns the cached one.
func (h *Host) GetKeymap(ctx context.Context) ([]uint16, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dev != nil {
		km, err := h.dev.ReadAllKeycodes(ctx)
		if err != nil {
			return nil, err
		}
		h.keymaps = km
		h.refreshShortcutsLocked()
	}
	return append([]uint16(nil), h.keymaps[:]...), nil
}

// SaveCustom commits the live overrides to the board's EEPROM.
func (h *Host) SaveCustom(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	dev, err := h.requireDevice()
	if err != nil {
		return err
	}
	return dev.CustomSave(ctx)
}

// RestoreDefaults resets every key to the factory colors.
func (h *Host) RestoreDefaults(ctx context.Context) (models.StateSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = models.FactoryKeys()
	h.persistLocked()
	if h.dev != nil {
		if err := h.applyAllLocked(ctx); err != nil {
			return models.StateSnapshot{}, err
		}
		if err := h.dev.CustomSave(ctx); err != nil {
			return models.StateSnapshot{}, err
		}
	}
	return h.snapshotLocked(), nil
}
