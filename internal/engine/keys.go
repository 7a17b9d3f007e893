package engine

import (
	"context"
	"fmt"

	"github.com/churrosoft/deck8-hub-go/internal/color"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// SetKeyColor stores a slot color locally at once and sends it after the
// debounce window. Only the last color of a drag reaches the host.
func (e *Engine) SetKeyColor(index int, slot models.ActiveSlot, c models.HsvColor) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if !slot.Valid() {
		return models.ErrBadRequest("slot must be A or B")
	}
	e.apply(func(s *models.StateSnapshot) {
		s.Keys[index].SetColor(slot, c)
		s.Keys[index].ActiveSlot = slot
	})
	e.debounced(fmt.Sprintf("key-color/%d/%s", index, slot), GroupKeyColor, "Set key color",
		func(ctx context.Context) error { return e.b.SetKeyColor(ctx, index, slot, c) })
	return nil
}

// SetKeyColorHex is SetKeyColor for a "#rrggbb" string from a picker.
func (e *Engine) SetKeyColorHex(index int, slot models.ActiveSlot, hex string) error {
	c, ok := color.HexToHSV(hex)
	if !ok {
		return models.ErrBadRequest(fmt.Sprintf("invalid color %q", hex))
	}
	return e.SetKeyColor(index, slot, c)
}

// ToggleSlot flips the hardware-active slot.
func (e *Engine) ToggleSlot(ctx context.Context) (models.ActiveSlot, error) {
	snap := e.apply(func(s *models.StateSnapshot) {
		s.ActiveSlot = s.ActiveSlot.Other()
		for i := range s.Keys {
			s.Keys[i].ActiveSlot = s.Keys[i].ActiveSlot.Other()
		}
	})
	var got models.ActiveSlot
	err := e.call(ctx, GroupSlot, "Toggle slot", func(ctx context.Context) error {
		var err error
		got, err = e.b.ToggleSlot(ctx)
		return err
	})
	if err != nil {
		return e.State().ActiveSlot, err
	}
	if got.Valid() && got != snap.ActiveSlot {
		e.apply(func(s *models.StateSnapshot) { s.ActiveSlot = got })
		snap.ActiveSlot = got
	}
	return snap.ActiveSlot, nil
}

// ToggleKeySlot flips one key's active slot.
func (e *Engine) ToggleKeySlot(ctx context.Context, index int) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	e.apply(func(s *models.StateSnapshot) {
		s.Keys[index].ActiveSlot = s.Keys[index].ActiveSlot.Other()
	})
	return e.callSnapshot(ctx, GroupSlot, "Toggle key slot", func(ctx context.Context) (models.StateSnapshot, error) {
		return e.b.ToggleKeySlot(ctx, index)
	})
}

// callSnapshot runs a call that answers with the authoritative snapshot
// and installs it on success.
func (e *Engine) callSnapshot(ctx context.Context, g Group, action string, fn func(ctx context.Context) (models.StateSnapshot, error)) error {
	var snap models.StateSnapshot
	var ok bool
	err := e.call(ctx, g, action, func(ctx context.Context) error {
		var err error
		snap, err = fn(ctx)
		ok = err == nil
		return err
	})
	if ok {
		e.replace(snap)
	}
	return err
}

// SetKeycode assigns a keycode at a keymap index. Discrete, never debounced.
func (e *Engine) SetKeycode(ctx context.Context, index int, code uint16) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	e.apply(func(s *models.StateSnapshot) { s.Keymaps[index] = code })
	return e.call(ctx, GroupKeycode, "Set keycode", func(ctx context.Context) error {
		return e.b.SetKeycode(ctx, index, code)
	})
}

// SetKeyOverride enables or disables a key's color override. A failure
// reverts to whatever the host reports.
func (e *Engine) SetKeyOverride(ctx context.Context, index int, enabled bool) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	e.apply(func(s *models.StateSnapshot) { s.Keys[index].OverrideEnabled = enabled })
	return e.callSnapshot(ctx, GroupOverride, "Set key override", func(ctx context.Context) (models.StateSnapshot, error) {
		return e.b.SetKeyOverride(ctx, index, enabled)
	})
}

// ApplyColors re-sends every key's color to the device.
func (e *Engine) ApplyColors(ctx context.Context) error {
	return e.call(ctx, GroupDevice, "Apply colors", e.b.ApplyColors)
}

// DisableAllOverrides hands all LEDs back to the matrix effect.
func (e *Engine) DisableAllOverrides(ctx context.Context) error {
	return e.call(ctx, GroupDevice, "Disable overrides", e.b.DisableAllOverrides)
}

// RefreshKeymap re-reads the keymap.
func (e *Engine) RefreshKeymap(ctx context.Context) error {
	var km []uint16
	err := e.call(ctx, GroupKeycode, "Read keymap", func(ctx context.Context) error {
		var err error
		km, err = e.b.GetKeymap(ctx)
		return err
	})
	if err != nil || km == nil {
		return err
	}
	e.apply(func(s *models.StateSnapshot) {
		copy(s.Keymaps[:], km)
	})
	return nil
}

// SaveCustom commits the device's live overrides to EEPROM.
func (e *Engine) SaveCustom(ctx context.Context) error {
	return e.call(ctx, GroupSave, "Save to device", e.b.SaveCustom)
}

// RestoreDefaults resets every key to the factory colors.
func (e *Engine) RestoreDefaults(ctx context.Context) error {
	e.apply(func(s *models.StateSnapshot) { s.Keys = models.FactoryKeys() })
	return e.callSnapshot(ctx, GroupDefaults, "Restore defaults", e.b.RestoreDefaults)
}
