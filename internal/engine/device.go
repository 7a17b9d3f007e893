package engine

import (
	"context"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// RefreshDeviceInfo reads the device metadata.
func (e *Engine) RefreshDeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	var info models.DeviceInfo
	var ok bool
	err := e.call(ctx, GroupDevice, "Read device info", func(ctx context.Context) error {
		var err error
		info, err = e.b.GetDeviceInfo(ctx)
		ok = err == nil
		return err
	})
	if ok {
		e.apply(func(s *models.StateSnapshot) { s.DeviceInfo = &info })
	}
	return info, err
}

func (e *Engine) DeviceIndication(ctx context.Context) error {
	return e.call(ctx, GroupDevice, "Identify device", e.b.DeviceIndication)
}

func (e *Engine) EepromReset(ctx context.Context) error {
	return e.call(ctx, GroupDevice, "EEPROM reset", e.b.EepromReset)
}

func (e *Engine) MacroReset(ctx context.Context) error {
	return e.call(ctx, GroupDevice, "Macro reset", e.b.MacroReset)
}

// DynamicKeymapReset restores the firmware keymap and re-reads it.
func (e *Engine) DynamicKeymapReset(ctx context.Context) error {
	if err := e.call(ctx, GroupDevice, "Keymap reset", e.b.DynamicKeymapReset); err != nil {
		return err
	}
	return e.RefreshKeymap(ctx)
}

// BootloaderJump reboots the board into its bootloader. The device always
// counts as disconnected afterwards since it re-enumerates.
func (e *Engine) BootloaderJump(ctx context.Context) error {
	err := e.call(ctx, GroupDevice, "Bootloader jump", e.b.BootloaderJump)
	e.apply(func(s *models.StateSnapshot) {
		s.Connected = false
		s.DeviceInfo = nil
		s.RgbMatrix = nil
	})
	return err
}

// RefreshRgbMatrix reads the underglow settings.
func (e *Engine) RefreshRgbMatrix(ctx context.Context) (models.RgbMatrixState, error) {
	var rgb models.RgbMatrixState
	var ok bool
	err := e.call(ctx, GroupDevice, "Read RGB matrix", func(ctx context.Context) error {
		var err error
		rgb, err = e.b.GetRgbMatrix(ctx)
		ok = err == nil
		return err
	})
	if ok {
		e.apply(func(s *models.StateSnapshot) { s.RgbMatrix = &rgb })
	}
	return rgb, err
}

// setRgb updates the cached matrix and schedules the write.
func (e *Engine) setRgb(field string, update func(*models.RgbMatrixState), send func(ctx context.Context) error) {
	e.apply(func(s *models.StateSnapshot) {
		if s.RgbMatrix != nil {
			update(s.RgbMatrix)
		}
	})
	e.debounced("rgb/"+field, GroupRgb, "Set RGB "+field, send)
}

func (e *Engine) SetRgbBrightness(v uint8) {
	e.setRgb("brightness",
		func(r *models.RgbMatrixState) { r.Brightness = v },
		func(ctx context.Context) error { return e.b.SetRgbBrightness(ctx, v) })
}

func (e *Engine) SetRgbEffect(v uint8) {
	e.setRgb("effect",
		func(r *models.RgbMatrixState) { r.Effect = v },
		func(ctx context.Context) error { return e.b.SetRgbEffect(ctx, v) })
}

func (e *Engine) SetRgbSpeed(v uint8) {
	e.setRgb("speed",
		func(r *models.RgbMatrixState) { r.Speed = v },
		func(ctx context.Context) error { return e.b.SetRgbSpeed(ctx, v) })
}

func (e *Engine) SetRgbColor(h, s uint8) {
	e.setRgb("color",
		func(r *models.RgbMatrixState) { r.ColorH, r.ColorS = h, s },
		func(ctx context.Context) error { return e.b.SetRgbColor(ctx, h, s) })
}

// SaveRgbMatrix commits the underglow settings to EEPROM. Pending RGB
// writes are flushed first so the saved values are the latest.
func (e *Engine) SaveRgbMatrix(ctx context.Context) error {
	e.writes.flush()
	return e.call(ctx, GroupSave, "Save RGB matrix", e.b.SaveRgbMatrix)
}
