package driver

import (
	"context"
	"log/slog"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// GetDeviceInfo reads fresh metadata when connected, else returns the cache.
func (h *Host) GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dev != nil {
		info, err := h.dev.DeviceInfo(ctx)
		if err != nil {
			return models.DeviceInfo{}, err
		}
		h.info = &info
		return info, nil
	}
	if h.info != nil {
		return *h.info, nil
	}
	return models.DeviceInfo{}, models.ErrNoDevice
}

// GetRgbMatrix reads the matrix settings when connected, else returns the cache.
func (h *Host) GetRgbMatrix(ctx context.Context) (models.RgbMatrixState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dev != nil {
		rgb, err := h.dev.RgbState(ctx)
		if err != nil {
			return models.RgbMatrixState{}, err
		}
		h.rgb = &rgb
		return rgb, nil
	}
	if h.rgb != nil {
		return *h.rgb, nil
	}
	return models.RgbMatrixState{}, models.ErrNoDevice
}

// withDevice runs fn against the open device.
func (h *Host) withDevice(fn func(Device) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	dev, err := h.requireDevice()
	if err != nil {
		return err
	}
	return fn(dev)
}

func (h *Host) DeviceIndication(ctx context.Context) error {
	return h.withDevice(func(d Device) error { return d.Indicate(ctx) })
}

func (h *Host) EepromReset(ctx context.Context) error {
	return h.withDevice(func(d Device) error { return d.EepromReset(ctx) })
}

func (h *Host) MacroReset(ctx context.Context) error {
	return h.withDevice(func(d Device) error { return d.MacroReset(ctx) })
}

func (h *Host) SaveRgbMatrix(ctx context.Context) error {
	return h.withDevice(func(d Device) error { return d.RgbSave(ctx) })
}

// DynamicKeymapReset restores the firmware keymap and re-reads it.
func (h *Host) DynamicKeymapReset(ctx context.Context) error {
	return h.withDevice(func(d Device) error {
		if err := d.DynamicKeymapReset(ctx); err != nil {
			return err
		}
		km, err := d.ReadAllKeycodes(ctx)
		if err != nil {
			return err
		}
		h.keymaps = km
		h.refreshShortcutsLocked()
		return nil
	})
}

// BootloaderJump reboots the board into its bootloader. The device is
// gone afterwards, so the host always ends up disconnected.
func (h *Host) BootloaderJump(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dev != nil {
		if err := h.dev.BootloaderJump(ctx); err != nil {
			slog.Warn("driver: bootloader jump", "err", err)
		}
	}
	h.dropDeviceLocked()
	return nil
}

// setRgb writes one matrix setting and updates the cache on success.
func (h *Host) setRgb(write func(Device) error, update func(*models.RgbMatrixState)) error {
	return h.withDevice(func(d Device) error {
		if err := write(d); err != nil {
			return err
		}
		if h.rgb != nil {
			update(h.rgb)
		}
		return nil
	})
}

func (h *Host) SetRgbBrightness(ctx context.Context, v uint8) error {
	return h.setRgb(
		func(d Device) error { return d.RgbSetBrightness(ctx, v) },
		func(r *models.RgbMatrixState) { r.Brightness = v })
}

func (h *Host) SetRgbEffect(ctx context.Context, v uint8) error {
	return h.setRgb(
		func(d Device) error { return d.RgbSetEffect(ctx, v) },
		func(r *models.RgbMatrixState) { r.Effect = v })
}

func (h *Host) SetRgbSpeed(ctx context.Context, v uint8) error {
	return h.setRgb(
		func(d Device) error { return d.RgbSetSpeed(ctx, v) },
		func(r *models.RgbMatrixState) { r.Speed = v })
}

func (h *Host) SetRgbColor(ctx context.Context, hue, sat uint8) error {
	return h.setRgb(
		func(d Device) error { return d.RgbSetColor(ctx, hue, sat) },
		func(r *models.RgbMatrixState) { r.ColorH, r.ColorS = hue, sat })
}
