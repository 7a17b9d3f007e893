// Package driver implements the Deck-8 driver host: the command surface
// the configuration client talks to, the persisted host state behind it,
// and a simulated board for development and tests.
package driver

import (
	"context"
	"errors"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// USB identity of the Deck-8 (VIA raw HID interface).
const (
	VendorID  uint16 = 0xCBBC
	ProductID uint16 = 0xC101
)

// ErrNoBoard is returned by an Opener when no Deck-8 is plugged in.
var ErrNoBoard = errors.New("driver: no Deck-8 found")

// Device is an open Deck-8. LED indexes address per-key lighting,
// (row, col) address the switch matrix.
type Device interface {
	SetKeyColor(ctx context.Context, led uint8, c models.HsvColor) error
	DisableOverride(ctx context.Context, led uint8) error
	SetKeycode(ctx context.Context, layer, row, col uint8, code uint16) error
	ReadAllKeycodes(ctx context.Context) ([models.NumKeys]uint16, error)

	DeviceInfo(ctx context.Context) (models.DeviceInfo, error)
	Indicate(ctx context.Context) error
	CustomSave(ctx context.Context) error
	BootloaderJump(ctx context.Context) error
	EepromReset(ctx context.Context) error
	DynamicKeymapReset(ctx context.Context) error
	MacroReset(ctx context.Context) error

	RgbState(ctx context.Context) (models.RgbMatrixState, error)
	RgbSetBrightness(ctx context.Context, v uint8) error
	RgbSetEffect(ctx context.Context, v uint8) error
	RgbSetSpeed(ctx context.Context, v uint8) error
	RgbSetColor(ctx context.Context, h, s uint8) error
	RgbSave(ctx context.Context) error

	Close() error
}

// Opener finds and opens a Deck-8.
type Opener func(ctx context.Context) (Device, error)

// HardwareError is returned when a device operation fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }
