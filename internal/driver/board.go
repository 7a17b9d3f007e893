package driver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// maxReportsPerSec matches the 1 kHz polling rate of the raw HID endpoint.
const maxReportsPerSec = 1000

// Board is a thread-safe simulated Deck-8 for development and tests.
// It keeps what the firmware would keep: per-LED overrides, the layer-0
// keymap and the RGB matrix settings, split into live and EEPROM copies.
type Board struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	plugged   bool
	failWrite bool
	failRead  bool
	opens     int

	info      models.DeviceInfo
	bootAt    time.Time
	overrides [models.NumKeys]*models.HsvColor
	keymap    [2][4]uint16
	rgb       models.RgbMatrixState

	saved       [models.NumKeys]*models.HsvColor
	savedRgb    models.RgbMatrixState
	indications int
	bootloader  int
	macroResets int
}

// NewBoard returns a plugged-in board with firmware defaults.
func NewBoard() *Board {
	b := &Board{
		limiter: rate.NewLimiter(rate.Limit(maxReportsPerSec), 32),
		plugged: true,
		info: models.DeviceInfo{
			ProtocolVersion: 0x000C,
			FirmwareVersion: 0x00010200,
			LayerCount:      4,
			MacroCount:      16,
			MacroBufferSize: 1024,
		},
		bootAt: time.Now(),
	}
	b.resetKeymap()
	b.rgb = models.RgbMatrixState{Brightness: 128, Effect: 1, Speed: 128, ColorH: 0, ColorS: 255}
	b.savedRgb = b.rgb
	return b
}

// resetKeymap restores the firmware default keymap: F13-F20.
func (b *Board) resetKeymap() {
	for i := 0; i < models.NumKeys; i++ {
		row, col := models.MatrixPosition(i)
		b.keymap[row][col] = 0x68 + uint16(i)
	}
}

// Open returns the board as a Device if it is plugged in.
func (b *Board) Open(ctx context.Context) (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.plugged {
		return nil, ErrNoBoard
	}
	b.opens++
	return b, nil
}

// SetPlugged simulates plugging or unplugging the USB cable.
func (b *Board) SetPlugged(plugged bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plugged = plugged
}

// SetFailWrite configures the board to fail all write reports.
func (b *Board) SetFailWrite(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrite = fail
}

// SetFailRead configures the board to fail all read reports.
func (b *Board) SetFailRead(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRead = fail
}

// Override returns the live override color of an LED, or nil when the
// LED runs the matrix effect.
func (b *Board) Override(led int) *models.HsvColor {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c := b.overrides[led]; c != nil {
		cp := *c
		return &cp
	}
	return nil
}

// Keycode returns the layer-0 keycode at a keymap index.
func (b *Board) Keycode(index int) uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	row, col := models.MatrixPosition(index)
	return b.keymap[row][col]
}

// Counters reports how often one-shot commands ran.
func (b *Board) Counters() (opens, indications, bootloader, macroResets int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens, b.indications, b.bootloader, b.macroResets
}

// report paces one HID report and checks the failure flags.
func (b *Board) report(ctx context.Context, write bool) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case !b.plugged:
		return ErrHardware("board: device disconnected")
	case write && b.failWrite:
		return ErrHardware("board: write failure configured")
	case !write && b.failRead:
		return ErrHardware("board: read failure configured")
	}
	return nil
}

func (b *Board) write(ctx context.Context, fn func()) error {
	if err := b.report(ctx, true); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
	return nil
}

func (b *Board) SetKeyColor(ctx context.Context, led uint8, c models.HsvColor) error {
	if int(led) >= models.NumKeys {
		return ErrHardware("board: led out of range")
	}
	return b.write(ctx, func() { b.overrides[led] = &c })
}

func (b *Board) DisableOverride(ctx context.Context, led uint8) error {
	if int(led) >= models.NumKeys {
		return ErrHardware("board: led out of range")
	}
	return b.write(ctx, func() { b.overrides[led] = nil })
}

func (b *Board) SetKeycode(ctx context.Context, layer, row, col uint8, code uint16) error {
	if row > 1 || col > 3 {
		return ErrHardware("board: matrix position out of range")
	}
	if layer != 0 {
		// Only layer 0 is modelled.
		return b.write(ctx, func() {})
	}
	return b.write(ctx, func() { b.keymap[row][col] = code })
}

func (b *Board) ReadAllKeycodes(ctx context.Context) ([models.NumKeys]uint16, error) {
	var out [models.NumKeys]uint16
	for i := range out {
		if err := b.report(ctx, false); err != nil {
			return out, err
		}
		out[i] = b.Keycode(i)
	}
	return out, nil
}

func (b *Board) DeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	if err := b.report(ctx, false); err != nil {
		return models.DeviceInfo{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	info := b.info
	info.Uptime = uint32(time.Since(b.bootAt) / time.Millisecond)
	return info, nil
}

func (b *Board) Indicate(ctx context.Context) error {
	return b.write(ctx, func() { b.indications++ })
}

func (b *Board) CustomSave(ctx context.Context) error {
	return b.write(ctx, func() { b.saved = b.overrides })
}

func (b *Board) BootloaderJump(ctx context.Context) error {
	return b.write(ctx, func() {
		b.bootloader++
		b.bootAt = time.Now()
		// The board re-enumerates; live state comes back from EEPROM.
		b.overrides = b.saved
		b.rgb = b.savedRgb
	})
}

func (b *Board) EepromReset(ctx context.Context) error {
	return b.write(ctx, func() {
		b.saved = [models.NumKeys]*models.HsvColor{}
		b.savedRgb = models.RgbMatrixState{Brightness: 128, Effect: 1, Speed: 128, ColorS: 255}
	})
}

func (b *Board) DynamicKeymapReset(ctx context.Context) error {
	return b.write(ctx, b.resetKeymap)
}

func (b *Board) MacroReset(ctx context.Context) error {
	return b.write(ctx, func() { b.macroResets++ })
}

func (b *Board) RgbState(ctx context.Context) (models.RgbMatrixState, error) {
	if err := b.report(ctx, false); err != nil {
		return models.RgbMatrixState{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rgb, nil
}

func (b *Board) RgbSetBrightness(ctx context.Context, v uint8) error {
	return b.write(ctx, func() { b.rgb.Brightness = v })
}

func (b *Board) RgbSetEffect(ctx context.Context, v uint8) error {
	return b.write(ctx, func() { b.rgb.Effect = v })
}

func (b *Board) RgbSetSpeed(ctx context.Context, v uint8) error {
	return b.write(ctx, func() { b.rgb.Speed = v })
}

func (b *Board) RgbSetColor(ctx context.Context, h, s uint8) error {
	return b.write(ctx, func() { b.rgb.ColorH, b.rgb.ColorS = h, s })
}

func (b *Board) RgbSave(ctx context.Context) error {
	return b.write(ctx, func() { b.savedRgb = b.rgb })
}

func (b *Board) Close() error { return nil }

var _ Device = (*Board)(nil)
