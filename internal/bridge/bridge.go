package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Bridge is the typed command surface of the driver host. Every operation
// that returns a value is a read and fails with ErrUnavailable when no host
// is present; every other operation is a write and returns nil instead.
type Bridge struct {
	t Transport
}

// New wraps a transport. A nil transport behaves like Null.
func New(t Transport) *Bridge {
	if t == nil {
		t = Null{}
	}
	return &Bridge{t: t}
}

// Available reports whether a driver host is reachable.
func (b *Bridge) Available() bool { return b.t.Available() }

// Close releases the transport.
func (b *Bridge) Close() error { return b.t.Close() }

func (b *Bridge) read(ctx context.Context, cmd string, args, out any) error {
	return b.t.Invoke(ctx, cmd, args, out)
}

func (b *Bridge) write(ctx context.Context, cmd string, args any) error {
	err := b.t.Invoke(ctx, cmd, args, nil)
	if errors.Is(err, ErrUnavailable) {
		slog.Debug("bridge: write dropped, no driver host", "cmd", cmd)
		return nil
	}
	return err
}

// ── Connection ──────────────────────────────────────────────────────────

func (b *Bridge) Connect(ctx context.Context) (bool, error) {
	var ok bool
	err := b.read(ctx, CmdConnect, nil, &ok)
	return ok, err
}

func (b *Bridge) GetState(ctx context.Context) (models.StateSnapshot, error) {
	var s models.StateSnapshot
	err := b.read(ctx, CmdGetState, nil, &s)
	return s, err
}

// ── Keys ────────────────────────────────────────────────────────────────

func (b *Bridge) SetKeyColor(ctx context.Context, index int, slot models.ActiveSlot, c models.HsvColor) error {
	return b.write(ctx, CmdSetKeyColor, KeyColorArgs{KeyIndex: index, Slot: slot, H: c.H, S: c.S, V: c.V})
}

func (b *Bridge) ToggleSlot(ctx context.Context) (models.ActiveSlot, error) {
	var slot models.ActiveSlot
	err := b.read(ctx, CmdToggleSlot, nil, &slot)
	return slot, err
}

func (b *Bridge) ToggleKeySlot(ctx context.Context, index int) (models.StateSnapshot, error) {
	var s models.StateSnapshot
	err := b.read(ctx, CmdToggleKeySlot, KeyIndexArgs{KeyIndex: index}, &s)
	return s, err
}

func (b *Bridge) SetKeycode(ctx context.Context, index int, code uint16) error {
	return b.write(ctx, CmdSetKeycode, KeycodeArgs{KeyIndex: index, Keycode: code})
}

func (b *Bridge) SetKeyOverride(ctx context.Context, index int, enabled bool) (models.StateSnapshot, error) {
	var s models.StateSnapshot
	err := b.read(ctx, CmdSetKeyOverride, KeyOverrideArgs{KeyIndex: index, Enabled: enabled}, &s)
	return s, err
}

func (b *Bridge) ApplyColors(ctx context.Context) error {
	return b.write(ctx, CmdApplyColors, nil)
}

func (b *Bridge) DisableAllOverrides(ctx context.Context) error {
	return b.write(ctx, CmdDisableAllOverrides, nil)
}

func (b *Bridge) GetKeymap(ctx context.Context) ([]uint16, error) {
	var km []uint16
	err := b.read(ctx, CmdGetKeymap, nil, &km)
	return km, err
}

// ── Persistence ─────────────────────────────────────────────────────────

func (b *Bridge) SaveCustom(ctx context.Context) error {
	return b.write(ctx, CmdSaveCustom, nil)
}

func (b *Bridge) RestoreDefaults(ctx context.Context) (models.StateSnapshot, error) {
	var s models.StateSnapshot
	err := b.read(ctx, CmdRestoreDefaults, nil, &s)
	return s, err
}

func (b *Bridge) ListProfiles(ctx context.Context) ([]string, error) {
	var names []string
	err := b.read(ctx, CmdListProfiles, nil, &names)
	return names, err
}

func (b *Bridge) SaveProfile(ctx context.Context, name string) error {
	return b.write(ctx, CmdSaveProfile, NameArgs{Name: name})
}

func (b *Bridge) LoadProfile(ctx context.Context, name string) (models.StateSnapshot, error) {
	var s models.StateSnapshot
	err := b.read(ctx, CmdLoadProfile, NameArgs{Name: name}, &s)
	return s, err
}

func (b *Bridge) DeleteProfile(ctx context.Context, name string) error {
	return b.write(ctx, CmdDeleteProfile, NameArgs{Name: name})
}

// ── Device control ──────────────────────────────────────────────────────

func (b *Bridge) GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	var info models.DeviceInfo
	err := b.read(ctx, CmdGetDeviceInfo, nil, &info)
	return info, err
}

func (b *Bridge) DeviceIndication(ctx context.Context) error {
	return b.write(ctx, CmdDeviceIndication, nil)
}

func (b *Bridge) BootloaderJump(ctx context.Context) error {
	return b.write(ctx, CmdBootloaderJump, nil)
}

func (b *Bridge) EepromReset(ctx context.Context) error {
	return b.write(ctx, CmdEepromReset, nil)
}

func (b *Bridge) DynamicKeymapReset(ctx context.Context) error {
	return b.write(ctx, CmdDynamicKeymapReset, nil)
}

func (b *Bridge) MacroReset(ctx context.Context) error {
	return b.write(ctx, CmdMacroReset, nil)
}

// ── RGB matrix ──────────────────────────────────────────────────────────

func (b *Bridge) GetRgbMatrix(ctx context.Context) (models.RgbMatrixState, error) {
	var rgb models.RgbMatrixState
	err := b.read(ctx, CmdGetRgbMatrix, nil, &rgb)
	return rgb, err
}

func (b *Bridge) SetRgbBrightness(ctx context.Context, v uint8) error {
	return b.write(ctx, CmdSetRgbBrightness, ValueArgs{Value: v})
}

func (b *Bridge) SetRgbEffect(ctx context.Context, v uint8) error {
	return b.write(ctx, CmdSetRgbEffect, ValueArgs{Value: v})
}

func (b *Bridge) SetRgbSpeed(ctx context.Context, v uint8) error {
	return b.write(ctx, CmdSetRgbSpeed, ValueArgs{Value: v})
}

func (b *Bridge) SetRgbColor(ctx context.Context, h, s uint8) error {
	return b.write(ctx, CmdSetRgbColor, RgbColorArgs{H: h, S: s})
}

func (b *Bridge) SaveRgbMatrix(ctx context.Context) error {
	return b.write(ctx, CmdSaveRgbMatrix, nil)
}

// ── Soundboard ──────────────────────────────────────────────────────────

func (b *Bridge) ListAudioDevices(ctx context.Context) (models.AudioDeviceList, error) {
	var list models.AudioDeviceList
	err := b.read(ctx, CmdListAudioDevices, nil, &list)
	return list, err
}

func (b *Bridge) SetAudioInputDevice(ctx context.Context, name *string) error {
	return b.write(ctx, CmdSetAudioInputDevice, DeviceNameArgs{Name: name})
}

func (b *Bridge) SetAudioOutputDevice(ctx context.Context, name *string) error {
	return b.write(ctx, CmdSetAudioOutputDevice, DeviceNameArgs{Name: name})
}

func (b *Bridge) SetSoundVolume(ctx context.Context, v float32) error {
	return b.write(ctx, CmdSetSoundVolume, VolumeArgs{Volume: v})
}

func (b *Bridge) SetMicVolume(ctx context.Context, v float32) error {
	return b.write(ctx, CmdSetMicVolume, VolumeArgs{Volume: v})
}

func (b *Bridge) AddToSoundLibrary(ctx context.Context, path, name string) (models.SoundEntry, error) {
	var e models.SoundEntry
	err := b.read(ctx, CmdAddToSoundLibrary, AddSoundArgs{FilePath: path, DisplayName: name}, &e)
	return e, err
}

func (b *Bridge) AddToSoundLibraryTrimmed(ctx context.Context, path, name string, startMs, endMs uint64) (models.SoundEntry, error) {
	var e models.SoundEntry
	args := AddSoundArgs{FilePath: path, DisplayName: name, StartMs: startMs, EndMs: endMs}
	err := b.read(ctx, CmdAddToSoundLibraryTrimmed, args, &e)
	return e, err
}

func (b *Bridge) RemoveFromSoundLibrary(ctx context.Context, id string) error {
	return b.write(ctx, CmdRemoveFromSoundLibrary, SoundIDArgs{SoundID: id})
}

func (b *Bridge) RenameSound(ctx context.Context, id, name string) error {
	return b.write(ctx, CmdRenameSound, RenameSoundArgs{SoundID: id, NewName: name})
}

func (b *Bridge) SetKeySound(ctx context.Context, index int, id *string) error {
	return b.write(ctx, CmdSetKeySound, KeySoundArgs{KeyIndex: index, SoundID: id})
}

func (b *Bridge) PreviewLibrarySound(ctx context.Context, id string) error {
	return b.write(ctx, CmdPreviewLibrarySound, SoundIDArgs{SoundID: id})
}

func (b *Bridge) GetAudioDuration(ctx context.Context, path string) (uint64, error) {
	var ms uint64
	err := b.read(ctx, CmdGetAudioDuration, FilePathArgs{FilePath: path}, &ms)
	return ms, err
}

func (b *Bridge) PreviewTrim(ctx context.Context, path string, startMs, endMs uint64) error {
	return b.write(ctx, CmdPreviewTrim, TrimArgs{SourcePath: path, StartMs: startMs, EndMs: endMs})
}

// ── Events ──────────────────────────────────────────────────────────────

// OnSlotToggled delivers the new global slot after a hardware toggle.
func (b *Bridge) OnSlotToggled(ctx context.Context, fn func(models.ActiveSlot)) (Unlisten, error) {
	return b.t.Listen(ctx, EventSlotToggled, func(raw json.RawMessage) {
		var slot models.ActiveSlot
		if decodeEvent(EventSlotToggled, raw, &slot) && slot.Valid() {
			fn(slot)
		}
	})
}

// OnStateUpdated delivers full snapshots pushed by the driver.
func (b *Bridge) OnStateUpdated(ctx context.Context, fn func(models.StateSnapshot)) (Unlisten, error) {
	return b.t.Listen(ctx, EventStateUpdated, func(raw json.RawMessage) {
		var s models.StateSnapshot
		if decodeEvent(EventStateUpdated, raw, &s) {
			fn(s)
		}
	})
}

func decodeEvent(event string, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("bridge: malformed event payload", "event", event, "err", err)
		return false
	}
	return true
}
