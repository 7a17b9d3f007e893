package driver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

type handler func(ctx context.Context, h *Host, raw json.RawMessage) (any, error)

// Dispatcher serves bridge commands from a Host.
type Dispatcher struct {
	h *Host
}

// NewDispatcher wraps a host.
func NewDispatcher(h *Host) *Dispatcher { return &Dispatcher{h: h} }

// Host returns the wrapped host.
func (d *Dispatcher) Host() *Host { return d.h }

// Commands returns the names of every supported command.
func Commands() []string {
	out := make([]string, 0, len(handlers))
	for name := range handlers {
		out = append(out, name)
	}
	return out
}

func (d *Dispatcher) Dispatch(ctx context.Context, cmd string, raw json.RawMessage) (any, error) {
	fn, ok := handlers[cmd]
	if !ok {
		return nil, models.ErrNotFound(fmt.Sprintf("unknown command %q", cmd))
	}
	return fn(ctx, d.h, raw)
}

func (d *Dispatcher) Subscribe(fn func(event string, payload any)) (cancel func()) {
	return d.h.Subscribe(fn)
}

var _ bridge.Dispatcher = (*Dispatcher)(nil)

// decode unmarshals command arguments. Missing arguments decode as zero values.
func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, models.ErrBadRequest("invalid arguments: " + err.Error())
	}
	return v, nil
}

// with decodes A and calls fn.
func with[A any](fn func(ctx context.Context, h *Host, a A) (any, error)) handler {
	return func(ctx context.Context, h *Host, raw json.RawMessage) (any, error) {
		a, err := decode[A](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, h, a)
	}
}

// none adapts an argument-less command that only returns an error.
func none(fn func(h *Host, ctx context.Context) error) handler {
	return func(ctx context.Context, h *Host, _ json.RawMessage) (any, error) {
		return nil, fn(h, ctx)
	}
}

func checkByte(name string, v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, models.ErrBadRequest(fmt.Sprintf("%s must be 0-255", name))
	}
	return uint8(v), nil
}

// byteArgs accepts values outside the byte range so they can be rejected
// instead of failing to decode.
type byteArgs struct {
	Value int `json:"value"`
}

var handlers = map[string]handler{
	bridge.CmdConnect: func(ctx context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.Connect(ctx)
	},
	bridge.CmdGetState: func(_ context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.State(), nil
	},

	bridge.CmdSetKeyColor: with(func(ctx context.Context, h *Host, a bridge.KeyColorArgs) (any, error) {
		return nil, h.SetKeyColor(ctx, a.KeyIndex, a.Slot, models.HsvColor{H: a.H, S: a.S, V: a.V})
	}),
	bridge.CmdToggleSlot: func(ctx context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.ToggleSlot(ctx)
	},
	bridge.CmdToggleKeySlot: with(func(ctx context.Context, h *Host, a bridge.KeyIndexArgs) (any, error) {
		return h.ToggleKeySlot(ctx, a.KeyIndex)
	}),
	bridge.CmdSetKeycode: with(func(ctx context.Context, h *Host, a bridge.KeycodeArgs) (any, error) {
		return nil, h.SetKeycode(ctx, a.KeyIndex, a.Keycode)
	}),
	bridge.CmdSetKeyOverride: with(func(ctx context.Context, h *Host, a bridge.KeyOverrideArgs) (any, error) {
		return h.SetKeyOverride(ctx, a.KeyIndex, a.Enabled)
	}),
	bridge.CmdApplyColors:         none((*Host).ApplyColors),
	bridge.CmdDisableAllOverrides: none((*Host).DisableAllOverrides),
	bridge.CmdGetKeymap: func(ctx context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.GetKeymap(ctx)
	},

	bridge.CmdSaveCustom: none((*Host).SaveCustom),
	bridge.CmdRestoreDefaults: func(ctx context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.RestoreDefaults(ctx)
	},
	bridge.CmdListProfiles: func(_ context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.ListProfiles()
	},
	bridge.CmdSaveProfile: with(func(_ context.Context, h *Host, a bridge.NameArgs) (any, error) {
		return nil, h.SaveProfile(a.Name)
	}),
	bridge.CmdLoadProfile: with(func(ctx context.Context, h *Host, a bridge.NameArgs) (any, error) {
		return h.LoadProfile(ctx, a.Name)
	}),
	bridge.CmdDeleteProfile: with(func(_ context.Context, h *Host, a bridge.NameArgs) (any, error) {
		return nil, h.DeleteProfile(a.Name)
	}),

	bridge.CmdGetDeviceInfo: func(ctx context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.GetDeviceInfo(ctx)
	},
	bridge.CmdDeviceIndication:   none((*Host).DeviceIndication),
	bridge.CmdBootloaderJump:     none((*Host).BootloaderJump),
	bridge.CmdEepromReset:        none((*Host).EepromReset),
	bridge.CmdDynamicKeymapReset: none((*Host).DynamicKeymapReset),
	bridge.CmdMacroReset:         none((*Host).MacroReset),

	bridge.CmdGetRgbMatrix: func(ctx context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.GetRgbMatrix(ctx)
	},
	bridge.CmdSetRgbBrightness: with(func(ctx context.Context, h *Host, a byteArgs) (any, error) {
		v, err := checkByte("value", a.Value)
		if err != nil {
			return nil, err
		}
		return nil, h.SetRgbBrightness(ctx, v)
	}),
	bridge.CmdSetRgbEffect: with(func(ctx context.Context, h *Host, a byteArgs) (any, error) {
		v, err := checkByte("value", a.Value)
		if err != nil {
			return nil, err
		}
		return nil, h.SetRgbEffect(ctx, v)
	}),
	bridge.CmdSetRgbSpeed: with(func(ctx context.Context, h *Host, a byteArgs) (any, error) {
		v, err := checkByte("value", a.Value)
		if err != nil {
			return nil, err
		}
		return nil, h.SetRgbSpeed(ctx, v)
	}),
	bridge.CmdSetRgbColor: with(func(ctx context.Context, h *Host, a bridge.RgbColorArgs) (any, error) {
		return nil, h.SetRgbColor(ctx, a.H, a.S)
	}),
	bridge.CmdSaveRgbMatrix: none((*Host).SaveRgbMatrix),

	bridge.CmdListAudioDevices: func(_ context.Context, h *Host, _ json.RawMessage) (any, error) {
		return h.ListAudioDevices(), nil
	},
	bridge.CmdSetAudioInputDevice: with(func(_ context.Context, h *Host, a bridge.DeviceNameArgs) (any, error) {
		return nil, h.SetAudioInputDevice(a.Name)
	}),
	bridge.CmdSetAudioOutputDevice: with(func(_ context.Context, h *Host, a bridge.DeviceNameArgs) (any, error) {
		return nil, h.SetAudioOutputDevice(a.Name)
	}),
	bridge.CmdSetSoundVolume: with(func(_ context.Context, h *Host, a bridge.VolumeArgs) (any, error) {
		return nil, h.SetSoundVolume(a.Volume)
	}),
	bridge.CmdSetMicVolume: with(func(_ context.Context, h *Host, a bridge.VolumeArgs) (any, error) {
		return nil, h.SetMicVolume(a.Volume)
	}),
	bridge.CmdAddToSoundLibrary: with(func(_ context.Context, h *Host, a bridge.AddSoundArgs) (any, error) {
		return h.AddToSoundLibrary(a.FilePath, a.DisplayName)
	}),
	bridge.CmdAddToSoundLibraryTrimmed: with(func(_ context.Context, h *Host, a bridge.AddSoundArgs) (any, error) {
		return h.AddToSoundLibraryTrimmed(a.FilePath, a.DisplayName, a.StartMs, a.EndMs)
	}),
	bridge.CmdRemoveFromSoundLibrary: with(func(ctx context.Context, h *Host, a bridge.SoundIDArgs) (any, error) {
		return nil, h.RemoveFromSoundLibrary(ctx, a.SoundID)
	}),
	bridge.CmdRenameSound: with(func(_ context.Context, h *Host, a bridge.RenameSoundArgs) (any, error) {
		return nil, h.RenameSound(a.SoundID, a.NewName)
	}),
	bridge.CmdSetKeySound: with(func(ctx context.Context, h *Host, a bridge.KeySoundArgs) (any, error) {
		return nil, h.SetKeySound(ctx, a.KeyIndex, a.SoundID)
	}),
	bridge.CmdPreviewLibrarySound: with(func(_ context.Context, h *Host, a bridge.SoundIDArgs) (any, error) {
		return nil, h.PreviewLibrarySound(a.SoundID)
	}),
	bridge.CmdGetAudioDuration: with(func(_ context.Context, h *Host, a bridge.FilePathArgs) (any, error) {
		return h.GetAudioDuration(a.FilePath)
	}),
	bridge.CmdPreviewTrim: with(func(_ context.Context, h *Host, a bridge.TrimArgs) (any, error) {
		return nil, h.PreviewTrim(a.SourcePath, a.StartMs, a.EndMs)
	}),
}
