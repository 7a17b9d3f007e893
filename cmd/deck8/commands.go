package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/churrosoft/deck8-hub-go/internal/engine"
	"github.com/churrosoft/deck8-hub-go/internal/keycode"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// command is one CLI verb. name may be two words ("profile load").
type command struct {
	name  string
	usage string
	help  string
	nargs int
	run   func(ctx context.Context, e *engine.Engine, args []string, p *printer) error
}

func commandList() []command {
	return []command{
		{"state", "state", "print the current state", 0, runState},
		{"connect", "connect", "reconnect to the Deck-8", 0, runConnect},
		{"watch", "watch", "print every state change until interrupted", 0, runWatch},

		{"color", "color <key> <A|B> <#rrggbb>", "set a key color in one slot", 3, runColor},
		{"toggle", "toggle", "flip the global slot", 0, runToggle},
		{"toggle-key", "toggle-key <key>", "flip one key's slot", 1, runToggleKey},
		{"keycode", "keycode <key> <code>", "remap a key (0x0004, A, ctrl+shift+F1)", 2, runKeycode},
		{"override", "override <key> on|off", "enable or disable a key's color override", 2, runOverride},
		{"apply", "apply", "push every key color to the device", 0, simple((*engine.Engine).ApplyColors)},
		{"overrides-off", "overrides-off", "disable every color override", 0, simple((*engine.Engine).DisableAllOverrides)},
		{"keymap", "keymap", "re-read the keymap from the device", 0, runKeymap},
		{"save", "save", "persist colors to device EEPROM", 0, simple((*engine.Engine).SaveCustom)},
		{"defaults", "defaults", "restore factory colors", 0, simple((*engine.Engine).RestoreDefaults)},

		{"profile list", "profile list", "list saved profiles", 0, runProfileList},
		{"profile save", "profile save <name>", "save the current setup as a profile", 1, named((*engine.Engine).SaveProfile)},
		{"profile load", "profile load <name>", "load a profile", 1, named((*engine.Engine).LoadProfile)},
		{"profile delete", "profile delete <name>", "delete a profile", 1, named((*engine.Engine).DeleteProfile)},

		{"device info", "device info", "print firmware information", 0, runDeviceInfo},
		{"device indicate", "device indicate", "blink the device", 0, simple((*engine.Engine).DeviceIndication)},
		{"device bootloader", "device bootloader", "reboot into the bootloader", 0, simple((*engine.Engine).BootloaderJump)},
		{"device eeprom-reset", "device eeprom-reset", "reset the device EEPROM", 0, simple((*engine.Engine).EepromReset)},
		{"device keymap-reset", "device keymap-reset", "reset the keymap to firmware defaults", 0, simple((*engine.Engine).DynamicKeymapReset)},
		{"device macro-reset", "device macro-reset", "clear every macro", 0, simple((*engine.Engine).MacroReset)},

		{"rgb show", "rgb show", "print the underglow settings", 0, runRgbShow},
		{"rgb brightness", "rgb brightness <0-255>", "set underglow brightness", 1, rgbByte((*engine.Engine).SetRgbBrightness)},
		{"rgb effect", "rgb effect <0-255>", "set underglow effect", 1, rgbByte((*engine.Engine).SetRgbEffect)},
		{"rgb speed", "rgb speed <0-255>", "set underglow speed", 1, rgbByte((*engine.Engine).SetRgbSpeed)},
		{"rgb color", "rgb color <h> <s>", "set underglow hue and saturation", 2, runRgbColor},
		{"rgb save", "rgb save", "persist underglow settings", 0, simple((*engine.Engine).SaveRgbMatrix)},

		{"audio devices", "audio devices", "list audio devices", 0, runAudioDevices},
		{"audio input", "audio input <name|->", "select the microphone (- for default)", 1, deviceName((*engine.Engine).SetAudioInputDevice)},
		{"audio output", "audio output <name|->", "select the speaker (- for default)", 1, deviceName((*engine.Engine).SetAudioOutputDevice)},
		{"audio sound-volume", "audio sound-volume <0-1>", "set soundboard volume", 1, volume((*engine.Engine).SetSoundVolume)},
		{"audio mic-volume", "audio mic-volume <0-1>", "set microphone mix volume", 1, volume((*engine.Engine).SetMicVolume)},

		{"sound list", "sound list", "list the sound library", 0, runSoundList},
		{"sound add", "sound add <file> [name] [start-ms end-ms]", "add a sound, optionally trimmed", 1, runSoundAdd},
		{"sound rm", "sound rm <id>", "remove a sound", 1, named((*engine.Engine).RemoveFromSoundLibrary)},
		{"sound rename", "sound rename <id> <name>", "rename a sound", 2, runSoundRename},
		{"sound assign", "sound assign <key> <id|->", "assign a sound to a key (- to clear)", 2, runSoundAssign},
		{"sound preview", "sound preview <id>", "play a library sound", 1, named((*engine.Engine).PreviewLibrarySound)},
		{"sound duration", "sound duration <file>", "print a file's duration in ms", 1, runSoundDuration},
		{"sound trim-preview", "sound trim-preview <file> <start-ms> <end-ms>", "play part of a file", 3, runTrimPreview},
	}
}

// lookup finds the command for args, preferring the two-word form.
// It returns the remaining arguments.
func lookup(args []string) (command, []string, bool) {
	cmds := commandList()
	if len(args) >= 2 {
		name := args[0] + " " + args[1]
		for _, c := range cmds {
			if c.name == name {
				return c, args[2:], true
			}
		}
	}
	if len(args) >= 1 {
		for _, c := range cmds {
			if c.name == args[0] {
				return c, args[1:], true
			}
		}
	}
	return command{}, nil, false
}

// run executes one command line against e.
func run(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	c, rest, ok := lookup(args)
	if !ok {
		return fmt.Errorf("unknown command %q", strings.Join(args, " "))
	}
	if len(rest) < c.nargs {
		return fmt.Errorf("usage: deck8 %s", c.usage)
	}
	return c.run(ctx, e, rest, p)
}

func simple(fn func(*engine.Engine, context.Context) error) func(context.Context, *engine.Engine, []string, *printer) error {
	return func(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
		if err := fn(e, ctx); err != nil {
			return err
		}
		return p.ok()
	}
}

func named(fn func(*engine.Engine, context.Context, string) error) func(context.Context, *engine.Engine, []string, *printer) error {
	return func(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
		if err := fn(e, ctx, args[0]); err != nil {
			return err
		}
		return p.ok()
	}
}

func rgbByte(fn func(*engine.Engine, uint8)) func(context.Context, *engine.Engine, []string, *printer) error {
	return func(_ context.Context, e *engine.Engine, args []string, p *printer) error {
		v, err := parseByte(args[0])
		if err != nil {
			return err
		}
		fn(e, v)
		return p.ok()
	}
}

func deviceName(fn func(*engine.Engine, context.Context, *string) error) func(context.Context, *engine.Engine, []string, *printer) error {
	return func(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
		if err := fn(e, ctx, optional(args[0])); err != nil {
			return err
		}
		return p.ok()
	}
}

func volume(fn func(*engine.Engine, float32) error) func(context.Context, *engine.Engine, []string, *printer) error {
	return func(_ context.Context, e *engine.Engine, args []string, p *printer) error {
		v, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return fmt.Errorf("%w: volume %q", models.ErrInvalidInput, args[0])
		}
		if err := fn(e, float32(v)); err != nil {
			return err
		}
		return p.ok()
	}
}

func runState(_ context.Context, e *engine.Engine, _ []string, p *printer) error {
	return p.state(e.State())
}

func runConnect(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	ok, err := e.Connect(ctx)
	if err != nil {
		return err
	}
	return p.emit(map[string]bool{"connected": ok}, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "connected: %v\n", ok)
	})
}

func runWatch(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	const id = "deck8-cli"
	ch := e.Bus().Subscribe(id)
	defer e.Bus().Unsubscribe(id)
	if err := p.state(e.State()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-ch:
			if !ok {
				return nil
			}
			if err := p.state(s); err != nil {
				return err
			}
		}
	}
}

func runColor(_ context.Context, e *engine.Engine, args []string, p *printer) error {
	i, err := parseKey(args[0])
	if err != nil {
		return err
	}
	slot, err := models.ParseSlot(args[1])
	if err != nil {
		return err
	}
	if err := e.SetKeyColorHex(i, slot, args[2]); err != nil {
		return err
	}
	return p.ok()
}

func runToggle(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	slot, err := e.ToggleSlot(ctx)
	if err != nil {
		return err
	}
	return p.emit(map[string]models.ActiveSlot{"active_slot": slot}, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "active slot: %s\n", slot)
	})
}

func runToggleKey(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	i, err := parseKey(args[0])
	if err != nil {
		return err
	}
	if err := e.ToggleKeySlot(ctx, i); err != nil {
		return err
	}
	return p.ok()
}

func runKeycode(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	i, err := parseKey(args[0])
	if err != nil {
		return err
	}
	code, ok := keycode.Parse(args[1])
	if !ok {
		return fmt.Errorf("%w: unknown keycode %q", models.ErrInvalidInput, args[1])
	}
	if err := e.SetKeycode(ctx, i, code); err != nil {
		return err
	}
	return p.ok()
}

func runOverride(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	i, err := parseKey(args[0])
	if err != nil {
		return err
	}
	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("%w: expected on or off, got %q", models.ErrInvalidInput, args[1])
	}
	if err := e.SetKeyOverride(ctx, i, on); err != nil {
		return err
	}
	return p.ok()
}

func runKeymap(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	if err := e.RefreshKeymap(ctx); err != nil {
		return err
	}
	s := e.State()
	labels := make([]string, 0, models.NumKeys)
	for i := range s.Keys {
		labels = append(labels, fmt.Sprintf("%d %s", i, keycode.Label(s.Keymaps[models.LEDToKeymap(i)])))
	}
	if p.json {
		return p.emit(s.Keymaps, nil)
	}
	return p.names(labels)
}

func runProfileList(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	names, err := e.ListProfiles(ctx)
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return p.names(names)
}

func runDeviceInfo(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	info, err := e.RefreshDeviceInfo(ctx)
	if err != nil {
		return err
	}
	return p.deviceInfo(info)
}

func runRgbShow(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	rgb, err := e.RefreshRgbMatrix(ctx)
	if err != nil {
		return err
	}
	return p.rgb(rgb)
}

func runRgbColor(_ context.Context, e *engine.Engine, args []string, p *printer) error {
	h, err := parseByte(args[0])
	if err != nil {
		return err
	}
	s, err := parseByte(args[1])
	if err != nil {
		return err
	}
	e.SetRgbColor(h, s)
	return p.ok()
}

func runAudioDevices(ctx context.Context, e *engine.Engine, _ []string, p *printer) error {
	l, err := e.ListAudioDevices(ctx)
	if err != nil {
		return err
	}
	return p.audioDevices(l)
}

func runSoundList(_ context.Context, e *engine.Engine, _ []string, p *printer) error {
	return p.sounds(e.State())
}

func runSoundAdd(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	path := args[0]
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	var (
		entry models.SoundEntry
		err   error
	)
	switch len(args) {
	case 1, 2:
		entry, err = e.AddToSoundLibrary(ctx, path, name)
	case 4:
		var start, end uint64
		if start, err = parseMs(args[2]); err != nil {
			return err
		}
		if end, err = parseMs(args[3]); err != nil {
			return err
		}
		entry, err = e.AddToSoundLibraryTrimmed(ctx, path, name, start, end)
	default:
		return fmt.Errorf("usage: deck8 sound add <file> [name] [start-ms end-ms]")
	}
	if err != nil {
		return err
	}
	return p.sound(entry)
}

func runSoundRename(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	if err := e.RenameSound(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	return p.ok()
}

func runSoundAssign(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	i, err := parseKey(args[0])
	if err != nil {
		return err
	}
	if err := e.SetKeySound(ctx, i, optional(args[1])); err != nil {
		return err
	}
	return p.ok()
}

func runSoundDuration(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	ms, err := e.AudioDuration(ctx, args[0])
	if err != nil {
		return err
	}
	return p.emit(map[string]uint64{"duration_ms": ms}, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%d\n", ms)
	})
}

func runTrimPreview(ctx context.Context, e *engine.Engine, args []string, p *printer) error {
	start, err := parseMs(args[1])
	if err != nil {
		return err
	}
	end, err := parseMs(args[2])
	if err != nil {
		return err
	}
	if err := e.PreviewTrim(ctx, args[0], start, end); err != nil {
		return err
	}
	return p.ok()
}

func parseKey(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || !models.ValidKeyIndex(i) {
		return 0, fmt.Errorf("%w: key must be 0-%d, got %q", models.ErrInvalidInput, models.NumKeys-1, s)
	}
	return i, nil
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: expected 0-255, got %q", models.ErrInvalidInput, s)
	}
	return uint8(v), nil
}

func parseMs(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: expected milliseconds, got %q", models.ErrInvalidInput, s)
	}
	return v, nil
}

// optional maps "-" or "" to nil.
func optional(s string) *string {
	if s == "" || s == "-" {
		return nil
	}
	return models.StringPtr(s)
}
