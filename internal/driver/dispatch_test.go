package driver_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/driver"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Every command the bridge knows must have a handler.
func TestDispatcher_CoversBridgeCommands(t *testing.T) {
	want := []string{
		bridge.CmdConnect, bridge.CmdGetState, bridge.CmdSetKeyColor, bridge.CmdToggleSlot,
		bridge.CmdToggleKeySlot, bridge.CmdSetKeycode, bridge.CmdSetKeyOverride, bridge.CmdApplyColors,
		bridge.CmdDisableAllOverrides, bridge.CmdGetKeymap, bridge.CmdSaveCustom, bridge.CmdRestoreDefaults,
		bridge.CmdListProfiles, bridge.CmdSaveProfile, bridge.CmdLoadProfile, bridge.CmdDeleteProfile,
		bridge.CmdGetDeviceInfo, bridge.CmdDeviceIndication, bridge.CmdBootloaderJump, bridge.CmdEepromReset,
		bridge.CmdDynamicKeymapReset, bridge.CmdMacroReset, bridge.CmdGetRgbMatrix, bridge.CmdSetRgbBrightness,
		bridge.CmdSetRgbEffect, bridge.CmdSetRgbSpeed, bridge.CmdSetRgbColor, bridge.CmdSaveRgbMatrix,
		bridge.CmdListAudioDevices, bridge.CmdSetAudioInputDevice, bridge.CmdSetAudioOutputDevice,
		bridge.CmdSetSoundVolume, bridge.CmdSetMicVolume, bridge.CmdAddToSoundLibrary,
		bridge.CmdAddToSoundLibraryTrimmed, bridge.CmdRemoveFromSoundLibrary, bridge.CmdRenameSound,
		bridge.CmdSetKeySound, bridge.CmdPreviewLibrarySound, bridge.CmdGetAudioDuration, bridge.CmdPreviewTrim,
	}
	have := make(map[string]bool)
	for _, c := range driver.Commands() {
		have[c] = true
	}
	for _, c := range want {
		if !have[c] {
			t.Errorf("no handler for %q", c)
		}
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	r := newRig(t)
	d := driver.NewDispatcher(r.host)
	_, err := d.Dispatch(context.Background(), "frobnicate", nil)
	if !errors.Is(err, models.ErrNoSuchItem) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestDispatcher_BadArguments(t *testing.T) {
	r := newRig(t)
	d := driver.NewDispatcher(r.host)
	ctx := context.Background()
	if _, err := d.Dispatch(ctx, bridge.CmdSetKeyColor, json.RawMessage(`{"key_index":"x"}`)); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("malformed args err = %v", err)
	}
	if _, err := d.Dispatch(ctx, bridge.CmdSetRgbBrightness, json.RawMessage(`{"value":300}`)); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("out of range err = %v", err)
	}
}

// The typed bridge drives a real host through the in-process transport.
func TestDispatcher_ThroughLocalBridge(t *testing.T) {
	r := newRig(t)
	b := bridge.New(bridge.NewLocal(driver.NewDispatcher(r.host)))
	ctx := context.Background()

	ok, err := b.Connect(ctx)
	if err != nil || !ok {
		t.Fatalf("Connect = %v, %v", ok, err)
	}
	c := models.HsvColor{H: 9, S: 8, V: 7}
	if _, err := b.SetKeyOverride(ctx, 4, true); err != nil {
		t.Fatal(err)
	}
	if err := b.SetKeyColor(ctx, 4, models.SlotA, c); err != nil {
		t.Fatal(err)
	}
	if got := r.board.Override(4); got == nil || *got != c {
		t.Errorf("board override = %v", got)
	}
	s, err := b.GetState(ctx)
	if err != nil || !s.Connected || s.Keys[4].SlotA != c {
		t.Errorf("GetState = %+v, %v", s, err)
	}

	slots := make(chan models.ActiveSlot, 1)
	un, err := b.OnSlotToggled(ctx, func(s models.ActiveSlot) { slots <- s })
	if err != nil {
		t.Fatal(err)
	}
	defer un()
	r.host.PressToggle(ctx)
	if got := <-slots; got != models.SlotB {
		t.Errorf("slot event = %q", got)
	}

	r.board.SetPlugged(false)
	r.host.BootloaderJump(ctx)
	if err := b.EepromReset(ctx); !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("EepromReset err = %v, want ErrNotConnected", err)
	}
}
