package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/color"
	"github.com/churrosoft/deck8-hub-go/internal/driver"
	"github.com/churrosoft/deck8-hub-go/internal/engine"
	"github.com/churrosoft/deck8-hub-go/internal/keycode"
	"github.com/churrosoft/deck8-hub-go/internal/models"
	"github.com/churrosoft/deck8-hub-go/internal/notify"
	"github.com/churrosoft/deck8-hub-go/internal/store"
)

type cli struct {
	host   *driver.Host
	engine *engine.Engine
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	sounds, err := driver.NewSoundDir(filepath.Join(dir, "sounds"))
	if err != nil {
		t.Fatal(err)
	}
	board := driver.NewBoard()
	host, err := driver.NewHost(driver.Options{
		Open:     board.Open,
		Store:    store.NewMemStore(),
		Profiles: store.NewProfileStore(filepath.Join(dir, "profiles")),
		Sounds:   sounds,
	})
	if err != nil {
		t.Fatalf("driver.NewHost: %v", err)
	}
	e := engine.New(engine.Options{
		Bridge:   bridge.New(bridge.NewLocal(driver.NewDispatcher(host))),
		Notifier: &notify.Recorder{},
	})
	e.Init(context.Background())
	t.Cleanup(func() {
		e.Close()
		_ = host.Close()
	})
	return &cli{host: host, engine: e}
}

// exec runs one command line and returns what it printed.
func (c *cli) exec(t *testing.T, asJSON bool, line string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := run(context.Background(), c.engine, strings.Fields(line), newPrinter(&buf, asJSON))
	c.engine.Flush()
	return buf.String(), err
}

func (c *cli) mustExec(t *testing.T, asJSON bool, line string) string {
	t.Helper()
	out, err := c.exec(t, asJSON, line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return out
}

func TestLookup(t *testing.T) {
	tests := []struct {
		args []string
		name string
		rest []string
		ok   bool
	}{
		{[]string{"state"}, "state", nil, true},
		{[]string{"profile", "load", "gaming"}, "profile load", []string{"gaming"}, true},
		{[]string{"color", "0", "A", "#fff"}, "color", []string{"0", "A", "#fff"}, true},
		{[]string{"profile"}, "", nil, false},
		{[]string{"bogus"}, "", nil, false},
		{nil, "", nil, false},
	}
	for _, tt := range tests {
		c, rest, ok := lookup(tt.args)
		if ok != tt.ok || c.name != tt.name || len(rest) != len(tt.rest) {
			t.Errorf("lookup(%q) = %q, %q, %v; want %q, %q, %v", tt.args, c.name, rest, ok, tt.name, tt.rest, tt.ok)
		}
	}
}

func TestRunUsage(t *testing.T) {
	c := newCLI(t)
	if _, err := c.exec(t, false, "keycode 1"); err == nil || !strings.Contains(err.Error(), "usage: deck8 keycode") {
		t.Errorf("err = %v, want usage", err)
	}
	if _, err := c.exec(t, false, "frobnicate"); err == nil {
		t.Error("unknown command should fail")
	}
}

func TestRunInvalidInput(t *testing.T) {
	c := newCLI(t)
	for _, line := range []string{
		"color 9 A #ff0000",
		"color 0 C #ff0000",
		"color 0 A nothex",
		"keycode 0 notakey",
		"override 0 maybe",
		"rgb brightness 300",
		"audio sound-volume loud",
	} {
		if _, err := c.exec(t, false, line); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want invalid input", line, err)
		}
	}
}

func TestToggleAndState(t *testing.T) {
	c := newCLI(t)
	out := c.mustExec(t, false, "toggle")
	if !strings.Contains(out, "active slot: B") {
		t.Errorf("toggle output = %q", out)
	}
	if got := c.host.State().ActiveSlot; got != models.SlotB {
		t.Errorf("host slot = %s, want B", got)
	}

	var s models.StateSnapshot
	if err := json.Unmarshal([]byte(c.mustExec(t, true, "state")), &s); err != nil {
		t.Fatal(err)
	}
	if !s.Connected || s.ActiveSlot != models.SlotB {
		t.Errorf("state = connected %v slot %s", s.Connected, s.ActiveSlot)
	}

	text := c.mustExec(t, false, "state")
	for _, want := range []string{"connected:", "active slot:", "KEY", "OVERRIDE"} {
		if !strings.Contains(text, want) {
			t.Errorf("state output missing %q:\n%s", want, text)
		}
	}
}

func TestColorReachesHost(t *testing.T) {
	c := newCLI(t)
	c.mustExec(t, false, "color 3 B #00ff00")
	want, _ := color.HexToHSV("#00ff00")
	if got := c.host.State().Keys[3].SlotB; got != want {
		t.Errorf("host key 3 slot B = %+v, want %+v", got, want)
	}
}

func TestKeycodeAndOverride(t *testing.T) {
	c := newCLI(t)
	c.mustExec(t, false, "keycode 2 ctrl+A")
	if got := c.host.State().Keymaps[models.LEDToKeymap(2)]; got != 0x0104 {
		t.Errorf("keymap = 0x%04X, want 0x0104", got)
	}
	c.mustExec(t, false, "keycode 2 0x002C")
	if got := c.host.State().Keymaps[models.LEDToKeymap(2)]; got != keycode.KCSpace {
		t.Errorf("keymap = 0x%04X, want space", got)
	}

	c.mustExec(t, false, "override 5 off")
	if c.host.State().Keys[5].OverrideEnabled {
		t.Error("override still enabled")
	}
	c.mustExec(t, false, "override 5 on")
	if !c.host.State().Keys[5].OverrideEnabled {
		t.Error("override not enabled")
	}
}

func TestProfiles(t *testing.T) {
	c := newCLI(t)
	c.mustExec(t, false, "profile save work")
	var names []string
	if err := json.Unmarshal([]byte(c.mustExec(t, true, "profile list")), &names); err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "work" {
		t.Errorf("profiles = %q", names)
	}
	c.mustExec(t, false, "profile delete work")
	if out := c.mustExec(t, false, "profile list"); strings.TrimSpace(out) != "" {
		t.Errorf("profile list after delete = %q", out)
	}
	if _, err := c.exec(t, false, "profile load missing"); err == nil {
		t.Error("loading a missing profile should fail")
	}
}

func TestRgb(t *testing.T) {
	c := newCLI(t)
	c.mustExec(t, false, "rgb brightness 40")
	var rgb models.RgbMatrixState
	if err := json.Unmarshal([]byte(c.mustExec(t, true, "rgb show")), &rgb); err != nil {
		t.Fatal(err)
	}
	if rgb.Brightness != 40 {
		t.Errorf("brightness = %d, want 40", rgb.Brightness)
	}
}

func TestDeviceInfo(t *testing.T) {
	c := newCLI(t)
	out := c.mustExec(t, false, "device info")
	if !strings.Contains(out, "firmware:") || !strings.Contains(out, "0x00010200") {
		t.Errorf("device info = %q", out)
	}
}

func TestOKOutput(t *testing.T) {
	c := newCLI(t)
	if out := c.mustExec(t, false, "apply"); out != "" {
		t.Errorf("text output = %q, want empty", out)
	}
	if out := c.mustExec(t, true, "apply"); strings.TrimSpace(out) != `{
  "ok": true
}` {
		t.Errorf("json output = %q", out)
	}
}

func TestListKeycodes(t *testing.T) {
	var buf bytes.Buffer
	if err := listKeycodes(newPrinter(&buf, true), []string{"Lighting"}); err != nil {
		t.Fatal(err)
	}
	var got []keycode.Entry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Fatal("no lighting entries")
	}
	for _, e := range got {
		if e.Category != keycode.Lighting {
			t.Errorf("entry %+v outside lighting", e)
		}
	}
	if err := listKeycodes(newPrinter(&buf, false), []string{"nope"}); err == nil {
		t.Error("unknown category should fail")
	}
}

func TestOptional(t *testing.T) {
	if optional("-") != nil || optional("") != nil {
		t.Error("dash and empty should be nil")
	}
	if p := optional("Speakers"); p == nil || *p != "Speakers" {
		t.Errorf("optional = %v", p)
	}
}
