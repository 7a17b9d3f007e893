package keycode_test

import (
	"testing"

	"github.com/churrosoft/deck8-hub-go/internal/keycode"
)

func allMods() []keycode.Mods {
	var out []keycode.Mods
	for bits := 0; bits < 16; bits++ {
		out = append(out, keycode.Mods{
			Ctrl:  bits&1 != 0,
			Shift: bits&2 != 0,
			Alt:   bits&4 != 0,
			GUI:   bits&8 != 0,
		})
	}
	return out
}

func TestComposeDecomposeIdentity(t *testing.T) {
	for base := uint16(0); base <= 0xFF; base++ {
		for _, m := range allMods() {
			got := keycode.Decompose(keycode.Compose(base, m))
			want := keycode.Decoded{Base: base, Mods: m}
			if got != want {
				t.Fatalf("Decompose(Compose(0x%02X, %+v)) = %+v", base, m, got)
			}
		}
	}
}

func TestBareCodeStable(t *testing.T) {
	for _, e := range keycode.Catalog() {
		if got := keycode.Compose(e.Code, keycode.Mods{}); got != e.Code {
			t.Errorf("Compose(0x%04X, none) = 0x%04X", e.Code, got)
		}
	}
}

func TestDecomposeOutsideBand(t *testing.T) {
	for _, code := range []uint16{0x0000, 0x0004, 0x00FF, 0x2000, keycode.QKBoot, 0x7820} {
		d := keycode.Decompose(code)
		if d.Base != code || d.Mods.Any() {
			t.Errorf("Decompose(0x%04X) = %+v, want bare code", code, d)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		code uint16
		want string
	}{
		{0x0004, "A"},
		{0x0000, "None"},
		{keycode.QKBoot, "Bootloader"},
		{0x7820, "RGB Toggle"},
		{0x00A9, "Volume Up"},
		{0x0104, "Ctrl+A"},
		{0x0F04, "Ctrl+Shift+Alt+GUI+A"},
		{0x0A28, "Shift+GUI+Enter"},
		{0x071E, "Ctrl+Shift+Alt+1"},
		{0x0164, "0x0164"},
		{0x5D00, "0x5D00"},
		{0xFFFF, "0xFFFF"},
	}
	for _, tc := range tests {
		if got := keycode.Label(tc.code); got != tc.want {
			t.Errorf("Label(0x%04X) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestFromKeyEvent(t *testing.T) {
	tests := []struct {
		code string
		want uint16
		ok   bool
	}{
		{"KeyA", 0x04, true},
		{"KeyZ", 0x1D, true},
		{"Digit1", 0x1E, true},
		{"Digit0", 0x27, true},
		{"F12", 0x45, true},
		{"F13", 0x68, true},
		{"Space", 0x2C, true},
		{"ArrowUp", 0x52, true},
		{"ControlLeft", 0, false},
		{"ShiftRight", 0, false},
		{"AltLeft", 0, false},
		{"MetaLeft", 0, false},
		{"Fn", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := keycode.FromKeyEvent(tc.code)
		if ok != tc.ok || got != tc.want {
			t.Errorf("FromKeyEvent(%q) = 0x%04X, %v; want 0x%04X, %v", tc.code, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCapture(t *testing.T) {
	got, ok := keycode.Capture("KeyM", keycode.Mods{Ctrl: true, Alt: true})
	if !ok || got != 0x0510 {
		t.Errorf("Capture(Ctrl+Alt+M) = 0x%04X, %v", got, ok)
	}
	if _, ok := keycode.Capture("ControlLeft", keycode.Mods{Ctrl: true}); ok {
		t.Error("modifier-only capture should produce nothing")
	}
}

func TestShortcut(t *testing.T) {
	tests := []struct {
		code uint16
		want string
		ok   bool
	}{
		{0x0510, "Ctrl+Alt+M", true},
		{0x071E, "Ctrl+Shift+Alt+1", true},
		{0x0827, "Super+0", true},
		{0x013A, "Ctrl+F1", true},
		{0x1145, "Ctrl+F12", true},
		{0x0229, "Shift+Escape", true},
		{0x0010, "", false},
		{0x0100, "", false},
		{0x0150, "", false},
	}
	for _, tc := range tests {
		got, ok := keycode.Shortcut(tc.code)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Shortcut(0x%04X) = %q, %v; want %q, %v", tc.code, got, ok, tc.want, tc.ok)
		}
	}
}

func TestInternal(t *testing.T) {
	for led := 0; led < 8; led++ {
		if !keycode.IsInternal(keycode.Internal(led)) {
			t.Errorf("Internal(%d) not recognised", led)
		}
	}
	if keycode.IsInternal(0x071D) || keycode.IsInternal(0x0726) {
		t.Error("IsInternal matched outside range")
	}
}

func TestCatalogCategories(t *testing.T) {
	for _, c := range []keycode.Category{keycode.Basic, keycode.Multimedia, keycode.Mouse, keycode.Special, keycode.Lighting} {
		if len(keycode.ByCategory(c)) == 0 {
			t.Errorf("category %q is empty", c)
		}
	}
	seen := map[uint16]bool{}
	for _, e := range keycode.Catalog() {
		if seen[e.Code] {
			t.Errorf("duplicate catalog code 0x%04X", e.Code)
		}
		seen[e.Code] = true
	}
}
