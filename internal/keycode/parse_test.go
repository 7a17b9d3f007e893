package keycode_test

import (
	"testing"

	"github.com/churrosoft/deck8-hub-go/internal/keycode"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
		ok   bool
	}{
		{"0x0104", 0x0104, true},
		{"0X7C00", 0x7C00, true},
		{"A", keycode.KCA, true},
		{"volume up", 0xA9, true},
		{"Ctrl+A", 0x0104, true},
		{"ctrl+shift+alt+1", keycode.InternalBase, true},
		{"Super+F1", keycode.ModGUI | keycode.KCF1, true},
		{"Ctrl+KP +", keycode.ModCtrl | 0x57, true},
		{"KP +", 0x57, true},
		{"", 0, false},
		{"0xZZ", 0, false},
		{"Hyper+A", 0, false},
		{"Ctrl+", 0, false},
		{"Ctrl+Bootloader", 0, false},
		{"NotAKey", 0, false},
	}
	for _, tt := range tests {
		got, ok := keycode.Parse(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Parse(%q) = 0x%04X, %v; want 0x%04X, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseInvertsLabel(t *testing.T) {
	for _, e := range keycode.Catalog() {
		got, ok := keycode.Parse(keycode.Label(e.Code))
		if !ok || got != e.Code {
			t.Errorf("Parse(Label(0x%04X)) = 0x%04X, %v", e.Code, got, ok)
		}
	}
	for _, code := range []uint16{0x0104, 0x071E, 0x0F3A} {
		if got, ok := keycode.Parse(keycode.Label(code)); !ok || got != code {
			t.Errorf("Parse(Label(0x%04X)) = 0x%04X, %v", code, got, ok)
		}
	}
}
