package keycode

import (
	"fmt"
	"strings"
)

// Modifier bits. They sit above the base code in the 0x0100-0x1FFF band.
const (
	ModCtrl  uint16 = 0x0100
	ModShift uint16 = 0x0200
	ModAlt   uint16 = 0x0400
	ModGUI   uint16 = 0x0800
	// ModRight marks right-hand modifiers. Labels ignore it.
	ModRight uint16 = 0x1000

	modBandLow  uint16 = 0x0100
	modBandHigh uint16 = 0x1FFF
)

// Mods is the set of modifier flags on a composite keycode.
type Mods struct {
	Ctrl  bool `json:"ctrl"`
	Shift bool `json:"shift"`
	Alt   bool `json:"alt"`
	GUI   bool `json:"gui"`
}

// Any reports whether at least one modifier is set.
func (m Mods) Any() bool { return m.Ctrl || m.Shift || m.Alt || m.GUI }

func (m Mods) bits() uint16 {
	var b uint16
	if m.Ctrl {
		b |= ModCtrl
	}
	if m.Shift {
		b |= ModShift
	}
	if m.Alt {
		b |= ModAlt
	}
	if m.GUI {
		b |= ModGUI
	}
	return b
}

// Decoded is a keycode split into its base code and modifiers.
type Decoded struct {
	Base uint16 `json:"base"`
	Mods Mods   `json:"mods"`
}

// Compose packs modifiers onto a base code. With no modifiers the base
// code is returned unchanged.
func Compose(base uint16, m Mods) uint16 {
	if !m.Any() {
		return base
	}
	return m.bits() | (base & 0xFF)
}

// Decompose splits a keycode. Codes outside the modifier band come back
// as the base code with no modifiers.
func Decompose(code uint16) Decoded {
	if code < modBandLow || code > modBandHigh {
		return Decoded{Base: code}
	}
	return Decoded{
		Base: code & 0xFF,
		Mods: Mods{
			Ctrl:  code&ModCtrl != 0,
			Shift: code&ModShift != 0,
			Alt:   code&ModAlt != 0,
			GUI:   code&ModGUI != 0,
		},
	}
}

// Label renders a keycode for display. Catalog hits use the catalog label,
// composites render as "Ctrl+Shift+Alt+GUI+Base" and anything else falls
// back to "0x%04X".
func Label(code uint16) string {
	if e, ok := byCode[code]; ok {
		return e.Label
	}
	d := Decompose(code)
	if d.Mods.Any() {
		if base, ok := byCode[d.Base]; ok {
			return strings.Join(append(modNames(d.Mods, "GUI"), base.Label), "+")
		}
	}
	return Hex(code)
}

// Hex formats a keycode as zero-padded hex.
func Hex(code uint16) string {
	return fmt.Sprintf("0x%04X", code)
}

func modNames(m Mods, gui string) []string {
	var parts []string
	if m.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if m.Shift {
		parts = append(parts, "Shift")
	}
	if m.Alt {
		parts = append(parts, "Alt")
	}
	if m.GUI {
		parts = append(parts, gui)
	}
	return parts
}

// Shortcut converts a modified keycode into a global shortcut string such
// as "Ctrl+Alt+M". Only letters, digits, Enter, Escape, Space and F1-F12
// are representable; anything else, or a code without modifiers, reports false.
func Shortcut(code uint16) (string, bool) {
	mods := uint8(code >> 8)
	basic := uint8(code)
	if mods == 0 || basic == 0 {
		return "", false
	}

	var key string
	switch {
	case basic >= 0x04 && basic <= 0x1D:
		key = string(rune('A' + basic - 0x04))
	case basic >= 0x1E && basic <= 0x26:
		key = string(rune('1' + basic - 0x1E))
	case basic == 0x27:
		key = "0"
	case basic == 0x28:
		key = "Enter"
	case basic == 0x29:
		key = "Escape"
	case basic == 0x2C:
		key = "Space"
	case basic >= 0x3A && basic <= 0x45:
		key = fkey(int(basic-0x3A) + 1)
	default:
		return "", false
	}

	// Left and right variants both count.
	m := Mods{
		Ctrl:  mods&0x11 != 0,
		Shift: mods&0x22 != 0,
		Alt:   mods&0x44 != 0,
		GUI:   mods&0x88 != 0,
	}
	return strings.Join(append(modNames(m, "Super"), key), "+"), true
}

// InternalBase is Ctrl+Shift+Alt+1. Keys that carry a sound but no user
// keycode get InternalBase+led so the host can recognise the press.
const InternalBase uint16 = 0x071E

// Internal returns the internal keycode for an LED index.
func Internal(led int) uint16 { return InternalBase + uint16(led) }

// IsInternal reports whether code is one of the eight internal keycodes.
func IsInternal(code uint16) bool {
	return code >= InternalBase && code < InternalBase+8
}
