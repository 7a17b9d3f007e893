// Package keycode encodes and labels QMK keycodes as used by the Deck-8
// firmware: a static catalog of base codes, modifier bit-packing, label
// rendering and translation from physical key events.
package keycode

import "sort"

// Category groups catalog entries for pickers.
type Category string

const (
	Basic      Category = "basic"
	Multimedia Category = "multimedia"
	Mouse      Category = "mouse"
	Special    Category = "special"
	Lighting   Category = "lighting"
)

// Entry is one catalog keycode.
type Entry struct {
	Code     uint16   `json:"code"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
}

// Well-known codes.
const (
	KCNo       uint16 = 0x0000
	KCTrns     uint16 = 0x0001
	KCA        uint16 = 0x0004
	KC1        uint16 = 0x001E
	KC0        uint16 = 0x0027
	KCEnter    uint16 = 0x0028
	KCEscape   uint16 = 0x0029
	KCSpace    uint16 = 0x002C
	KCF1       uint16 = 0x003A
	KCF12      uint16 = 0x0045
	QKBoot     uint16 = 0x7C00
	QKClearMem uint16 = 0x7C03
)

var catalog []Entry

var byCode map[uint16]Entry

func init() {
	add := func(cat Category, code uint16, label string) {
		catalog = append(catalog, Entry{Code: code, Label: label, Category: cat})
	}

	add(Special, KCNo, "None")
	add(Special, KCTrns, "Transparent")

	for i := uint16(0); i < 26; i++ {
		add(Basic, KCA+i, string(rune('A'+i)))
	}
	for i := uint16(0); i < 9; i++ {
		add(Basic, KC1+i, string(rune('1'+i)))
	}
	add(Basic, KC0, "0")

	for _, e := range []struct {
		code  uint16
		label string
	}{
		{0x28, "Enter"}, {0x29, "Esc"}, {0x2A, "Backspace"}, {0x2B, "Tab"},
		{0x2C, "Space"}, {0x2D, "-"}, {0x2E, "="}, {0x2F, "["}, {0x30, "]"},
		{0x31, "\\"}, {0x33, ";"}, {0x34, "'"}, {0x35, "`"}, {0x36, ","},
		{0x37, "."}, {0x38, "/"}, {0x39, "Caps Lock"},
		{0x46, "Print Screen"}, {0x47, "Scroll Lock"}, {0x48, "Pause"},
		{0x49, "Insert"}, {0x4A, "Home"}, {0x4B, "Page Up"}, {0x4C, "Delete"},
		{0x4D, "End"}, {0x4E, "Page Down"}, {0x4F, "Right"}, {0x50, "Left"},
		{0x51, "Down"}, {0x52, "Up"}, {0x53, "Num Lock"},
		{0x54, "KP /"}, {0x55, "KP *"}, {0x56, "KP -"}, {0x57, "KP +"},
		{0x58, "KP Enter"}, {0x62, "KP 0"}, {0x63, "KP ."},
		{0x65, "Menu"},
		{0xE0, "Left Ctrl"}, {0xE1, "Left Shift"}, {0xE2, "Left Alt"}, {0xE3, "Left GUI"},
		{0xE4, "Right Ctrl"}, {0xE5, "Right Shift"}, {0xE6, "Right Alt"}, {0xE7, "Right GUI"},
	} {
		add(Basic, e.code, e.label)
	}
	for i := uint16(0); i < 9; i++ {
		add(Basic, 0x59+i, "KP "+string(rune('1'+i)))
	}
	for i := uint16(0); i < 12; i++ {
		add(Basic, KCF1+i, fkey(int(i)+1))
	}
	for i := uint16(0); i < 12; i++ {
		add(Basic, 0x68+i, fkey(int(i)+13))
	}

	for i, label := range []string{
		"Power", "Sleep", "Wake", "Mute", "Volume Up", "Volume Down",
		"Next Track", "Previous Track", "Stop", "Play/Pause", "Media Select",
		"Eject", "Mail", "Calculator", "My Computer", "Search", "Browser Home",
		"Browser Back", "Browser Forward", "Browser Stop", "Browser Refresh",
		"Bookmarks", "Fast Forward", "Rewind", "Brightness Up", "Brightness Down",
	} {
		add(Multimedia, 0xA5+uint16(i), label)
	}

	for i, label := range []string{
		"Mouse Up", "Mouse Down", "Mouse Left", "Mouse Right",
		"Mouse Button 1", "Mouse Button 2", "Mouse Button 3", "Mouse Button 4",
		"Mouse Button 5", "Mouse Button 6", "Mouse Button 7", "Mouse Button 8",
		"Wheel Up", "Wheel Down", "Wheel Left", "Wheel Right",
		"Mouse Accel 0", "Mouse Accel 1", "Mouse Accel 2",
	} {
		add(Mouse, 0xCD+uint16(i), label)
	}

	add(Special, QKBoot, "Bootloader")
	add(Special, 0x7C01, "Reboot")
	add(Special, 0x7C02, "Debug Toggle")
	add(Special, QKClearMem, "Clear EEPROM")

	for i, label := range []string{
		"RGB Toggle", "RGB Mode +", "RGB Mode -", "Hue +", "Hue -",
		"Saturation +", "Saturation -", "Brightness +", "Brightness -",
		"Speed +", "Speed -",
	} {
		add(Lighting, 0x7820+uint16(i), label)
	}

	sort.SliceStable(catalog, func(i, j int) bool { return catalog[i].Code < catalog[j].Code })
	byCode = make(map[uint16]Entry, len(catalog))
	for _, e := range catalog {
		byCode[e.Code] = e
	}
}

func fkey(n int) string {
	if n < 10 {
		return "F" + string(rune('0'+n))
	}
	return "F" + string(rune('0'+n/10)) + string(rune('0'+n%10))
}

// Catalog returns every known base keycode ordered by code.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// ByCategory returns the catalog entries in one category.
func ByCategory(c Category) []Entry {
	var out []Entry
	for _, e := range catalog {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the catalog entry for an exact code.
func Lookup(code uint16) (Entry, bool) {
	e, ok := byCode[code]
	return e, ok
}
