package keycode

// physical maps DOM KeyboardEvent.code values to base keycodes.
var physical = map[string]uint16{
	"Enter": 0x28, "Escape": 0x29, "Backspace": 0x2A, "Tab": 0x2B,
	"Space": 0x2C, "Minus": 0x2D, "Equal": 0x2E, "BracketLeft": 0x2F,
	"BracketRight": 0x30, "Backslash": 0x31, "Semicolon": 0x33,
	"Quote": 0x34, "Backquote": 0x35, "Comma": 0x36, "Period": 0x37,
	"Slash": 0x38, "CapsLock": 0x39,
	"PrintScreen": 0x46, "ScrollLock": 0x47, "Pause": 0x48,
	"Insert": 0x49, "Home": 0x4A, "PageUp": 0x4B, "Delete": 0x4C,
	"End": 0x4D, "PageDown": 0x4E,
	"ArrowRight": 0x4F, "ArrowLeft": 0x50, "ArrowDown": 0x51, "ArrowUp": 0x52,
	"NumLock": 0x53, "NumpadDivide": 0x54, "NumpadMultiply": 0x55,
	"NumpadSubtract": 0x56, "NumpadAdd": 0x57, "NumpadEnter": 0x58,
	"Numpad0": 0x62, "NumpadDecimal": 0x63, "ContextMenu": 0x65,
	"AudioVolumeMute": 0xA8, "AudioVolumeUp": 0xA9, "AudioVolumeDown": 0xAA,
	"MediaTrackNext": 0xAB, "MediaTrackPrevious": 0xAC, "MediaStop": 0xAD,
	"MediaPlayPause": 0xAE,
}

// pureModifiers never produce output on their own.
var pureModifiers = map[string]bool{
	"ControlLeft": true, "ControlRight": true,
	"ShiftLeft": true, "ShiftRight": true,
	"AltLeft": true, "AltRight": true,
	"MetaLeft": true, "MetaRight": true,
	"OSLeft": true, "OSRight": true,
}

func init() {
	for i := 0; i < 26; i++ {
		physical["Key"+string(rune('A'+i))] = KCA + uint16(i)
	}
	for i := 1; i <= 9; i++ {
		physical["Digit"+string(rune('0'+i))] = KC1 + uint16(i-1)
		physical["Numpad"+string(rune('0'+i))] = 0x59 + uint16(i-1)
	}
	physical["Digit0"] = KC0
	for i := 1; i <= 12; i++ {
		physical[fkey(i)] = KCF1 + uint16(i-1)
		physical[fkey(i+12)] = 0x68 + uint16(i-1)
	}
}

// FromKeyEvent translates a physical key code (DOM "KeyA", "Digit1", ...)
// to a base keycode. Modifier-only presses and unmapped codes report false.
func FromKeyEvent(code string) (uint16, bool) {
	if pureModifiers[code] {
		return 0, false
	}
	kc, ok := physical[code]
	return kc, ok
}

// Capture translates a key press with held modifiers into a keycode.
func Capture(code string, m Mods) (uint16, bool) {
	base, ok := FromKeyEvent(code)
	if !ok {
		return 0, false
	}
	return Compose(base, m), true
}
