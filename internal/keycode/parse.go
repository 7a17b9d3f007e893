package keycode

import (
	"strconv"
	"strings"
)

var byLabel map[string]uint16

func init() {
	byLabel = make(map[string]uint16, len(catalog))
	for _, e := range catalog {
		byLabel[strings.ToLower(e.Label)] = e.Code
	}
}

// Parse reads a keycode written as hex ("0x0104"), a catalog label
// ("Volume Up"), or modifiers joined to a label ("Ctrl+Shift+A"). It is
// the inverse of Label for catalog codes and composites.
func Parse(s string) (uint16, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 16)
		return uint16(v), err == nil
	}
	if code, ok := byLabel[strings.ToLower(s)]; ok {
		return code, true
	}

	// Labels such as "KP +" contain a plus, so split from the left and stop
	// at the first part that is not a modifier name.
	var m Mods
	rest := s
	for {
		head, tail, found := strings.Cut(rest, "+")
		if !found || tail == "" {
			break
		}
		switch strings.ToLower(strings.TrimSpace(head)) {
		case "ctrl", "control":
			m.Ctrl = true
		case "shift":
			m.Shift = true
		case "alt":
			m.Alt = true
		case "gui", "super", "cmd", "win":
			m.GUI = true
		default:
			return 0, false
		}
		rest = tail
	}
	if !m.Any() {
		return 0, false
	}
	base, ok := byLabel[strings.ToLower(strings.TrimSpace(rest))]
	if !ok || base > 0xFF {
		return 0, false
	}
	return Compose(base, m), true
}
