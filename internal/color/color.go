// Package color converts between the device's 0-255 HSV encoding and
// display RGB / hex strings.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// RGB is an 8-bit display color.
type RGB struct {
	R, G, B uint8
}

// Hex formats c as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HueDegrees maps a device hue (0-255) to degrees.
func HueDegrees(h uint8) float64 {
	return float64(h) * 360.0 / 256.0
}

// HSVToRGB converts a device color to display RGB.
func HSVToRGB(c models.HsvColor) RGB {
	v := float64(c.V) / 255.0
	if c.S == 0 {
		return RGB{c.V, c.V, c.V}
	}
	s := float64(c.S) / 255.0
	hue := HueDegrees(c.H)

	chroma := v * s
	x := chroma * (1 - math.Abs(math.Mod(hue/60.0, 2)-1))
	m := v - chroma

	var r, g, b float64
	switch {
	case hue < 60:
		r, g, b = chroma, x, 0
	case hue < 120:
		r, g, b = x, chroma, 0
	case hue < 180:
		r, g, b = 0, chroma, x
	case hue < 240:
		r, g, b = 0, x, chroma
	case hue < 300:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}
	return RGB{to8(r + m), to8(g + m), to8(b + m)}
}

// RGBToHSV converts display RGB to the device encoding. Achromatic colors
// get hue 0 and saturation 0.
func RGBToHSV(c RGB) models.HsvColor {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	maxc := math.Max(r, math.Max(g, b))
	minc := math.Min(r, math.Min(g, b))
	d := maxc - minc

	out := models.HsvColor{V: uint8(maxc)}
	if maxc == 0 || d == 0 {
		return out
	}
	out.S = uint8(math.Round(d * 255 / maxc))

	var hue float64
	switch maxc {
	case r:
		hue = 60 * math.Mod((g-b)/d, 6)
	case g:
		hue = 60 * ((b-r)/d + 2)
	default:
		hue = 60 * ((r-g)/d + 4)
	}
	if hue < 0 {
		hue += 360
	}
	out.H = uint8(int(math.Round(hue*256/360)) % 256)
	return out
}

// HSVToHex converts a device color to "#rrggbb".
func HSVToHex(c models.HsvColor) string {
	return HSVToRGB(c).Hex()
}

// ParseHex parses "#rrggbb", "rrggbb", "#rgb" or "rgb" (any case).
func ParseHex(s string) (RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{uint8(n >> 16), uint8(n >> 8), uint8(n)}, true
}

// HexToHSV parses a hex color into the device encoding. Malformed input
// reports false and must not be sent to the device.
func HexToHSV(s string) (models.HsvColor, bool) {
	rgb, ok := ParseHex(s)
	if !ok {
		return models.HsvColor{}, false
	}
	return RGBToHSV(rgb), true
}

// SatGradient returns the endpoints of a saturation slider for hue h.
// Display only, both ends are drawn at a fixed V=200 whatever the key's
// actual brightness.
func SatGradient(h uint8) [2]string {
	return [2]string{
		HSVToHex(models.HsvColor{H: h, S: 0, V: 200}),
		HSVToHex(models.HsvColor{H: h, S: 255, V: 200}),
	}
}

// ValGradient returns the endpoints of a brightness slider. Display only,
// the high end is fixed at V=200 so the preview stays readable.
func ValGradient(h, s uint8) [2]string {
	return [2]string{"#000000", HSVToHex(models.HsvColor{H: h, S: s, V: 200})}
}

func to8(f float64) uint8 {
	v := math.Round(f * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
