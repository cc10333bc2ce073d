// Package color implements RGB color parsing and MIDI range conversion
// for controller feedback LEDs.
package color

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/padgrid/padgrid/internal/logx"
)

var log = logx.Get("color")

// RGB is a color in the full 0-255 range, as produced by parsing user
// configuration or computed by a device plugin before scaling to MIDI range.
type RGB struct {
	R, G, B uint8
}

// Named holds the built-in color palette, matching names a user may
// reference in configuration.
var Named = map[string]RGB{
	"off":     {0, 0, 0},
	"black":   {0, 0, 0},
	"red":     {255, 0, 0},
	"green":   {0, 255, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"cyan":    {0, 255, 255},
	"magenta": {255, 0, 255},
	"white":   {255, 255, 255},
	"orange":  {255, 128, 0},
	"purple":  {128, 0, 255},
	"pink":    {255, 64, 128},
	"lime":    {128, 255, 0},
	"teal":    {0, 255, 128},
	"violet":  {128, 0, 255},
}

// Parse accepts a named color ("red"), a hex triplet ("#RRGGBB"), or an
// "rgb(r, g, b)" expression. On failure it logs a warning and returns white,
// matching the fallback behavior of the reference implementation.
func Parse(s string) RGB {
	trimmed := strings.ToLower(strings.TrimSpace(s))

	if c, ok := Named[trimmed]; ok {
		return c
	}

	if strings.HasPrefix(trimmed, "#") && len(trimmed) == 7 {
		r, err1 := strconv.ParseUint(trimmed[1:3], 16, 8)
		g, err2 := strconv.ParseUint(trimmed[3:5], 16, 8)
		b, err3 := strconv.ParseUint(trimmed[5:7], 16, 8)
		if err1 == nil && err2 == nil && err3 == nil {
			return RGB{uint8(r), uint8(g), uint8(b)}
		}
		log.Warn().Str("color", trimmed).Msg("invalid hex color format")
	}

	if strings.HasPrefix(trimmed, "rgb(") && strings.HasSuffix(trimmed, ")") {
		if c, ok := parseRGBExpr(trimmed); ok {
			return c
		}
		log.Warn().Str("color", trimmed).Msg("invalid rgb() format")
	}

	log.Warn().Str("color", trimmed).Msg("could not parse color, defaulting to white")
	return RGB{255, 255, 255}
}

func parseRGBExpr(trimmed string) (RGB, bool) {
	inner := trimmed[4 : len(trimmed)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return RGB{}, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return RGB{}, false
		}
		vals[i] = clamp(v, 0, 255)
	}
	return RGB{uint8(vals[0]), uint8(vals[1]), uint8(vals[2])}, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FromMIDI builds an RGB from 0-127 MIDI byte values, scaling to the full
// 0-255 range.
func FromMIDI(r, g, b uint8) RGB {
	return RGB{r * 2, g * 2, b * 2}
}

// ToMIDI converts this color to 0-127 MIDI byte range.
func (c RGB) ToMIDI() (r, g, b uint8) {
	return c.R / 2, c.G / 2, c.B / 2
}

// String renders the color as a hex triplet, useful in logs and error messages.
func (c RGB) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Nearest returns the palette entry (name, color) whose RGB Euclidean
// distance to c is smallest. Used by devices whose LED hardware only
// supports a fixed palette.
func Nearest(c RGB, palette map[string]RGB) (string, RGB) {
	bestName := ""
	bestColor := RGB{}
	bestDist := -1
	for name, candidate := range palette {
		d := sqDistance(c, candidate)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			bestName = name
			bestColor = candidate
		}
	}
	return bestName, bestColor
}

func sqDistance(a, b RGB) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// ScaleGamma applies a simple power-curve brightness scale (0-1 input) to
// each channel, matching the gamma-correction approach devices with coarse
// LED brightness steps use to make perceived brightness feel linear.
func ScaleGamma(c RGB, factor float64) RGB {
	scale := func(ch uint8) uint8 {
		f := float64(ch) / 255.0 * factor
		v := f * f * 255.0
		return uint8(clamp(int(v), 0, 255))
	}
	return RGB{scale(c.R), scale(c.G), scale(c.B)}
}
