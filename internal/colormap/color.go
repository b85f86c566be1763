// Package colormap maps join-table values to choropleth fill colors.
package colormap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Color struct {
	R, G, B uint8
}

// ParseHex accepts "#rrggbb", "rrggbb" and the short "#rgb" form.
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("color %q: expected 6 hex digits", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

func MustHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// rounds and clamps a channel to 0..255
func channel(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func lerp(a, b uint8, t float64) uint8 {
	return channel(float64(a) + t*(float64(b)-float64(a)))
}

// Interpolate is linear in sRGB; t outside [0,1] extrapolates and saturates per channel.
func Interpolate(a, b Color, t float64) Color {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return Color{R: lerp(a.R, b.R, t), G: lerp(a.G, b.G, t), B: lerp(a.B, b.B, t)}
}
