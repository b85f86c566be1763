package colormap

import (
	"fmt"
	"math"
	"strings"
)

type Mode int

const (
	ModeValue Mode = iota
	ModeForecast
)

func (m Mode) String() string {
	if m == ModeForecast {
		return "forecast"
	}
	return "value"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "value":
		return ModeValue, nil
	case "forecast":
		return ModeForecast, nil
	default:
		return ModeValue, fmt.Errorf("unknown color mode %q (want value|forecast)", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

var (
	DefaultStart    = MustHex("#ffffff")
	DefaultEnd      = MustHex("#e40878")
	DefaultFallback = MustHex("#cccccc")
)

// Mapper is a pure value -> color function; the zero value is not usable, see Default.
type Mapper struct {
	Start, End Color
	// clamp value-mode inputs to [0,1] instead of extrapolating
	ClampValues bool
	Positive    *Ramp
	Negative    *Ramp
	Fallback    Color
}

func Default() Mapper {
	return Mapper{
		Start:    DefaultStart,
		End:      DefaultEnd,
		Positive: Greens,
		Negative: Reds,
		Fallback: DefaultFallback,
	}
}

func (m Mapper) ColorFor(v float64, mode Mode) Color {
	if mode == ModeForecast {
		return m.forecast(v)
	}
	return m.value(v)
}

func (m Mapper) value(v float64) Color {
	if math.IsNaN(v) {
		return m.Start
	}
	if m.ClampValues {
		v = clamp01(v)
	}
	return Interpolate(m.Start, m.End, v)
}

func (m Mapper) forecast(p float64) Color {
	pos, neg := m.Positive, m.Negative
	if pos == nil {
		pos = Greens
	}
	if neg == nil {
		neg = Reds
	}
	if math.IsNaN(p) {
		p = 0
	}
	if p >= 0 {
		return pos.At(math.Min(p, 1))
	}
	return neg.At(math.Min(-p, 1))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
