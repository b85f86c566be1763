package colormap

import (
	"math"
	"strings"
)

// Ramp is a uniform cubic B-spline through a sequential color scheme.
type Ramp struct {
	name    string
	r, g, b []float64
}

// NewRamp takes a scheme as concatenated "rrggbb" groups.
func NewRamp(name, scheme string) *Ramp {
	scheme = strings.TrimSpace(scheme)
	n := len(scheme) / 6
	rp := &Ramp{name: name, r: make([]float64, n), g: make([]float64, n), b: make([]float64, n)}
	for i := range n {
		c := MustHex(scheme[i*6 : i*6+6])
		rp.r[i], rp.g[i], rp.b[i] = float64(c.R), float64(c.G), float64(c.B)
	}
	return rp
}

func (rp *Ramp) Name() string { return rp.name }

// At clamps t to [0,1].
func (rp *Ramp) At(t float64) Color {
	return Color{R: channel(basis(rp.r, t)), G: channel(basis(rp.g, t)), B: channel(basis(rp.b, t))}
}

// ColorBrewer 9-class sequential schemes
var (
	Greens = NewRamp("greens", "f7fcf5e5f5e0c7e9c0a1d99b74c47641ab5d238b45006d2c00441b")
	Reds   = NewRamp("reds", "fff5f0fee0d2fcbba1fc9272fb6a4aef3b2ccb181da50f1567000d")
)

func basis(values []float64, t float64) float64 {
	n := len(values) - 1
	if n < 1 {
		if n == 0 {
			return values[0]
		}
		return 0
	}
	var i int
	switch {
	case t <= 0 || math.IsNaN(t):
		t, i = 0, 0
	case t >= 1:
		t, i = 1, n-1
	default:
		i = int(t * float64(n))
	}
	v1, v2 := values[i], values[i+1]
	v0 := 2*v1 - v2
	if i > 0 {
		v0 = values[i-1]
	}
	v3 := 2*v2 - v1
	if i < n-1 {
		v3 = values[i+2]
	}
	return spline((t-float64(i)/float64(n))*float64(n), v0, v1, v2, v3)
}

func spline(t1, v0, v1, v2, v3 float64) float64 {
	t2 := t1 * t1
	t3 := t2 * t1
	return ((1-3*t1+3*t2-t3)*v0 +
		(4-6*t2+3*t3)*v1 +
		(1+3*t1+3*t2-3*t3)*v2 +
		t3*v3) / 6
}
