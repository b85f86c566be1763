package colormap

import (
	"testing"
)

func TestValueMode_Endpoints(t *testing.T) {
	m := Default()
	if got := m.ColorFor(0, ModeValue); got != DefaultStart {
		t.Fatalf("v=0 got=%s want %s", got, DefaultStart)
	}
	if got := m.ColorFor(1, ModeValue); got != DefaultEnd {
		t.Fatalf("v=1 got=%s want %s", got, DefaultEnd)
	}
	if got := m.ColorFor(0.5, ModeValue).String(); got != "#f284bc" {
		t.Fatalf("v=0.5 got=%s want #f284bc", got)
	}
}

func dist(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func TestValueMode_Monotonic(t *testing.T) {
	m := Default()
	prev := m.ColorFor(0, ModeValue)
	for i := 1; i <= 100; i++ {
		c := m.ColorFor(float64(i)/100, ModeValue)
		if dist(c.R, m.Start.R) < dist(prev.R, m.Start.R) ||
			dist(c.G, m.Start.G) < dist(prev.G, m.Start.G) ||
			dist(c.B, m.Start.B) < dist(prev.B, m.Start.B) {
			t.Fatalf("not monotonic at %d: prev=%s cur=%s", i, prev, c)
		}
		prev = c
	}
}

func TestValueMode_OutOfRange(t *testing.T) {
	m := Default()
	// extrapolation saturates channels rather than wrapping
	if got := m.ColorFor(2, ModeValue); got.G != 0 {
		t.Fatalf("v=2 got=%s want saturated green channel", got)
	}
	m.ClampValues = true
	if got := m.ColorFor(2, ModeValue); got != DefaultEnd {
		t.Fatalf("clamped v=2 got=%s want %s", got, DefaultEnd)
	}
	if got := m.ColorFor(-1, ModeValue); got != DefaultStart {
		t.Fatalf("clamped v=-1 got=%s want %s", got, DefaultStart)
	}
}

func TestForecastMode_FamilyBySign(t *testing.T) {
	m := Default()
	for _, p := range []float64{0, 0.05, 0.3, 0.99, 1, 4} {
		want := Greens.At(min(p, 1))
		if got := m.ColorFor(p, ModeForecast); got != want {
			t.Fatalf("p=%v got=%s want greens %s", p, got, want)
		}
	}
	for _, p := range []float64{-0.05, -0.3, -1, -7} {
		want := Reds.At(min(-p, 1))
		if got := m.ColorFor(p, ModeForecast); got != want {
			t.Fatalf("p=%v got=%s want reds %s", p, got, want)
		}
	}
}

func TestForecastMode_ClampedOutliers(t *testing.T) {
	m := Default()
	if m.ColorFor(25, ModeForecast) != m.ColorFor(1, ModeForecast) {
		t.Fatalf("positive outlier must clamp to scale end")
	}
	if m.ColorFor(-25, ModeForecast) != m.ColorFor(-1, ModeForecast) {
		t.Fatalf("negative outlier must clamp to scale end")
	}
}

func TestRamp_Endpoints(t *testing.T) {
	if got := Greens.At(0).String(); got != "#f7fcf5" {
		t.Fatalf("greens(0)=%s want #f7fcf5", got)
	}
	if got := Greens.At(1).String(); got != "#00441b" {
		t.Fatalf("greens(1)=%s want #00441b", got)
	}
	if got := Reds.At(1).String(); got != "#67000d" {
		t.Fatalf("reds(1)=%s want #67000d", got)
	}
}

func TestColorFor_Pure(t *testing.T) {
	m := Default()
	for _, v := range []float64{0.1, 0.42, 0.77} {
		for _, mode := range []Mode{ModeValue, ModeForecast} {
			if m.ColorFor(v, mode) != m.ColorFor(v, mode) {
				t.Fatalf("ColorFor(%v,%s) not deterministic", v, mode)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeValue, "value": ModeValue, "Forecast": ModeForecast} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("heat"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ccc")
	if err != nil || c != DefaultFallback {
		t.Fatalf("ParseHex(#ccc)=%v,%v", c, err)
	}
	if _, err := ParseHex("#12"); err == nil {
		t.Fatal("expected error for short hex")
	}
}
