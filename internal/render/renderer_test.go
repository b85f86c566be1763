package render

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mohammed-shakir/county-overlay/internal/boundary/boundarytest"
	"github.com/mohammed-shakir/county-overlay/internal/colormap"
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/jointable"
	"github.com/mohammed-shakir/county-overlay/internal/viewport"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	vp := viewport.New(viewport.Camera{Center: model.LngLat{Lng: -85.5, Lat: 32.5}, Zoom: 6, Width: 800, Height: 600})
	return New(vp, Options{Mapper: colormap.Default()})
}

func readyRenderer(t *testing.T) *Renderer {
	t.Helper()
	r := newRenderer(t)
	r.BeginLoad()
	r.Loaded(boundarytest.Dataset(t))
	return r
}

func tables(values, forecast map[string]float64) jointable.Set {
	return jointable.Set{Values: table(values), Forecast: table(forecast)}
}

func table(values map[string]float64) *jointable.Table {
	rows := make([]jointable.Row, 0, len(values))
	for id, v := range values {
		rows = append(rows, jointable.Row{"GEOID": id, "value": v})
	}
	return jointable.Build(rows, jointable.Spec{})
}

func TestNoFillUntilReady(t *testing.T) {
	r := newRenderer(t)
	r.SetTables(tables(map[string]float64{"1001": 0.5}, nil))
	if r.Fill() != nil {
		t.Fatal("fill exists before load")
	}
	r.BeginLoad()
	if r.State() != StateLoading {
		t.Fatalf("state=%v", r.State())
	}
	if _, ok := r.ResolveClick(model.Point{X: 400, Y: 300}); ok {
		t.Fatal("click resolved while loading")
	}
	r.Loaded(boundarytest.Dataset(t))
	fill := r.Fill()
	if fill == nil || len(fill.Stops) != 1 {
		t.Fatalf("fill=%+v", fill)
	}
	if got := fill.ColorOf("0500000US01001").String(); got != "#f284bc" {
		t.Fatalf("color=%s", got)
	}
}

func TestLoadFailed(t *testing.T) {
	r := newRenderer(t)
	r.BeginLoad()
	boom := errors.New("boom")
	r.LoadFailed(boom)
	if r.State() != StateFailed || !errors.Is(r.Err(), boom) {
		t.Fatalf("state=%v err=%v", r.State(), r.Err())
	}
	r.Loaded(boundarytest.Dataset(t))
	if r.State() != StateFailed || r.Fill() != nil {
		t.Fatal("late load revived a failed renderer")
	}
}

func TestFillRecomputedOnDataAndMode(t *testing.T) {
	r := readyRenderer(t)
	empty := r.Fill()
	if empty == nil || len(empty.Stops) != 0 {
		t.Fatalf("initial fill=%+v", empty)
	}

	r.SetTables(tables(
		map[string]float64{"1001": 1, "1003": 0},
		map[string]float64{"1001": 0.4, "1003": -2},
	))
	first := r.Fill()
	if first.ColorOf("0500000US01001") != colormap.DefaultEnd {
		t.Fatalf("value color=%s", first.ColorOf("0500000US01001"))
	}
	if first.ColorOf("0500000US09999") != colormap.DefaultFallback {
		t.Fatal("absent id is not fallback")
	}

	r.SetMode(colormap.ModeForecast)
	second := r.Fill()
	if second == first {
		t.Fatal("mode change did not publish a new expression")
	}
	if second.ColorOf("0500000US01003") != colormap.Reds.At(1) {
		t.Fatalf("clamped negative=%s", second.ColorOf("0500000US01003"))
	}
	if second.ColorOf("0500000US01001") != colormap.Greens.At(0.4) {
		t.Fatalf("positive=%s", second.ColorOf("0500000US01001"))
	}
	if first.Fingerprint() == second.Fingerprint() {
		t.Fatal("fingerprint did not change")
	}

	// the old expression is untouched; readers holding it see a consistent table
	if first.ColorOf("0500000US01001") != colormap.DefaultEnd {
		t.Fatal("published expression was mutated")
	}
}

func TestFillJSON(t *testing.T) {
	r := readyRenderer(t)
	raw, err := json.Marshal(r.Fill())
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `"#cccccc"` {
		t.Fatalf("empty fill=%s", raw)
	}

	r.SetTables(tables(map[string]float64{"1003": 0, "1001": 1}, nil))
	raw, _ = json.Marshal(r.Fill())
	want := `["match",["get","GEO_ID"],"0500000US01001","#e40878","0500000US01003","#ffffff","#cccccc"]`
	if string(raw) != want {
		t.Fatalf("got  %s\nwant %s", raw, want)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := readyRenderer(t)
	b := readyRenderer(t)
	a.SetTables(tables(map[string]float64{"1001": 0.3, "1003": 0.7}, nil))
	b.SetTables(tables(map[string]float64{"1003": 0.7, "1001": 0.3}, nil))
	if a.Fill().Fingerprint() != b.Fill().Fingerprint() {
		t.Fatal("equal fills have different fingerprints")
	}
}

func TestResolveClick(t *testing.T) {
	r := readyRenderer(t)
	r.SetTables(tables(map[string]float64{"1003": 0.25}, nil))

	hit, ok := r.ResolveClick(model.Point{X: 400, Y: 300})
	if !ok || hit.Feature.ID != "0500000US01003" {
		t.Fatalf("hit=%+v ok=%v", hit, ok)
	}
	if hit.Value != 0.25 || hit.Centroid != hit.Feature.Centroid {
		t.Fatalf("hit=%+v", hit)
	}

	if _, ok := r.ResolveClick(model.Point{X: 400, Y: 450}); ok {
		t.Fatal("expected miss south of every county")
	}
}
