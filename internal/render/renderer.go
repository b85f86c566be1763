// Package render turns the join table and color mode into the choropleth fill
// and resolves clicks against the boundary dataset.
package render

import (
	"fmt"
	"sync/atomic"

	"github.com/mohammed-shakir/county-overlay/internal/boundary"
	"github.com/mohammed-shakir/county-overlay/internal/colormap"
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
	"github.com/mohammed-shakir/county-overlay/internal/jointable"
	"github.com/mohammed-shakir/county-overlay/internal/viewport"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for c := StateUninitialized; c <= StateFailed; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown map state %q", b)
}

type Options struct {
	Mapper colormap.Mapper
	Mode   colormap.Mode
	// feature property the fill expression matches on
	Property string
}

// Hit is a resolved click.
type Hit struct {
	Feature  *boundary.Feature
	At       model.LngLat
	Centroid model.LngLat
	Value    float64
}

// Renderer owns the viewport and the fill layer of one map. Apart from Fill,
// which may be read from any goroutine, it is driven by a single goroutine.
type Renderer struct {
	vp      *viewport.Viewport
	mapper  colormap.Mapper
	prop    string
	mode    colormap.Mode
	state   State
	loadErr error
	ds      *boundary.Dataset
	tables  jointable.Set
	fill    atomic.Pointer[FillExpression]
}

func New(vp *viewport.Viewport, opts Options) *Renderer {
	if opts.Property == "" {
		opts.Property = DefaultProperty
	}
	if opts.Mapper.Positive == nil {
		opts.Mapper = colormap.Default()
	}
	return &Renderer{
		vp:     vp,
		mapper: opts.Mapper,
		prop:   opts.Property,
		mode:   opts.Mode,
		tables: jointable.EmptySet(),
	}
}

func (r *Renderer) Viewport() *viewport.Viewport { return r.vp }
func (r *Renderer) State() State                  { return r.state }
func (r *Renderer) Mode() colormap.Mode           { return r.mode }
func (r *Renderer) Tables() jointable.Set         { return r.tables }
func (r *Renderer) Dataset() *boundary.Dataset    { return r.ds }

// Err is the boundary load error when State is StateFailed.
func (r *Renderer) Err() error { return r.loadErr }

// BeginLoad marks the boundary load as started; it only moves out of Uninitialized.
func (r *Renderer) BeginLoad() bool {
	if r.state != StateUninitialized {
		return false
	}
	r.state = StateLoading
	return true
}

// Loaded finishes the boundary load and publishes the first fill.
func (r *Renderer) Loaded(ds *boundary.Dataset) {
	if r.state != StateLoading {
		return
	}
	r.ds = ds
	r.state = StateReady
	r.recompute("load")
}

func (r *Renderer) LoadFailed(err error) {
	if r.state != StateLoading {
		return
	}
	r.loadErr = err
	r.state = StateFailed
}

// SetTables replaces the join tables; the fill is recomputed if the map is ready.
func (r *Renderer) SetTables(set jointable.Set) {
	if set.Values == nil {
		set.Values = jointable.Empty()
	}
	if set.Forecast == nil {
		set.Forecast = jointable.Empty()
	}
	r.tables = set
	r.recompute("data")
}

func (r *Renderer) SetMode(mode colormap.Mode) {
	if mode == r.mode {
		return
	}
	r.mode = mode
	r.recompute("mode")
}

// Fill is the current fill expression, nil while no fill layer exists.
func (r *Renderer) Fill() *FillExpression { return r.fill.Load() }

// ColorValue is the number painted for id under the active mode.
func (r *Renderer) ColorValue(id model.Identifier) float64 {
	if r.mode == colormap.ModeForecast {
		return r.tables.Forecast.Get(id)
	}
	return r.tables.Values.Get(id)
}

func (r *Renderer) recompute(trigger string) {
	if r.state != StateReady {
		return
	}
	// stops follow the primary table in both modes; forecast colors fall back to 0
	ids := r.tables.Values.IDs()
	expr := buildExpression(r.prop, r.mode, ids, func(id model.Identifier) colormap.Color {
		return r.mapper.ColorFor(r.ColorValue(id), r.mode)
	}, r.mapper.Fallback)
	r.fill.Store(expr)
	observability.ObserveFillRecompute(trigger, len(expr.Stops))
}

// ResolveClick returns the topmost feature under pixel p. Clicks are ignored
// until the boundaries are ready.
func (r *Renderer) ResolveClick(p model.Point) (Hit, bool) {
	if r.state != StateReady || r.ds == nil {
		return Hit{}, false
	}
	at := r.vp.Unproject(p)
	f, ok := r.ds.FeatureAt(at)
	if !ok {
		return Hit{}, false
	}
	return Hit{
		Feature:  f,
		At:       at,
		Centroid: f.Centroid,
		Value:    r.tables.Values.Get(f.ID),
	}, true
}
