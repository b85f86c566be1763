// Package boundary holds the immutable region polygons the choropleth is painted on.
package boundary

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/geoid"
)

var ErrEmpty = errors.New("boundary dataset has no polygon features")

type Options struct {
	// checked in order; the first normalizable value wins
	IDProperties []string
	NameProperty string
	IDs          geoid.Normalizer
	// H3 resolution of the click index; <= 0 disables it
	H3Res int
}

func (o Options) withDefaults() Options {
	if len(o.IDProperties) == 0 {
		o.IDProperties = []string{"GEO_ID", "GEOID"}
	}
	if o.NameProperty == "" {
		o.NameProperty = "NAME"
	}
	if o.IDs == (geoid.Normalizer{}) {
		o.IDs = geoid.County
	}
	return o
}

type Feature struct {
	ID       model.Identifier
	Name     string
	Geometry geom.T
	Centroid model.LngLat
	// draw order; later features render on top
	Order int

	minX, minY, maxX, maxY float64
	polys                  []*geom.Polygon
}

func (f *Feature) Contains(p model.LngLat) bool {
	if p.Lng < f.minX || p.Lng > f.maxX || p.Lat < f.minY || p.Lat > f.maxY {
		return false
	}
	c := geom.Coord{p.Lng, p.Lat}
	for _, poly := range f.polys {
		if polygonContains(poly, c) {
			return true
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	n := p.NumLinearRings()
	if n == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < n; i++ {
		if xy.IsPointInRing(p.Layout(), c, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

type Dataset struct {
	features []*Feature
	byID     map[model.Identifier]*Feature
	index    *cellIndex
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

type rawFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// Parse decodes a GeoJSON FeatureCollection. Features that are not (multi)polygons
// or carry no usable identifier are skipped.
func Parse(data []byte, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()

	var fc rawCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unsupported GeoJSON type %q (want FeatureCollection)", fc.Type)
	}

	ds := &Dataset{byID: make(map[model.Identifier]*Feature, len(fc.Features))}
	for _, rf := range fc.Features {
		f, ok := newFeature(rf, opts)
		if !ok {
			continue
		}
		f.Order = len(ds.features)
		ds.features = append(ds.features, f)
		ds.byID[f.ID] = f
	}
	if len(ds.features) == 0 {
		return nil, ErrEmpty
	}
	if opts.H3Res > 0 {
		ds.index = buildIndex(ds.features, opts.H3Res)
	}
	return ds, nil
}

func newFeature(rf rawFeature, opts Options) (*Feature, bool) {
	if len(rf.Geometry) == 0 || string(rf.Geometry) == "null" {
		return nil, false
	}
	var g geom.T
	if err := geojson.Unmarshal(rf.Geometry, &g); err != nil {
		return nil, false
	}

	var polys []*geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		polys = []*geom.Polygon{t}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
	default:
		return nil, false
	}
	if len(polys) == 0 || len(g.FlatCoords()) == 0 {
		return nil, false
	}

	var id model.Identifier
	for _, key := range opts.IDProperties {
		if v, ok := opts.IDs.Normalize(rf.Properties[key]); ok {
			id = v
			break
		}
	}
	if id == "" {
		return nil, false
	}

	name, _ := rf.Properties[opts.NameProperty].(string)
	b := g.Bounds()
	f := &Feature{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Geometry: g,
		minX:     b.Min(0),
		minY:     b.Min(1),
		maxX:     b.Max(0),
		maxY:     b.Max(1),
		polys:    polys,
	}
	f.Centroid = centroid(g, f)
	return f, true
}

// area centroid; bounds center for degenerate rings
func centroid(g geom.T, f *Feature) model.LngLat {
	c, err := xy.Centroid(g)
	if err == nil && len(c) >= 2 && !math.IsNaN(c[0]) && !math.IsNaN(c[1]) {
		return model.LngLat{Lng: c[0], Lat: c[1]}
	}
	return model.LngLat{Lng: (f.minX + f.maxX) / 2, Lat: (f.minY + f.maxY) / 2}
}

func (d *Dataset) Len() int { return len(d.features) }

// Features in draw order; callers must not mutate them.
func (d *Dataset) Features() []*Feature { return d.features }

func (d *Dataset) ByID(id model.Identifier) (*Feature, bool) {
	f, ok := d.byID[id]
	return f, ok
}

// FeatureAt returns the topmost feature containing p.
func (d *Dataset) FeatureAt(p model.LngLat) (*Feature, bool) {
	if d.index != nil {
		if f, ok := d.index.lookup(p); ok {
			// a later feature can cross the cell without being indexed to it
			for i := len(d.features) - 1; i > f.Order; i-- {
				if d.features[i].Contains(p) {
					return d.features[i], true
				}
			}
			return f, true
		}
	}
	for i := len(d.features) - 1; i >= 0; i-- {
		if d.features[i].Contains(p) {
			return d.features[i], true
		}
	}
	return nil, false
}
