package boundary

import (
	"github.com/twpayne/go-geom"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

// cellIndex maps H3 cells to the features that may cover them. It only narrows
// the search; a miss falls back to the bounding-box scan.
type cellIndex struct {
	res   int
	cells map[h3.Cell][]*Feature
}

func buildIndex(features []*Feature, res int) *cellIndex {
	if res > 15 {
		res = 15
	}
	idx := &cellIndex{res: res, cells: make(map[h3.Cell][]*Feature)}
	for _, f := range features {
		seen := map[h3.Cell]struct{}{}
		add := func(c h3.Cell) {
			if _, ok := seen[c]; ok {
				return
			}
			seen[c] = struct{}{}
			idx.cells[c] = append(idx.cells[c], f)
		}
		for _, poly := range f.polys {
			for _, c := range polyfill(poly, res) {
				add(c)
			}
			// small or thin polygons may not contain any cell center
			for _, ll := range toLoop(poly.LinearRing(0)) {
				if c, err := h3.LatLngToCell(ll, res); err == nil {
					add(c)
				}
			}
		}
	}
	return idx
}

func (idx *cellIndex) lookup(p model.LngLat) (*Feature, bool) {
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lng}, idx.res)
	if err != nil {
		return nil, false
	}
	cands := idx.cells[c]
	var best *Feature
	for _, f := range cands {
		if (best == nil || f.Order > best.Order) && f.Contains(p) {
			best = f
		}
	}
	return best, best != nil
}

func polyfill(poly *geom.Polygon, res int) []h3.Cell {
	n := poly.NumLinearRings()
	if n == 0 {
		return nil
	}
	outer := toLoop(poly.LinearRing(0))
	if len(outer) < 3 {
		return nil
	}
	var holes []h3.GeoLoop
	for i := 1; i < n; i++ {
		if h := toLoop(poly.LinearRing(i)); len(h) >= 3 {
			holes = append(holes, h)
		}
	}
	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer, Holes: holes}, res)
	if err != nil {
		return nil
	}
	return cells
}

// ring to GeoLoop, dropping the closing vertex
func toLoop(ring *geom.LinearRing) h3.GeoLoop {
	coords := ring.Coords()
	loop := make(h3.GeoLoop, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		loop = append(loop, h3.LatLng{Lat: c[1], Lng: c[0]})
	}
	if len(loop) >= 2 {
		first, last := loop[0], loop[len(loop)-1]
		if first.Lat == last.Lat && first.Lng == last.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}
