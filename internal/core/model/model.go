// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
)

// normalized geographic key, e.g. "0500000US01001"
type Identifier string

func (id Identifier) String() string { return string(id) }

type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (ll LngLat) String() string {
	return fmt.Sprintf("%.6f,%.6f", ll.Lng, ll.Lat)
}

// screen-space pixel coordinate, origin top-left of the map container
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(dx, dy float64) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

func (p Point) Near(o Point, eps float64) bool {
	return math.Abs(p.X-o.X) <= eps && math.Abs(p.Y-o.Y) <= eps
}

// pixel rectangle
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) TopLeft() Point     { return Point{X: r.Left, Y: r.Top} }
func (r Rect) TopRight() Point    { return Point{X: r.Right, Y: r.Top} }
func (r Rect) BottomLeft() Point  { return Point{X: r.Left, Y: r.Bottom} }
func (r Rect) BottomRight() Point { return Point{X: r.Right, Y: r.Bottom} }

type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Selection is the single active pick on the map.
type Selection struct {
	ID       Identifier `json:"id"`
	Name     string     `json:"name"`
	Value    float64    `json:"value"`
	Centroid LngLat     `json:"centroid"`
}

type DetailEntry struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// DetailInfo keeps the upstream label order so panels render deterministically.
type DetailInfo []DetailEntry

func (d DetailInfo) Get(label string) (string, bool) {
	for _, e := range d {
		if e.Label == label {
			return e.Text, true
		}
	}
	return "", false
}

// SeriesPoint is one month of a historical or forecast series.
type SeriesPoint struct {
	Month    string  `json:"month"`
	Value    float64 `json:"value"`
	Forecast bool    `json:"forecast"`
}

type Series []SeriesPoint
