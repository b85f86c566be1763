// Package viewport is the Web Mercator camera of a map session and the event
// source for anything that has to follow the map as it moves.
package viewport

import (
	"math"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

const (
	TileSize = 512
	MinZoom  = 0.0
	MaxZoom  = 22.0
	MaxLat   = 85.051129
)

type Camera struct {
	Center  model.LngLat `json:"center"`
	Zoom    float64      `json:"zoom"`
	Bearing float64      `json:"bearing"`
	Width   float64      `json:"width"`
	Height  float64      `json:"height"`
}

// DefaultCamera frames the contiguous US the way the overview page does.
func DefaultCamera() Camera {
	return Camera{
		Center: model.LngLat{Lng: -100, Lat: 45},
		Zoom:   3.5,
		Width:  1280,
		Height: 800,
	}
}

func (c Camera) normalized() Camera {
	c.Center.Lng = wrapLng(c.Center.Lng)
	c.Center.Lat = clamp(c.Center.Lat, -MaxLat, MaxLat)
	c.Zoom = clamp(c.Zoom, MinZoom, MaxZoom)
	c.Bearing = wrapBearing(c.Bearing)
	if c.Width <= 0 {
		c.Width = 1
	}
	if c.Height <= 0 {
		c.Height = 1
	}
	return c
}

// Viewport is owned by one goroutine (the session loop); it is not safe for concurrent use.
type Viewport struct {
	cam       Camera
	listeners map[EventKind][]entry
	nextID    uint64
	closed    bool
}

func New(cam Camera) *Viewport {
	return &Viewport{cam: cam.normalized(), listeners: map[EventKind][]entry{}}
}

func (v *Viewport) Camera() Camera { return v.cam }

func (v *Viewport) worldSize() float64 {
	return TileSize * math.Pow(2, v.cam.Zoom)
}

func mercX(lng, ws float64) float64 {
	return (180 + lng) / 360 * ws
}

func mercY(lat, ws float64) float64 {
	lat = clamp(lat, -MaxLat, MaxLat)
	y := 180 / math.Pi * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return (180 - y) / 360 * ws
}

func lngFromX(x, ws float64) float64 {
	return x/ws*360 - 180
}

func latFromY(y, ws float64) float64 {
	y2 := 180 - y/ws*360
	return 360/math.Pi*math.Atan(math.Exp(y2*math.Pi/180)) - 90
}

func (v *Viewport) angle() (sin, cos float64) {
	a := -v.cam.Bearing * math.Pi / 180
	return math.Sin(a), math.Cos(a)
}

// Project maps a geographic coordinate to container pixels. The world copy
// closest to the center is used so regions near the antimeridian stay on screen.
func (v *Viewport) Project(ll model.LngLat) model.Point {
	ws := v.worldSize()
	dx := mercX(ll.Lng, ws) - mercX(v.cam.Center.Lng, ws)
	dy := mercY(ll.Lat, ws) - mercY(v.cam.Center.Lat, ws)
	if dx > ws/2 {
		dx -= ws
	} else if dx < -ws/2 {
		dx += ws
	}
	sin, cos := v.angle()
	return model.Point{
		X: v.cam.Width/2 + dx*cos - dy*sin,
		Y: v.cam.Height/2 + dx*sin + dy*cos,
	}
}

func (v *Viewport) Unproject(p model.Point) model.LngLat {
	ws := v.worldSize()
	sx := p.X - v.cam.Width/2
	sy := p.Y - v.cam.Height/2
	sin, cos := v.angle()
	dx := sx*cos + sy*sin
	dy := -sx*sin + sy*cos
	x := mercX(v.cam.Center.Lng, ws) + dx
	y := mercY(v.cam.Center.Lat, ws) + dy
	return model.LngLat{Lng: wrapLng(lngFromX(x, ws)), Lat: latFromY(y, ws)}
}

// Pan moves the map content by (dx, dy) pixels.
func (v *Viewport) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	v.pan(dx, dy)
	v.emit(EventMove)
}

func (v *Viewport) pan(dx, dy float64) {
	c := v.Unproject(model.Point{X: v.cam.Width/2 - dx, Y: v.cam.Height/2 - dy})
	v.cam.Center = c
	v.cam = v.cam.normalized()
}

// ZoomTo changes the zoom level; with around set, the geographic point under
// that pixel stays put.
func (v *Viewport) ZoomTo(zoom float64, around *model.Point) {
	zoom = clamp(zoom, MinZoom, MaxZoom)
	if zoom == v.cam.Zoom {
		return
	}
	if around == nil {
		v.cam.Zoom = zoom
		v.emit(EventZoom)
		return
	}
	anchor := v.Unproject(*around)
	v.cam.Zoom = zoom
	moved := v.Project(anchor)
	v.pan(around.X-moved.X, around.Y-moved.Y)
	v.emit(EventZoom)
}

func (v *Viewport) RotateTo(bearing float64) {
	bearing = wrapBearing(bearing)
	if bearing == v.cam.Bearing {
		return
	}
	v.cam.Bearing = bearing
	v.emit(EventRotate)
}

func (v *Viewport) Resize(width, height float64) {
	if width == v.cam.Width && height == v.cam.Height {
		return
	}
	v.cam.Width, v.cam.Height = width, height
	v.cam = v.cam.normalized()
	v.emit(EventResize)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func wrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	w := math.Mod(lng+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

// (-180, 180]
func wrapBearing(b float64) float64 {
	if math.IsNaN(b) {
		return 0
	}
	w := math.Mod(b, 360)
	if w > 180 {
		w -= 360
	} else if w <= -180 {
		w += 360
	}
	return w
}
