package viewport

import (
	"math"
	"testing"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

func newTestViewport() *Viewport {
	return New(Camera{Center: model.LngLat{Lng: -86.5, Lat: 32.5}, Zoom: 6, Width: 800, Height: 600})
}

func TestProjectCenterIsMiddle(t *testing.T) {
	v := newTestViewport()
	p := v.Project(v.Camera().Center)
	if !p.Near(model.Point{X: 400, Y: 300}, 1e-9) {
		t.Fatalf("center projected to %v", p)
	}
}

func TestProjectUnprojectRoundTrip(t *testing.T) {
	for _, bearing := range []float64{0, 30, -120, 180} {
		v := newTestViewport()
		v.RotateTo(bearing)
		ll := model.LngLat{Lng: -85.2, Lat: 33.1}
		back := v.Unproject(v.Project(ll))
		if math.Abs(back.Lng-ll.Lng) > 1e-9 || math.Abs(back.Lat-ll.Lat) > 1e-9 {
			t.Fatalf("bearing=%v got=%v want=%v", bearing, back, ll)
		}
	}
}

func TestNorthIsUp(t *testing.T) {
	v := newTestViewport()
	c := v.Camera().Center
	north := v.Project(model.LngLat{Lng: c.Lng, Lat: c.Lat + 1})
	east := v.Project(model.LngLat{Lng: c.Lng + 1, Lat: c.Lat})
	if north.Y >= 300 || math.Abs(north.X-400) > 1e-9 {
		t.Fatalf("north=%v", north)
	}
	if east.X <= 400 || math.Abs(east.Y-300) > 1e-9 {
		t.Fatalf("east=%v", east)
	}
}

func TestPanMovesContentByOffset(t *testing.T) {
	for _, bearing := range []float64{0, 45} {
		v := newTestViewport()
		v.RotateTo(bearing)
		ll := model.LngLat{Lng: -86.0, Lat: 32.9}
		before := v.Project(ll)
		v.Pan(40, -25)
		after := v.Project(ll)
		if !after.Near(before.Add(40, -25), 1e-6) {
			t.Fatalf("bearing=%v before=%v after=%v", bearing, before, after)
		}
	}
}

func TestZoomAroundKeepsAnchor(t *testing.T) {
	v := newTestViewport()
	around := model.Point{X: 120, Y: 500}
	anchor := v.Unproject(around)
	v.ZoomTo(8, &around)
	if got := v.Project(anchor); !got.Near(around, 1e-6) {
		t.Fatalf("anchor moved to %v", got)
	}
	if v.Camera().Zoom != 8 {
		t.Fatalf("zoom=%v", v.Camera().Zoom)
	}
}

func TestClamps(t *testing.T) {
	v := New(Camera{Center: model.LngLat{Lng: 190, Lat: 89}, Zoom: 30, Bearing: 540, Width: 10, Height: 10})
	c := v.Camera()
	if c.Center.Lat != MaxLat || c.Zoom != MaxZoom {
		t.Fatalf("camera=%+v", c)
	}
	if math.Abs(c.Center.Lng-(-170)) > 1e-9 {
		t.Fatalf("lng=%v", c.Center.Lng)
	}
	if c.Bearing != 180 {
		t.Fatalf("bearing=%v", c.Bearing)
	}
}

func TestEventsFireOncePerChange(t *testing.T) {
	v := newTestViewport()
	counts := map[EventKind]int{}
	for _, k := range AllEvents {
		k := k
		v.On(k, func(ev Event) {
			if ev.Kind != k {
				t.Fatalf("kind=%v want %v", ev.Kind, k)
			}
			counts[k]++
		})
	}
	v.Pan(10, 0)
	v.ZoomTo(7, nil)
	v.RotateTo(15)
	v.Resize(640, 480)
	v.Pan(0, 0)
	v.ZoomTo(7, nil)
	v.RotateTo(15)
	v.Resize(640, 480)
	for _, k := range AllEvents {
		if counts[k] != 1 {
			t.Fatalf("%v fired %d times", k, counts[k])
		}
	}
}

func TestOffAndClose(t *testing.T) {
	v := newTestViewport()
	calls := 0
	off := v.On(EventMove, func(Event) { calls++ })
	v.On(EventZoom, func(Event) {})
	if v.ListenerCount() != 2 {
		t.Fatalf("listeners=%d", v.ListenerCount())
	}
	off()
	off()
	v.Pan(5, 5)
	if calls != 0 || v.ListenerCount() != 1 {
		t.Fatalf("calls=%d listeners=%d", calls, v.ListenerCount())
	}
	v.Close()
	v.On(EventMove, func(Event) { calls++ })
	v.Pan(5, 5)
	if calls != 0 || v.ListenerCount() != 0 {
		t.Fatalf("after close calls=%d listeners=%d", calls, v.ListenerCount())
	}
}

func TestListenerMayDeregisterDuringEmit(t *testing.T) {
	v := newTestViewport()
	var off func()
	calls := 0
	off = v.On(EventMove, func(Event) { calls++; off() })
	v.On(EventMove, func(Event) { calls++ })
	v.Pan(1, 1)
	v.Pan(1, 1)
	if calls != 3 {
		t.Fatalf("calls=%d", calls)
	}
}
