// Package overlay draws the connector between the selected region and the
// floating detail panel.
package overlay

import (
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/viewport"
)

// Panel is the floating detail box, pinned to the top-right corner of the map.
type Panel struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin float64 `json:"margin"`
}

func DefaultPanel() Panel {
	return Panel{Width: 240, Height: 320, Margin: 32}
}

// Rect places the panel inside a container of the given size.
func (p Panel) Rect(width, height float64) model.Rect {
	right := width - p.Margin
	top := p.Margin
	bottom := top + p.Height
	if limit := height - p.Margin; bottom > limit && limit > top {
		bottom = limit
	}
	return model.Rect{Left: right - p.Width, Top: top, Right: right, Bottom: bottom}
}

// Overlay is driven by the session loop, like the viewport it listens to.
type Overlay struct {
	vp       *viewport.Viewport
	panel    Panel
	attached bool
	centroid model.LngLat
	offs     []func()
	segs     []model.Segment
	anchor   model.Point
	box      model.Rect
}

func New(vp *viewport.Viewport, panel Panel) *Overlay {
	if panel.Width <= 0 || panel.Height <= 0 {
		panel = DefaultPanel()
	}
	return &Overlay{vp: vp, panel: panel}
}

// Attach anchors the connector at centroid and follows every camera change
// until Detach.
func (o *Overlay) Attach(centroid model.LngLat) {
	if !o.attached {
		for _, kind := range viewport.AllEvents {
			o.offs = append(o.offs, o.vp.On(kind, func(viewport.Event) { o.redraw() }))
		}
		o.attached = true
	}
	o.centroid = centroid
	o.redraw()
}

func (o *Overlay) Detach() {
	for _, off := range o.offs {
		off()
	}
	o.offs = nil
	o.attached = false
	o.segs = nil
	o.anchor = model.Point{}
	o.box = model.Rect{}
}

func (o *Overlay) Attached() bool { return o.attached }

func (o *Overlay) Panel() Panel { return o.panel }

func (o *Overlay) redraw() {
	o.segs = o.segs[:0]
	if !o.attached {
		return
	}
	cam := o.vp.Camera()
	o.anchor = o.vp.Project(o.centroid)
	o.box = o.panel.Rect(cam.Width, cam.Height)
	o.segs = append(o.segs,
		model.Segment{From: o.anchor, To: o.box.TopLeft()},
		model.Segment{From: o.anchor, To: o.box.BottomLeft()},
	)
}

// Segments is empty when nothing is selected.
func (o *Overlay) Segments() []model.Segment {
	if len(o.segs) == 0 {
		return nil
	}
	return append([]model.Segment(nil), o.segs...)
}

// Anchor is the projected centroid and PanelRect the box it connects to.
func (o *Overlay) Anchor() (model.Point, bool) { return o.anchor, o.attached }

func (o *Overlay) PanelRect() model.Rect { return o.box }
