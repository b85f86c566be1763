package session

import (
	"fmt"
	"time"

	"github.com/mohammed-shakir/county-overlay/internal/colormap"
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/render"
	"github.com/mohammed-shakir/county-overlay/internal/selection"
	"github.com/mohammed-shakir/county-overlay/internal/viewport"
)

type DataState int

const (
	DataNone DataState = iota
	DataLoading
	DataReady
	DataFailed
)

func (d DataState) String() string {
	switch d {
	case DataLoading:
		return "loading"
	case DataReady:
		return "ready"
	case DataFailed:
		return "failed"
	default:
		return "none"
	}
}

func (d DataState) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DataState) UnmarshalText(b []byte) error {
	for c := DataNone; c <= DataFailed; c++ {
		if c.String() == string(b) {
			*d = c
			return nil
		}
	}
	return fmt.Errorf("unknown data state %q", b)
}

// Snapshot is everything a client needs to draw one frame.
type Snapshot struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Camera    viewport.Camera `json:"camera"`
	Map       MapView         `json:"map"`
	Data      DataView        `json:"data"`
	Selection SelectionView   `json:"selection"`
	Overlay   OverlayView     `json:"overlay"`
}

type MapView struct {
	State render.State  `json:"state"`
	Error string        `json:"error,omitempty"`
	Mode  colormap.Mode `json:"mode"`
	Stops int           `json:"stops"`
	ETag  string        `json:"etag,omitempty"`
}

type DataView struct {
	State     DataState  `json:"state"`
	Error     string     `json:"error,omitempty"`
	Rows      int        `json:"rows"`
	Series    int        `json:"series"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type SelectionView struct {
	State    selection.State   `json:"state"`
	ID       model.Identifier  `json:"id,omitempty"`
	Name     string            `json:"name,omitempty"`
	Centroid *model.LngLat     `json:"centroid,omitempty"`
	Value    *float64          `json:"value,omitempty"`
	Percent  *float64          `json:"percent,omitempty"`
	Forecast *float64          `json:"forecast_percent,omitempty"`
	Detail   model.DetailInfo  `json:"detail,omitempty"`
	Message  string            `json:"message,omitempty"`
}

type OverlayView struct {
	Anchor   *model.Point    `json:"anchor,omitempty"`
	Panel    model.Rect      `json:"panel"`
	Segments []model.Segment `json:"segments"`
}

// shown in the panel when there is nothing to say about the selection
const NoDataMessage = "no data"
