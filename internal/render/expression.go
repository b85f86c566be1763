package render

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/county-overlay/internal/colormap"
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

const DefaultProperty = "GEO_ID"

type Stop struct {
	ID    model.Identifier `json:"id"`
	Color colormap.Color   `json:"color"`
}

// FillExpression is a discrete match table from identifier to fill color.
// It marshals to a Mapbox style expression:
//
//	["match", ["get", "GEO_ID"], "0500000US01001", "#f284bc", ..., "#cccccc"]
type FillExpression struct {
	Property string
	Mode     colormap.Mode
	Stops    []Stop
	Fallback colormap.Color
}

func buildExpression(property string, mode colormap.Mode, ids []model.Identifier, colorOf func(model.Identifier) colormap.Color, fallback colormap.Color) *FillExpression {
	stops := make([]Stop, 0, len(ids))
	for _, id := range ids {
		stops = append(stops, Stop{ID: id, Color: colorOf(id)})
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].ID < stops[j].ID })
	return &FillExpression{Property: property, Mode: mode, Stops: stops, Fallback: fallback}
}

// ColorOf resolves one identifier the way the map would paint it.
func (e *FillExpression) ColorOf(id model.Identifier) colormap.Color {
	i := sort.Search(len(e.Stops), func(i int) bool { return e.Stops[i].ID >= id })
	if i < len(e.Stops) && e.Stops[i].ID == id {
		return e.Stops[i].Color
	}
	return e.Fallback
}

// a match expression needs at least one pair, so an empty table is just the fallback
func (e *FillExpression) MarshalJSON() ([]byte, error) {
	if len(e.Stops) == 0 {
		return json.Marshal(e.Fallback.String())
	}
	out := make([]any, 0, 3+2*len(e.Stops))
	out = append(out, "match", []string{"get", e.Property})
	for _, s := range e.Stops {
		out = append(out, string(s.ID), s.Color.String())
	}
	out = append(out, e.Fallback.String())
	return json.Marshal(out)
}

// Fingerprint is stable for equal expressions and is used as the HTTP ETag.
func (e *FillExpression) Fingerprint() string {
	h := xxhash.New()
	_, _ = h.WriteString(e.Property)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(e.Fallback.String())
	for _, s := range e.Stops {
		_, _ = h.WriteString("|")
		_, _ = h.WriteString(string(s.ID))
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(s.Color.String())
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
