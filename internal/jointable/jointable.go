// Package jointable builds the identifier -> value tables painted onto boundaries.
package jointable

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
	"github.com/mohammed-shakir/county-overlay/internal/geoid"
)

// Row is one decoded record of the data feed.
type Row = map[string]any

type Spec struct {
	IDField       string
	ValueField    string
	ForecastField string
	IDs           geoid.Normalizer
}

func (s Spec) withDefaults() Spec {
	if s.IDField == "" {
		s.IDField = "GEOID"
	}
	if s.ValueField == "" {
		s.ValueField = "value"
	}
	if s.IDs == (geoid.Normalizer{}) {
		s.IDs = geoid.County
	}
	return s
}

// Table is immutable once built; lookups never fail.
type Table struct {
	m map[model.Identifier]float64
}

var empty = &Table{m: map[model.Identifier]float64{}}

func Empty() *Table { return empty }

// Build keys rows by normalized identifier; rows without a numeric value are skipped,
// later rows overwrite earlier ones for the same identifier.
func Build(rows []Row, spec Spec) *Table {
	spec = spec.withDefaults()
	t, skipped := build(rows, spec.IDField, spec.ValueField, spec.IDs)
	observability.AddJoinRowsSkipped(skipped)
	return t
}

func build(rows []Row, idField, valueField string, ids geoid.Normalizer) (*Table, int) {
	m := make(map[model.Identifier]float64, len(rows))
	skipped := 0
	for _, row := range rows {
		id, ok := ids.Normalize(row[idField])
		if !ok {
			skipped++
			continue
		}
		v, ok := number(row[valueField])
		if !ok {
			skipped++
			continue
		}
		m[id] = v
	}
	return &Table{m: m}, skipped
}

// Get returns 0 for unknown identifiers.
func (t *Table) Get(id model.Identifier) float64 {
	v, _ := t.Lookup(id)
	return v
}

func (t *Table) Lookup(id model.Identifier) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.m[id]
	return v, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.m)
}

// IDs sorted for deterministic iteration
func (t *Table) IDs() []model.Identifier {
	if t == nil {
		return nil
	}
	out := make([]model.Identifier, 0, len(t.m))
	for id := range t.m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Set is the primary table plus the optional forecast-delta table of one refresh.
type Set struct {
	Values   *Table
	Forecast *Table
}

func EmptySet() Set { return Set{Values: empty, Forecast: empty} }

func BuildSet(rows []Row, spec Spec) Set {
	spec = spec.withDefaults()
	values, skipped := build(rows, spec.IDField, spec.ValueField, spec.IDs)
	observability.AddJoinRowsSkipped(skipped)
	set := Set{Values: values, Forecast: empty}
	if spec.ForecastField != "" {
		// rows without a forecast are expected and not counted
		set.Forecast, _ = build(rows, spec.IDField, spec.ForecastField, spec.IDs)
	}
	return set
}

func number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
