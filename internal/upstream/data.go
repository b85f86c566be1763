package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/jointable"
)

// Dataset is one refresh worth of tabular data.
type Dataset struct {
	Rows   []jointable.Row
	Series model.Series
}

type DataFetcher interface {
	FetchDataset(ctx context.Context) (Dataset, error)
}

type DataClient struct {
	c *caller
}

func NewDataClient(o Options) (*DataClient, error) {
	c, err := newCaller("data", o)
	if err != nil {
		return nil, err
	}
	return &DataClient{c: c}, nil
}

func (d *DataClient) FetchDataset(ctx context.Context) (Dataset, error) {
	body, err := d.c.get(ctx, nil)
	if err != nil {
		return Dataset{}, err
	}
	ds, err := ParseDataset(body)
	if err != nil {
		d.c.log.WarnContext(ctx, "data body rejected", "err", err, "bytes", len(body))
		return Dataset{}, err
	}
	return ds, nil
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

type forecastBody struct {
	Forecast       map[string]json.Number `json:"forecast"`
	HistoricalData []struct {
		Month string      `json:"month"`
		Value json.Number `json:"value"`
	} `json:"historical_data"`
}

// ParseDataset accepts a JSON array of rows, a GeoJSON FeatureCollection whose
// feature properties are rows, or a forecast object with forecast and
// historical_data members. Numbers are kept as json.Number.
func ParseDataset(body []byte) (Dataset, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Dataset{}, fmt.Errorf("empty body: %w", ErrMalformed)
	}
	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := decode(trimmed, &raw); err != nil {
			return Dataset{}, err
		}
		rows := make([]jointable.Row, 0, len(raw))
		for _, r := range raw {
			var row map[string]any
			// non-object elements contribute nothing
			if err := decode(r, &row); err != nil || row == nil {
				continue
			}
			rows = append(rows, row)
		}
		return Dataset{Rows: rows}, nil
	case '{':
		var probe struct {
			Type           string          `json:"type"`
			Forecast       json.RawMessage `json:"forecast"`
			HistoricalData json.RawMessage `json:"historical_data"`
		}
		if err := decode(trimmed, &probe); err != nil {
			return Dataset{}, err
		}
		switch {
		case probe.Type == "FeatureCollection":
			return parseFeatures(trimmed)
		case probe.Forecast != nil || probe.HistoricalData != nil:
			return parseForecast(trimmed)
		}
		return Dataset{}, fmt.Errorf("object has neither features nor forecast: %w", ErrMalformed)
	default:
		return Dataset{}, fmt.Errorf("unexpected top-level JSON value: %w", ErrMalformed)
	}
}

func parseFeatures(body []byte) (Dataset, error) {
	var fc featureCollection
	if err := decode(body, &fc); err != nil {
		return Dataset{}, err
	}
	rows := make([]jointable.Row, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Properties != nil {
			rows = append(rows, f.Properties)
		}
	}
	return Dataset{Rows: rows}, nil
}

func parseForecast(body []byte) (Dataset, error) {
	var fb forecastBody
	if err := decode(body, &fb); err != nil {
		return Dataset{}, err
	}
	series := make(model.Series, 0, len(fb.HistoricalData)+len(fb.Forecast))
	for _, h := range fb.HistoricalData {
		v, err := h.Value.Float64()
		if h.Month == "" || err != nil {
			continue
		}
		series = append(series, model.SeriesPoint{Month: h.Month, Value: v})
	}
	for month, n := range fb.Forecast {
		v, err := n.Float64()
		if err != nil {
			continue
		}
		series = append(series, model.SeriesPoint{Month: month, Value: v, Forecast: true})
	}
	sort.SliceStable(series, func(i, j int) bool {
		if series[i].Month != series[j].Month {
			return series[i].Month < series[j].Month
		}
		return !series[i].Forecast && series[j].Forecast
	})
	return Dataset{Series: series}, nil
}

func decode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
