package upstream

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

const DefaultIDParam = "geoid"

type DetailFetcher interface {
	FetchDetail(ctx context.Context, id model.Identifier) (model.DetailInfo, error)
}

type DetailClient struct {
	c       *caller
	idParam string
}

// NewDetailClient builds a client that sends the identifier as idParam
// (DefaultIDParam when empty).
func NewDetailClient(o Options, idParam string) (*DetailClient, error) {
	c, err := newCaller("detail", o)
	if err != nil {
		return nil, err
	}
	if idParam == "" {
		idParam = DefaultIDParam
	}
	return &DetailClient{c: c, idParam: idParam}, nil
}

func (d *DetailClient) FetchDetail(ctx context.Context, id model.Identifier) (model.DetailInfo, error) {
	body, err := d.c.get(ctx, url.Values{d.idParam: {string(id)}})
	if err != nil {
		return nil, err
	}
	info, err := ParseDetail(body)
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", id, err)
	}
	return info, nil
}

// ParseDetail reads a flat JSON object into label/text pairs in document
// order. Strings are used verbatim, other values as their JSON text, and
// nulls are left out.
func ParseDetail(body []byte) (model.DetailInfo, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON: %w", ErrMalformed)
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return nil, fmt.Errorf("detail is not an object: %w", ErrMalformed)
	}
	info := model.DetailInfo{}
	res.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
		case gjson.String:
			info = append(info, model.DetailEntry{Label: key.String(), Text: value.String()})
		default:
			info = append(info, model.DetailEntry{Label: key.String(), Text: value.Raw})
		}
		return true
	})
	return info, nil
}
