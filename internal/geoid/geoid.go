// Package geoid normalizes geographic region codes into join identifiers.
package geoid

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

const (
	// Census summary-level prefix for counties
	CountyPrefix = "0500000US"
	// state (2) + county (3) FIPS digits
	CountyWidth = 5
)

// Normalizer prepends Prefix to a left-zero-padded code of Width digits.
type Normalizer struct {
	Prefix string
	Width  int
}

var County = Normalizer{Prefix: CountyPrefix, Width: CountyWidth}

// Normalize applies the county convention.
func Normalize(raw any) (model.Identifier, bool) {
	return County.Normalize(raw)
}

func (n Normalizer) Normalize(raw any) (model.Identifier, bool) {
	code, ok := codeString(raw)
	if !ok {
		return "", false
	}
	code = strings.TrimSpace(code)
	if n.Prefix != "" {
		code = strings.TrimPrefix(code, n.Prefix)
	}
	if code == "" || !allDigits(code) {
		return "", false
	}
	if n.Width > 0 {
		if len(code) > n.Width {
			return "", false
		}
		code = strings.Repeat("0", n.Width-len(code)) + code
	}
	return model.Identifier(n.Prefix + code), true
}

func codeString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case model.Identifier:
		return string(v), true
	case json.Number:
		return integral(v.String())
	case float64:
		return floatCode(v)
	case float32:
		return floatCode(float64(v))
	case int:
		return strconv.Itoa(v), v >= 0
	case int32:
		return strconv.FormatInt(int64(v), 10), v >= 0
	case int64:
		return strconv.FormatInt(v, 10), v >= 0
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	default:
		return "", false
	}
}

// json numbers arrive as floats; only whole, non-negative values are codes
func floatCode(f float64) (string, bool) {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

func integral(s string) (string, bool) {
	if allDigits(s) {
		return s, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	return floatCode(f)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
