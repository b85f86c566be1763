package geoid

import (
	"encoding/json"
	"testing"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

func TestNormalize_PadsAndPrefixes(t *testing.T) {
	cases := []struct {
		in   any
		want model.Identifier
	}{
		{"1001", "0500000US01001"},
		{"103", "0500000US00103"},
		{"06037", "0500000US06037"},
		{" 6037 ", "0500000US06037"},
		{"0500000US1001", "0500000US01001"},
		{float64(1001), "0500000US01001"},
		{json.Number("48201"), "0500000US48201"},
		{7, "0500000US00007"},
	}
	for _, c := range cases {
		got, ok := Normalize(c.in)
		if !ok {
			t.Fatalf("Normalize(%v) rejected", c.in)
		}
		if got != c.want {
			t.Fatalf("Normalize(%v)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, raw := range []string{"1", "12", "103", "1001", "48201", "0500000US00001"} {
		once, ok := Normalize(raw)
		if !ok {
			t.Fatalf("Normalize(%q) rejected", raw)
		}
		twice, ok := Normalize(once)
		if !ok {
			t.Fatalf("Normalize(%q) rejected on second pass", once)
		}
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q", once, twice)
		}
	}
}

func TestNormalize_Rejects(t *testing.T) {
	for _, raw := range []any{"", "abc", "123456", "10.5", float64(10.5), -3, nil, true, "0500000US"} {
		if id, ok := Normalize(raw); ok {
			t.Fatalf("Normalize(%v)=%q want rejection", raw, id)
		}
	}
}

func TestNormalizer_CustomWidth(t *testing.T) {
	state := Normalizer{Prefix: "0400000US", Width: 2}
	if got, ok := state.Normalize("6"); !ok || got != "0400000US06" {
		t.Fatalf("got=%q want 0400000US06", got)
	}
	bare := Normalizer{}
	if got, ok := bare.Normalize("42"); !ok || got != "42" {
		t.Fatalf("got=%q want 42", got)
	}
}
