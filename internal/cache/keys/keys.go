// Package keys builds Redis keys for cached upstream responses.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
)

const maxSourceTextLen = 64

// DetailKey names the cached detail of one identifier from one detail source.
// The source (usually the detail URL) is kept readable but shortened; the
// hash suffix keeps distinct sources apart after shortening.
func DetailKey(source string, id model.Identifier) string {
	src := strings.TrimSpace(source)
	safe := sanitize(src)
	if len(safe) > maxSourceTextLen {
		safe = safe[:maxSourceTextLen]
	}
	return fmt.Sprintf("detail:%s:%s:s=%016x", safe, sanitize(string(id)), xxhash.Sum64String(src))
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// separators, punctuation and non-ASCII
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
