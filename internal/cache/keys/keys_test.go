package keys

import (
	"regexp"
	"strings"
	"testing"
)

var allowed = regexp.MustCompile(`^[A-Za-z0-9:_=.\-]+$`)

func TestDetailKey_Deterministic(t *testing.T) {
	k1 := DetailKey("https://api.example.com/api/county-info", "0500000US01001")
	k2 := DetailKey(" https://api.example.com/api/county-info ", "0500000US01001")
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !allowed.MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
	if !strings.HasPrefix(k1, "detail:https-api.example.com-api-county-info:0500000US01001:s=") {
		t.Fatalf("unexpected key: %s", k1)
	}
}

func TestDetailKey_DistinguishesSourceAndID(t *testing.T) {
	base := DetailKey("https://a/detail", "0500000US01001")
	if base == DetailKey("https://a/detail", "0500000US01003") {
		t.Fatal("ids collide")
	}
	// same sanitized text, different raw source
	if DetailKey("https://a/detail?x", "0500000US01001") == DetailKey("https://a/detail-x", "0500000US01001") {
		t.Fatal("sources collide")
	}
}

func TestDetailKey_LongSourceIsBounded(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("segment/", 40)
	k := DetailKey(long, "0500000US01001")
	if len(k) > len("detail:")+maxSourceTextLen+len(":0500000US01001:s=")+16 {
		t.Fatalf("key too long (%d): %s", len(k), k)
	}
	if DetailKey(long+"a", "0500000US01001") == k {
		t.Fatal("hash did not separate long sources")
	}
}

func TestSanitize_CollapsesRuns(t *testing.T) {
	if got := sanitize("a  b//c\tö"); got != "a_b-c_-" {
		t.Fatalf("got %q", got)
	}
}
