package metrics

import (
	"strings"
	"testing"

	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_DomainMetrics_ThroughProvider(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}, Path: "/m"})

	observability.ObserveHTTP("POST", "/sessions/{id}/click", 200, 0.004)
	observability.IncDetailResult("ready")
	observability.IncCacheHit()
	observability.ObserveCacheOp("get", nil, 0.002)
	observability.SetSessionsLive(3)
	observability.IncSessionClosed("evicted")

	body := scrape(t, p)
	for _, s := range []string{
		`redis_operation_duration_seconds_count{op="get"}`,
		`cache_results_total{outcome="hit"} `,
		`map_sessions_live 3`,
		`map_sessions_closed_total{reason="evicted"} `,
	} {
		if !strings.Contains(body, s) {
			t.Fatalf("expected metrics to contain %q;\n---\n%s", s, body)
		}
	}
	assertHasMetricLine(t, body, "http_requests_total",
		`method="POST"`, `route="/sessions/{id}/click"`, `status="200"`)
	assertHasMetricLine(t, body, "detail_results_total", `outcome="ready"`)
	assertHasMetricLine(t, body, "app_build_info", `version="test"`)
}
