package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestSetGetDel_HappyPath(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "k1", []byte("v1"), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, found, err := rc.Get(ctx, "k1")
	if err != nil || !found || string(got) != "v1" {
		t.Fatalf("Get got=%q found=%v err=%v", got, found, err)
	}

	if _, found, err := rc.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("missing key found=%v err=%v", found, err)
	}

	if err := rc.Del(ctx, "k1"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, found, _ := rc.Get(ctx, "k1"); found {
		t.Fatal("key survived Del")
	}
	if err := rc.Del(ctx); err != nil {
		t.Fatalf("empty Del: %v", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "ttl-key", []byte("v"), 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(3 * time.Second)

	if _, found, err := rc.Get(ctx, "ttl-key"); err != nil || found {
		t.Fatalf("expected ttl-key to be absent after expiry; found=%v err=%v", found, err)
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected error on Set with canceled context")
	}
	if _, _, err := rc.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error on Get with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty address")
	}
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := New(ctx, addr, WithDialTimeout(100*time.Millisecond)); err == nil {
		t.Fatal("expected ping error for closed server")
	}
}

func TestMetrics_Incremented(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = rc.Set(ctx, "m1", []byte("x"), time.Minute)
	_, _, _ = rc.Get(ctx, "m1")
	_, _, _ = rc.Get(ctx, "m2")
	_ = rc.Del(ctx, "m1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`cache_op_total{op="set"`,
		`cache_op_total{op="get"`,
		`cache_op_total{op="del"`,
		`cache_results_total{outcome="hit"}`,
		`cache_results_total{outcome="miss"}`,
		`redis_operation_duration_seconds_bucket{op="set"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s; got:\n%s", want, body)
		}
	}
}
