package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammed-shakir/county-overlay/internal/jointable"
)

func TestParseDataset_Rows(t *testing.T) {
	ds, err := ParseDataset([]byte(`[{"GEOID":"103","value":0.6},{"GEOID":1001,"value":0.2},42,null,{"GEOID":"103","value":0.9}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ds.Rows) != 3 {
		t.Fatalf("rows=%d want 3", len(ds.Rows))
	}
	tbl := jointable.Build(ds.Rows, jointable.Spec{})
	if got := tbl.Get("0500000US00103"); got != 0.9 {
		t.Fatalf("103=%v want 0.9", got)
	}
	if got := tbl.Get("0500000US01001"); got != 0.2 {
		t.Fatalf("1001=%v want 0.2", got)
	}
}

func TestParseDataset_FeatureCollection(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"GEOID":"01001","normalized_speed":0.75},"geometry":null},
		{"type":"Feature","properties":null,"geometry":null}]}`
	ds, err := ParseDataset([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tbl := jointable.Build(ds.Rows, jointable.Spec{ValueField: "normalized_speed"})
	if tbl.Len() != 1 || tbl.Get("0500000US01001") != 0.75 {
		t.Fatalf("table len=%d", tbl.Len())
	}
}

func TestParseDataset_Forecast(t *testing.T) {
	body := `{"forecast":{"2024-03":12.5,"2024-02":11},"historical_data":[{"month":"2024-01","value":10},{"month":"2024-02","value":10.5},{"month":"","value":1}]}`
	ds, err := ParseDataset([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ds.Rows) != 0 || len(ds.Series) != 4 {
		t.Fatalf("rows=%d series=%v", len(ds.Rows), ds.Series)
	}
	want := []struct {
		month    string
		forecast bool
	}{{"2024-01", false}, {"2024-02", false}, {"2024-02", true}, {"2024-03", true}}
	for i, w := range want {
		if ds.Series[i].Month != w.month || ds.Series[i].Forecast != w.forecast {
			t.Fatalf("series[%d]=%+v want %+v", i, ds.Series[i], w)
		}
	}
}

func TestParseDataset_Malformed(t *testing.T) {
	for _, body := range []string{``, `{`, `"x"`, `{"foo":1}`, `[1,`} {
		if _, err := ParseDataset([]byte(body)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("body %q: err=%v want ErrMalformed", body, err)
		}
	}
}

func TestParseDetail_KeepsOrder(t *testing.T) {
	info, err := ParseDetail([]byte(`{"sentiment":"positive","score":0.82,"missing":null,"tags":["a","b"],"summary":"steady"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"sentiment=positive", "score=0.82", `tags=["a","b"]`, "summary=steady"}
	if len(info) != len(want) {
		t.Fatalf("info=%v", info)
	}
	for i, w := range want {
		if got := info[i].Label + "=" + info[i].Text; got != w {
			t.Fatalf("entry %d=%q want %q", i, got, w)
		}
	}
	if _, err := ParseDetail([]byte(`[1]`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("array accepted: %v", err)
	}
	if _, err := ParseDetail([]byte(`{`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("broken json accepted: %v", err)
	}
}

func TestDetailClient_SendsIDAndToken(t *testing.T) {
	var gotID, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.URL.Query().Get("geoid")
		gotToken = r.URL.Query().Get("access_token")
		_, _ = w.Write([]byte(`{"county":"Autauga"}`))
	}))
	defer srv.Close()

	c, err := NewDetailClient(Options{BaseURL: srv.URL + "/api/county-info?src=x", Token: "tok"}, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	info, err := c.FetchDetail(context.Background(), "0500000US01001")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotID != "0500000US01001" || gotToken != "tok" {
		t.Fatalf("id=%q token=%q", gotID, gotToken)
	}
	if v, _ := info.Get("county"); v != "Autauga" {
		t.Fatalf("info=%v", info)
	}
}

func TestDataClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewDataClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.FetchDataset(context.Background())
	var se *StatusError
	if !errors.Is(err, ErrStatus) || !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("err=%v", err)
	}
}

func TestDataClient_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewDataClient(Options{BaseURL: srv.URL, RPS: 0.5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := c.FetchDataset(context.Background()); err != nil {
		t.Fatalf("first: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.FetchDataset(ctx); err == nil {
		t.Fatal("second call within the limit window succeeded")
	}
	if hits.Load() != 1 {
		t.Fatalf("hits=%d want 1", hits.Load())
	}
}

func TestNewCallerRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "://"} {
		if _, err := NewDataClient(Options{BaseURL: u}); err == nil {
			t.Fatalf("url %q accepted", u)
		}
	}
}
