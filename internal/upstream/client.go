// Package upstream talks to the external data and detail APIs.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/county-overlay/internal/core/httpclient"
	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
)

const maxBodyBytes = 32 << 20

var (
	ErrStatus    = errors.New("upstream returned non-2xx status")
	ErrMalformed = errors.New("malformed upstream body")
)

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

type Options struct {
	BaseURL string
	// map-service access token, sent as access_token when set
	Token string
	// requests per second across callers of this client; <= 0 is unlimited
	RPS    float64
	Client *http.Client
	Log    *slog.Logger
}

type caller struct {
	name    string
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func newCaller(name string, o Options) (*caller, error) {
	if o.BaseURL == "" {
		return nil, fmt.Errorf("%s url is empty", name)
	}
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s url %q: unsupported scheme", name, o.BaseURL)
	}
	c := &caller{name: name, base: u, token: o.Token, http: o.Client, log: o.Log}
	if c.http == nil {
		c.http = httpclient.NewOutbound(0)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if o.RPS > 0 {
		burst := int(o.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	return c, nil
}

// get performs one GET with extra query params merged into the base URL.
func (c *caller) get(ctx context.Context, params url.Values) (body []byte, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveUpstreamLatency(c.name, time.Since(start).Seconds())
		if err != nil && ctx.Err() == nil {
			observability.IncLoadFailure(c.name)
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limit: %w", c.name, err)
		}
	}

	u := *c.base
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	if c.token != "" {
		q.Set("access_token", c.token)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", c.name, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%s body exceeds %d bytes: %w", c.name, maxBodyBytes, ErrMalformed)
	}
	return body, nil
}
