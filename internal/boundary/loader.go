package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
)

const maxDatasetBytes = 256 << 20

// Loader loads the dataset once per process; every caller shares the result.
type Loader struct {
	source string
	opts   Options
	client *http.Client
	log    *slog.Logger

	once sync.Once
	done chan struct{}
	ds   *Dataset
	err  error
}

func NewLoader(source string, opts Options, client *http.Client, log *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		source: strings.TrimSpace(source),
		opts:   opts,
		client: client,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Start begins the load in the background; later calls are no-ops.
func (l *Loader) Start(ctx context.Context) {
	l.once.Do(func() {
		go func() {
			defer close(l.done)
			start := time.Now()
			l.ds, l.err = l.load(ctx)
			observability.ObserveUpstreamLatency("boundary", time.Since(start).Seconds())
			if l.err != nil {
				observability.IncLoadFailure("boundary")
				l.log.Error("boundary load failed", "source", l.source, "err", l.err)
				return
			}
			l.log.Info("boundaries loaded", "source", l.source, "features", l.ds.Len(),
				"took_ms", time.Since(start).Milliseconds())
		}()
	})
}

// Wait blocks until the load finished or ctx ends.
func (l *Loader) Wait(ctx context.Context) (*Dataset, error) {
	l.Start(context.WithoutCancel(ctx))
	select {
	case <-l.done:
		return l.ds, l.err
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for boundaries: %w", ctx.Err())
	}
}

// Loaded reports a finished, successful load without blocking.
func (l *Loader) Loaded() bool {
	select {
	case <-l.done:
		return l.err == nil
	default:
		return false
	}
}

func (l *Loader) load(ctx context.Context) (*Dataset, error) {
	if l.source == "" {
		return nil, errors.New("boundary source is not configured")
	}
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(l.source, "http://") || strings.HasPrefix(l.source, "https://") {
		data, err = l.fetch(ctx)
	} else {
		data, err = os.ReadFile(l.source)
	}
	if err != nil {
		return nil, fmt.Errorf("read boundaries %q: %w", l.source, err)
	}
	ds, err := Parse(data, l.opts)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries %q: %w", l.source, err)
	}
	return ds, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Static wraps an already parsed dataset, mostly for tests.
func Static(ds *Dataset) *Loader {
	l := &Loader{done: make(chan struct{}), ds: ds, log: slog.Default()}
	l.once.Do(func() {})
	close(l.done)
	return l
}

// Failed is a loader whose load already failed.
func Failed(err error) *Loader {
	l := &Loader{done: make(chan struct{}), err: err, log: slog.Default()}
	l.once.Do(func() {})
	close(l.done)
	return l
}
