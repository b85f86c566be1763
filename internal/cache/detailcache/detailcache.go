// Package detailcache puts a read-through byte store in front of a detail fetcher.
package detailcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/county-overlay/internal/cache"
	"github.com/mohammed-shakir/county-overlay/internal/cache/keys"
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/upstream"
)

const DefaultTTL = 10 * time.Minute

// Fetcher implements upstream.DetailFetcher. Store failures are logged and
// fall through to the upstream; upstream failures are never cached.
type Fetcher struct {
	next   upstream.DetailFetcher
	store  cache.Store
	source string
	ttl    time.Duration
	log    *slog.Logger
}

// New decorates next. source distinguishes detail APIs sharing one store.
func New(next upstream.DetailFetcher, store cache.Store, source string, ttl time.Duration, log *slog.Logger) *Fetcher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{next: next, store: store, source: source, ttl: ttl, log: log}
}

func (f *Fetcher) FetchDetail(ctx context.Context, id model.Identifier) (model.DetailInfo, error) {
	key := keys.DetailKey(f.source, id)

	raw, found, err := f.store.Get(ctx, key)
	switch {
	case err != nil:
		f.log.WarnContext(ctx, "detail cache get failed", "key", key, "err", err)
	case found:
		var info model.DetailInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			return info, nil
		}
		f.log.WarnContext(ctx, "detail cache entry unreadable; refetching", "key", key)
	}

	info, err := f.next.FetchDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = model.DetailInfo{}
	}
	if b, err := json.Marshal(info); err == nil {
		if err := f.store.Set(ctx, key, b, f.ttl); err != nil {
			f.log.WarnContext(ctx, "detail cache set failed", "key", key, "err", err)
		}
	}
	return info, nil
}

// Invalidate drops cached details for ids.
func (f *Fetcher) Invalidate(ctx context.Context, ids ...model.Identifier) error {
	ks := make([]string, 0, len(ids))
	for _, id := range ids {
		ks = append(ks, keys.DetailKey(f.source, id))
	}
	return f.store.Del(ctx, ks...)
}
