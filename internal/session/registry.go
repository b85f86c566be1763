package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
)

const DefaultMaxSessions = 1024

// Registry holds the live sessions. The least recently used one is closed
// when the bound is reached.
type Registry struct {
	deps Deps
	log  *slog.Logger

	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	// set while the registry itself removes an entry so onEvict knows why
	reason string
	closed bool
}

func NewRegistry(size int, deps Deps) (*Registry, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	deps = deps.withDefaults()
	r := &Registry{deps: deps, log: deps.Log.With("component", "sessions")}
	c, err := lru.NewWithEvict[string, *Session](size, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("session lru: %w", err)
	}
	r.sessions = c
	return r, nil
}

// onEvict runs with r.mu held.
func (r *Registry) onEvict(_ string, s *Session) {
	reason := r.reason
	if reason == "" {
		reason = "evicted"
	}
	observability.IncSessionClosed(reason)
	// closing waits for the loop, so do it outside the lock
	go s.closeWith(reason)
}

func (r *Registry) Create(opts Options) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	s := newSession(uuid.NewString(), r.deps, opts)
	r.sessions.Add(s.id, s)
	observability.SetSessionsLive(r.sessions.Len())
	r.log.Debug("session created", "session_id", s.id)
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// Delete closes the session and waits for its loop to stop.
func (r *Registry) Delete(id string) error {
	s, ok := r.remove(id, "explicit")
	if !ok {
		return ErrNotFound
	}
	<-s.Done()
	return nil
}

func (r *Registry) remove(id, reason string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions.Peek(id)
	if !ok {
		return nil, false
	}
	r.reason = reason
	r.sessions.Remove(id)
	r.reason = ""
	observability.SetSessionsLive(r.sessions.Len())
	return s, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len()
}

func (r *Registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Values()
}

// RefreshAll starts a data refresh on every live session and returns how
// many accepted it.
func (r *Registry) RefreshAll(ctx context.Context) int {
	n := 0
	for _, s := range r.snapshot() {
		if err := s.Refresh(ctx); err != nil {
			r.log.DebugContext(ctx, "refresh skipped", "session_id", s.id, "err", err)
			continue
		}
		n++
	}
	return n
}

// Sweep closes sessions idle for longer than idle.
func (r *Registry) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := r.deps.Clock.Now().Add(-idle)
	n := 0
	for _, s := range r.snapshot() {
		if s.LastActive().Before(cutoff) {
			if _, ok := r.remove(s.id, "idle"); ok {
				n++
			}
		}
	}
	return n
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, every, idle time.Duration) {
	if every <= 0 || idle <= 0 {
		return
	}
	t := r.deps.Clock.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if n := r.Sweep(idle); n > 0 {
				r.log.Info("idle sessions closed", "count", n)
			}
		}
	}
}

// Close shuts every session down and refuses new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := r.sessions.Values()
	r.reason = "shutdown"
	r.sessions.Purge()
	r.reason = ""
	observability.SetSessionsLive(0)
	r.mu.Unlock()
	for _, s := range all {
		<-s.Done()
	}
}
