// Package refresh listens for data-feed updates on Kafka and refreshes every
// live map session when one arrives.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
	"github.com/mohammed-shakir/county-overlay/internal/geoid"
)

// Refresher is implemented by session.Registry.
type Refresher interface {
	RefreshAll(ctx context.Context) int
}

// DetailInvalidator is implemented by detailcache.Fetcher.
type DetailInvalidator interface {
	Invalidate(ctx context.Context, ids ...model.Identifier) error
}

type Options struct {
	Logger  *slog.Logger
	Details DetailInvalidator
	IDs     geoid.Normalizer
}

type Runner struct {
	log      *slog.Logger
	cfg      Config
	target   Refresher
	details  DetailInvalidator
	ids      geoid.Normalizer
	seq      *seqDedupe
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func New(cfg Config, target Refresher, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IDs == (geoid.Normalizer{}) {
		opts.IDs = geoid.County
	}
	return &Runner{
		log:     opts.Logger,
		cfg:     cfg.withDefaults(),
		target:  target,
		details: opts.Details,
		ids:     opts.IDs,
		seq:     newSeqDedupe(1024),
		assign:  map[int32]struct{}{},
	}
}

func (r *Runner) Enabled() bool { return r.cfg.Enabled }

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("refresh runner disabled")
		return nil
	}
	if r.target == nil {
		return errors.New("refresh runner: target is required")
	}
	if len(r.cfg.Brokers) == 0 {
		return errors.New("refresh runner: no brokers configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("consumer group: %w", err)
	}

	h := &groupHandler{setup: r.onAssign, cleanup: r.onRevoke, process: r.handleMessage}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("refresh runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("refresh runner stopped")
}

// Readiness reports whether partitions are assigned. A disabled runner is always ready.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.cfg.Enabled {
		return true, nil
	}
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

func (r *Runner) onAssign(sess sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(true)
	r.assign = map[int32]struct{}{}
	for _, parts := range sess.Claims() {
		for _, p := range parts {
			r.assign[p] = struct{}{}
		}
	}
}

func (r *Runner) onRevoke(sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(false)
	r.assign = map[int32]struct{}{}
}

// handleMessage never fails on a bad payload; a poison message would
// otherwise stall its partition.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncRefreshEvent("invalid")
		r.log.WarnContext(ctx, "refresh event decode failed",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		observability.IncRefreshEvent("invalid")
		r.log.WarnContext(ctx, "refresh event rejected",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if r.cfg.Dataset != "" && ev.Dataset != r.cfg.Dataset {
		observability.IncRefreshEvent("ignored")
		return nil
	}
	if !r.seq.shouldApply(ev.Dataset, ev.Seq) {
		observability.IncRefreshEvent("duplicate")
		r.log.DebugContext(ctx, "refresh event already applied", "dataset", ev.Dataset, "seq", ev.Seq)
		return nil
	}

	if r.details != nil && len(ev.IDs) > 0 {
		ids := make([]model.Identifier, 0, len(ev.IDs))
		for _, raw := range ev.IDs {
			if id, ok := r.ids.Normalize(raw); ok {
				ids = append(ids, id)
			}
		}
		if err := r.details.Invalidate(ctx, ids...); err != nil {
			// sessions still refresh; cached details age out by ttl
			r.log.WarnContext(ctx, "detail invalidation failed", "ids", len(ids), "err", err)
		}
	}

	n := r.target.RefreshAll(ctx)
	observability.IncRefreshEvent("applied")
	r.log.InfoContext(ctx, "data refresh applied",
		"dataset", ev.Dataset, "seq", ev.Seq, "sessions", n)
	return nil
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
