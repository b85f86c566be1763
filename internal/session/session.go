// Package session runs one map per client: a single event loop owns the
// viewport, renderer, selection and connector overlay, and all I/O results
// come back to it as events.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/county-overlay/internal/boundary"
	"github.com/mohammed-shakir/county-overlay/internal/colormap"
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/jointable"
	"github.com/mohammed-shakir/county-overlay/internal/logger"
	"github.com/mohammed-shakir/county-overlay/internal/overlay"
	"github.com/mohammed-shakir/county-overlay/internal/render"
	"github.com/mohammed-shakir/county-overlay/internal/selection"
	"github.com/mohammed-shakir/county-overlay/internal/selectionevents"
	"github.com/mohammed-shakir/county-overlay/internal/upstream"
	"github.com/mohammed-shakir/county-overlay/internal/viewport"
)

const (
	inboxSize           = 64
	defaultFetchTimeout = 10 * time.Second
)

// BoundarySource is satisfied by boundary.Loader.
type BoundarySource interface {
	Wait(ctx context.Context) (*boundary.Dataset, error)
}

// Deps are shared by every session of a registry.
type Deps struct {
	Boundaries   BoundarySource
	Data         upstream.DataFetcher
	Detail       upstream.DetailFetcher
	Join         jointable.Spec
	Mapper       colormap.Mapper
	Property     string
	Panel        overlay.Panel
	Events       selectionevents.Sink
	Clock        clockwork.Clock
	Log          *slog.Logger
	FetchTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Mapper.Positive == nil {
		d.Mapper = colormap.Default()
	}
	if d.Events == nil {
		d.Events = selectionevents.Nop{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.FetchTimeout <= 0 {
		d.FetchTimeout = defaultFetchTimeout
	}
	return d
}

// Options are per session.
type Options struct {
	Camera viewport.Camera
	Mode   colormap.Mode
}

type Session struct {
	id      string
	deps    Deps
	log     *slog.Logger
	created time.Time
	active  atomic.Int64

	inbox     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	helpers   sync.WaitGroup

	// owned by the loop goroutine
	vp        *viewport.Viewport
	rnd       *render.Renderer
	sel       *selection.Controller
	ov        *overlay.Overlay
	dataState DataState
	dataErr   error
	dataGen   uint64
	rows      int
	series    model.Series
	updatedAt time.Time
}

func newSession(id string, deps Deps, opts Options) *Session {
	deps = deps.withDefaults()
	ctx, cancel := context.WithCancel(logger.WithSession(context.Background(), id))
	s := &Session{
		id:      id,
		deps:    deps,
		log:     deps.Log,
		created: deps.Clock.Now(),
		inbox:   make(chan func(), inboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.touch()

	cam := opts.Camera
	if cam == (viewport.Camera{}) {
		cam = viewport.DefaultCamera()
	}
	s.vp = viewport.New(cam)
	s.rnd = render.New(s.vp, render.Options{Mapper: deps.Mapper, Mode: opts.Mode, Property: deps.Property})
	s.sel = selection.New(s)
	s.ov = overlay.New(s.vp, deps.Panel)

	go s.loop()
	s.post(s.boot)
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.created }

// LastActive is the time of the last client operation.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.active.Load()) }

func (s *Session) touch() { s.active.Store(s.deps.Clock.Now().UnixNano()) }

func (s *Session) loop() {
	defer close(s.done)
	defer s.teardown()
	for {
		select {
		case fn := <-s.inbox:
			s.run(fn)
		case <-s.quit:
			return
		}
	}
}

func (s *Session) run(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.ErrorContext(s.ctx, "session event panicked", "panic", fmt.Sprint(rec))
		}
	}()
	fn()
}

// teardown releases every viewport listener before the view goes away.
func (s *Session) teardown() {
	s.ov.Detach()
	s.vp.Close()
}

// post queues fn from a helper goroutine; it is dropped once the session closes.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.quit:
	}
}

// do runs fn on the loop and waits for it.
func (s *Session) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}
	select {
	case s.inbox <- wrapped:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// spawn runs fn off the loop; only called from the loop.
func (s *Session) spawn(fn func(ctx context.Context)) {
	s.helpers.Add(1)
	go func() {
		defer s.helpers.Done()
		fn(s.ctx)
	}()
}

func (s *Session) boot() {
	if s.deps.Boundaries == nil {
		s.rnd.BeginLoad()
		s.rnd.LoadFailed(errors.New("no boundary source configured"))
		return
	}
	s.rnd.BeginLoad()
	s.spawn(func(ctx context.Context) {
		ds, err := s.deps.Boundaries.Wait(ctx)
		s.post(func() {
			if err != nil {
				s.log.WarnContext(s.ctx, "boundary load failed", "err", err)
				s.rnd.LoadFailed(err)
				return
			}
			s.rnd.Loaded(ds)
		})
	})
	s.startRefresh()
}

// startRefresh fetches the data feed; a newer refresh supersedes an older one
// still in flight.
func (s *Session) startRefresh() {
	if s.deps.Data == nil {
		return
	}
	s.dataGen++
	gen := s.dataGen
	s.dataState = DataLoading
	s.spawn(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, s.deps.FetchTimeout)
		defer cancel()
		ds, err := s.deps.Data.FetchDataset(ctx)
		var set jointable.Set
		if err == nil {
			set = jointable.BuildSet(ds.Rows, s.deps.Join)
		}
		s.post(func() { s.applyData(gen, ds, set, err) })
	})
}

func (s *Session) applyData(gen uint64, ds upstream.Dataset, set jointable.Set, err error) {
	if gen != s.dataGen {
		return
	}
	if err != nil {
		// the previous tables stay painted
		s.dataState = DataFailed
		s.dataErr = err
		s.log.WarnContext(s.ctx, "data refresh failed", "err", err)
		return
	}
	s.dataState = DataReady
	s.dataErr = nil
	s.rows = len(ds.Rows)
	s.series = ds.Series
	s.updatedAt = s.deps.Clock.Now()
	s.rnd.SetTables(set)
}

// Dispatch implements selection.Dispatcher; it is called on the loop.
func (s *Session) Dispatch(req selection.Request) {
	detail := s.deps.Detail
	s.spawn(func(ctx context.Context) {
		var (
			info model.DetailInfo
			err  error
		)
		if detail == nil {
			err = ErrNoDetail
		} else {
			ctx, cancel := context.WithTimeout(ctx, s.deps.FetchTimeout)
			info, err = detail.FetchDetail(ctx, req.Selection.ID)
			cancel()
		}
		s.post(func() {
			if !s.sel.Resolve(req.Token, info, err) {
				s.log.DebugContext(s.ctx, "stale detail discarded", "geoid", req.Selection.ID)
				return
			}
			if err != nil {
				s.log.InfoContext(s.ctx, "detail fetch failed", "geoid", req.Selection.ID, "err", err)
			}
		})
	})
}

func (s *Session) pick(hit render.Hit, ok bool) {
	if !ok {
		s.clearSelection()
		return
	}
	sel := model.Selection{
		ID:       hit.Feature.ID,
		Name:     hit.Feature.Name,
		Value:    hit.Value,
		Centroid: hit.Centroid,
	}
	s.sel.Select(sel)
	s.ov.Attach(sel.Centroid)
	s.deps.Events.Publish(selectionevents.Event{
		Session: s.id,
		GeoID:   string(sel.ID),
		Name:    sel.Name,
		Lng:     sel.Centroid.Lng,
		Lat:     sel.Centroid.Lat,
		Mode:    s.rnd.Mode().String(),
		TS:      s.deps.Clock.Now(),
	})
}

func (s *Session) clearSelection() {
	s.sel.Clear()
	s.ov.Detach()
}

// Click resolves a pixel pick. Before the boundaries are ready it changes nothing.
func (s *Session) Click(ctx context.Context, p model.Point) (Snapshot, error) {
	return s.mutate(ctx, func() {
		if s.rnd.State() != render.StateReady {
			return
		}
		hit, ok := s.rnd.ResolveClick(p)
		s.pick(hit, ok)
	})
}

func (s *Session) Deselect(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, s.clearSelection)
}

func (s *Session) Pan(ctx context.Context, dx, dy float64) (Snapshot, error) {
	return s.mutate(ctx, func() { s.vp.Pan(dx, dy) })
}

// Zoom keeps the point under around fixed when it is set.
func (s *Session) Zoom(ctx context.Context, zoom float64, around *model.Point) (Snapshot, error) {
	return s.mutate(ctx, func() { s.vp.ZoomTo(zoom, around) })
}

func (s *Session) Rotate(ctx context.Context, bearing float64) (Snapshot, error) {
	return s.mutate(ctx, func() { s.vp.RotateTo(bearing) })
}

func (s *Session) Resize(ctx context.Context, width, height float64) (Snapshot, error) {
	return s.mutate(ctx, func() { s.vp.Resize(width, height) })
}

func (s *Session) SetMode(ctx context.Context, mode colormap.Mode) (Snapshot, error) {
	return s.mutate(ctx, func() { s.rnd.SetMode(mode) })
}

// Refresh starts a data refresh and returns without waiting for it.
func (s *Session) Refresh(ctx context.Context) error {
	return s.do(ctx, s.startRefresh)
}

func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() { snap = s.snapshot() })
	return snap, err
}

// Fill returns the published fill expression without a trip through the loop.
func (s *Session) Fill() (*render.FillExpression, error) {
	select {
	case <-s.quit:
		return nil, ErrClosed
	default:
	}
	f := s.rnd.Fill()
	if f == nil {
		return nil, ErrNotReady
	}
	return f, nil
}

func (s *Session) Series(ctx context.Context) (model.Series, error) {
	var out model.Series
	err := s.do(ctx, func() { out = append(model.Series(nil), s.series...) })
	return out, err
}

func (s *Session) mutate(ctx context.Context, fn func()) (Snapshot, error) {
	s.touch()
	var snap Snapshot
	err := s.do(ctx, func() {
		fn()
		snap = s.snapshot()
	})
	return snap, err
}

// Close stops the loop and waits for it; it is safe to call more than once.
func (s *Session) Close() { s.closeWith("explicit") }

func (s *Session) closeWith(reason string) {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.cancel()
		<-s.done
		s.helpers.Wait()
		s.log.DebugContext(s.ctx, "session closed", "reason", reason)
	})
}

// Done is closed when the loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		CreatedAt: s.created,
		Camera:    s.vp.Camera(),
		Map: MapView{
			State: s.rnd.State(),
			Mode:  s.rnd.Mode(),
		},
		Data: DataView{
			State:  s.dataState,
			Rows:   s.rows,
			Series: len(s.series),
		},
		Selection: SelectionView{State: s.sel.State()},
		Overlay: OverlayView{
			Panel:    s.ov.Panel().Rect(s.vp.Camera().Width, s.vp.Camera().Height),
			Segments: s.ov.Segments(),
		},
	}
	if err := s.rnd.Err(); err != nil {
		snap.Map.Error = err.Error()
	}
	if f := s.rnd.Fill(); f != nil {
		snap.Map.Stops = len(f.Stops)
		snap.Map.ETag = f.Fingerprint()
	}
	if s.dataErr != nil {
		snap.Data.Error = s.dataErr.Error()
	}
	if !s.updatedAt.IsZero() {
		t := s.updatedAt
		snap.Data.UpdatedAt = &t
	}
	if p, ok := s.ov.Anchor(); ok {
		snap.Overlay.Anchor = &p
	}
	if snap.Overlay.Segments == nil {
		snap.Overlay.Segments = []model.Segment{}
	}

	sel, ok := s.sel.Selection()
	if !ok {
		return snap
	}
	view := &snap.Selection
	view.ID = sel.ID
	view.Name = sel.Name
	c := sel.Centroid
	view.Centroid = &c

	tables := s.rnd.Tables()
	// misses read as 0, the same fallback the fill paints
	v := tables.Values.Get(sel.ID)
	pct := v * 100
	view.Value = &v
	view.Percent = &pct
	if s.rnd.Mode() == colormap.ModeForecast {
		fpct := tables.Forecast.Get(sel.ID) * 100
		view.Forecast = &fpct
	}

	switch s.sel.State() {
	case selection.StateDetailReady:
		view.Detail = s.sel.Detail()
		if len(view.Detail) == 0 {
			view.Message = NoDataMessage
		}
	case selection.StateDetailFailed:
		view.Message = NoDataMessage
	}
	return snap
}
