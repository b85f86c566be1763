// Package selection tracks the single active region pick and its detail fetch.
package selection

import (
	"fmt"

	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
)

type State int

const (
	StateEmpty State = iota
	StateSelected
	StateDetailPending
	StateDetailReady
	StateDetailFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSelected:
		return "selected"
	case StateDetailPending:
		return "detail_pending"
	case StateDetailReady:
		return "detail_ready"
	case StateDetailFailed:
		return "detail_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for c := StateEmpty; c <= StateDetailFailed; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown selection state %q", b)
}

// Request asks for the detail of one selection. Token identifies the
// selection it was issued for and must be handed back to Resolve.
type Request struct {
	Token     uint64
	Selection model.Selection
}

type Dispatcher interface {
	Dispatch(Request)
}

type DispatcherFunc func(Request)

func (f DispatcherFunc) Dispatch(r Request) { f(r) }

// Controller is not safe for concurrent use; the owning session loop drives it.
type Controller struct {
	dispatch Dispatcher
	state    State
	sel      model.Selection
	gen      uint64
	detail   model.DetailInfo
	err      error
}

func New(d Dispatcher) *Controller {
	if d == nil {
		d = DispatcherFunc(func(Request) {})
	}
	return &Controller{dispatch: d}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Selection() (model.Selection, bool) {
	return c.sel, c.state != StateEmpty
}

func (c *Controller) Detail() model.DetailInfo { return c.detail }

// Err is the detail fetch error in StateDetailFailed.
func (c *Controller) Err() error { return c.err }

// Token is the generation of the current selection.
func (c *Controller) Token() uint64 { return c.gen }

// Pick applies a click result: a hit selects, a miss clears.
func (c *Controller) Pick(sel model.Selection, ok bool) {
	if !ok {
		c.Clear()
		return
	}
	c.Select(sel)
}

// Select always restarts the detail fetch, also for the identifier already selected.
func (c *Controller) Select(sel model.Selection) {
	c.gen++
	c.sel = sel
	c.detail = nil
	c.err = nil
	c.state = StateSelected

	req := Request{Token: c.gen, Selection: sel}
	c.state = StateDetailPending
	c.dispatch.Dispatch(req)
}

// Clear drops the selection; a detail fetch still in flight becomes stale.
func (c *Controller) Clear() bool {
	if c.state == StateEmpty {
		return false
	}
	c.gen++
	c.sel = model.Selection{}
	c.detail = nil
	c.err = nil
	c.state = StateEmpty
	return true
}

// Resolve delivers a detail result. It reports false, leaving the state
// alone, when the result belongs to a selection that is no longer current.
func (c *Controller) Resolve(token uint64, info model.DetailInfo, err error) bool {
	if token != c.gen || c.state != StateDetailPending {
		observability.IncDetailResult("stale")
		return false
	}
	if err != nil {
		c.err = err
		c.detail = nil
		c.state = StateDetailFailed
		observability.IncDetailResult("failed")
		return true
	}
	c.detail = info
	c.state = StateDetailReady
	observability.IncDetailResult("ready")
	return true
}
