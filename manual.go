package territory

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/tingold/orb-territory/internal/logging"
)

// StrategyManual names the click-accumulation strategy.
const StrategyManual = "manual"

// ManualEngine collects clicked points and closes the ring by itself once
// three distinct points are in. Each session produces at most one feature.
type ManualEngine struct {
	engineCore
	state State
}

var _ Engine = (*ManualEngine)(nil)

// NewManualEngine returns an idle manual engine.
func NewManualEngine(opts EngineOptions) *ManualEngine {
	return &ManualEngine{
		engineCore: newEngineCore(StrategyManual, opts),
		state:      Idle{},
	}
}

// State returns a snapshot of the session state.
func (e *ManualEngine) State() State {
	switch s := e.state.(type) {
	case Idle:
		return s
	case Drawing:
		return Drawing{Points: clonePoints(s.Points)}
	case Editing:
		// not reachable for this strategy
		return Editing{Shape: cloneRing(s.Shape)}
	default:
		return Idle{}
	}
}

// Start opens a new session. Any previously emitted territory is cleared
// first, so callers always see nil before the next feature.
func (e *ManualEngine) Start() {
	e.clear()
	e.event(DrawStart)
	e.state = Drawing{Points: make([]orb.Point, 0, minDistinctVertices+1)}
}

// AddPoint appends p (viewport order) to the open session. It is a no-op when
// no session is open, and repeated points are ignored.
func (e *ManualEngine) AddPoint(p orb.Point) {
	switch s := e.state.(type) {
	case Idle, Editing:
		e.log.Debug(context.Background(), "point ignored outside a session")
		return
	case Drawing:
		for _, q := range s.Points {
			if q == p {
				return
			}
		}
		s.Points = append(s.Points, p)
		if len(s.Points) < minDistinctVertices {
			e.state = s
			return
		}
		e.autoClose(s.Points)
	}
}

func (e *ManualEngine) autoClose(points []orb.Point) {
	e.state = Idle{}
	if _, err := e.commit(CloseRing(points)); err != nil {
		// three distinct points always close into a valid ring
		e.log.Error(context.Background(), "auto-close failed", logging.Err(err))
	}
}

// Cancel abandons the open session without emitting anything.
func (e *ManualEngine) Cancel() {
	switch e.state.(type) {
	case Drawing:
		e.event(DrawCancel)
		e.state = Idle{}
	case Idle, Editing:
	}
}

// Clear reports nil and returns to Idle from any state.
func (e *ManualEngine) Clear() {
	e.state = Idle{}
	e.clear()
}

// Discard drops the open session silently. Used on teardown.
func (e *ManualEngine) Discard() {
	e.state = Idle{}
}
