package territory

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"github.com/tingold/orb-territory/internal/logging"
)

// StrategyGuided names the vector-editing strategy.
const StrategyGuided = "guided"

// GuidedEngine edits one territory at a time: sketch a polygon vertex by
// vertex, finish it, then move, insert or remove vertices. Edits that would
// make the outline cross itself are refused and leave the shape unchanged.
type GuidedEngine struct {
	engineCore
	state     State
	tolerance float64
}

var _ Engine = (*GuidedEngine)(nil)

// NewGuidedEngine returns an idle guided engine.
func NewGuidedEngine(opts EngineOptions) *GuidedEngine {
	return &GuidedEngine{
		engineCore: newEngineCore(StrategyGuided, opts),
		state:      Idle{},
		tolerance:  opts.SimplifyTolerance,
	}
}

// State returns a snapshot of the session state.
func (e *GuidedEngine) State() State {
	switch s := e.state.(type) {
	case Idle:
		return s
	case Drawing:
		return Drawing{Points: clonePoints(s.Points)}
	case Editing:
		return Editing{Shape: cloneRing(s.Shape)}
	default:
		return Idle{}
	}
}

// StartCreate opens a new sketch. A committed shape is cleared first: only
// one territory exists per engine.
func (e *GuidedEngine) StartCreate() {
	switch e.state.(type) {
	case Editing:
		e.clear()
	case Idle, Drawing:
	}
	e.event(DrawStart)
	e.state = Drawing{}
}

// AddVertex appends p (viewport order) to the sketch. An edge that would meet
// an earlier edge is refused with ErrSelfIntersection. Clicking the first
// vertex again finishes the sketch.
func (e *GuidedEngine) AddVertex(p orb.Point) error {
	switch s := e.state.(type) {
	case Idle, Editing:
		return nil
	case Drawing:
		n := len(s.Points)
		if n > 0 {
			last := s.Points[n-1]
			if p == last {
				return nil
			}
			if p == s.Points[0] && n >= minDistinctVertices {
				return e.Finish()
			}
			if pathCrosses(s.Points, last, p, n-2) {
				return e.reject(ErrSelfIntersection)
			}
			if n > 1 && orientation(s.Points[n-2], last, p) == 0 && doublesBack(s.Points[n-2], last, p) {
				return e.reject(ErrSelfIntersection)
			}
		}
		s.Points = append(s.Points, p)
		e.state = s
	}
	return nil
}

// Finish closes the sketch and commits it. The sketch stays open when it has
// fewer than three distinct points or when the closing edge would cross it.
func (e *GuidedEngine) Finish() error {
	switch s := e.state.(type) {
	case Idle, Editing:
		return nil
	case Drawing:
		if distinctCount(s.Points) < minDistinctVertices {
			return e.reject(ErrInvalidRing)
		}
		ring := CloseRing(s.Points)
		if ringSelfIntersects(ring) {
			return e.reject(ErrSelfIntersection)
		}
		return e.replace(ring)
	}
	return nil
}

// MoveVertex moves vertex i of the committed shape to p.
func (e *GuidedEngine) MoveVertex(i int, p orb.Point) error {
	return e.edit(func(verts []orb.Point) ([]orb.Point, error) {
		if i < 0 || i >= len(verts) {
			return nil, ErrVertexOutOfRange
		}
		verts[i] = p
		return verts, nil
	})
}

// InsertVertex inserts p before vertex i. i may equal the vertex count to
// insert on the closing edge.
func (e *GuidedEngine) InsertVertex(i int, p orb.Point) error {
	return e.edit(func(verts []orb.Point) ([]orb.Point, error) {
		if i < 0 || i > len(verts) {
			return nil, ErrVertexOutOfRange
		}
		verts = append(verts, orb.Point{})
		copy(verts[i+1:], verts[i:])
		verts[i] = p
		return verts, nil
	})
}

// RemoveVertex removes vertex i. A shape is never reduced below three
// distinct vertices.
func (e *GuidedEngine) RemoveVertex(i int) error {
	return e.edit(func(verts []orb.Point) ([]orb.Point, error) {
		if i < 0 || i >= len(verts) {
			return nil, ErrVertexOutOfRange
		}
		return append(verts[:i], verts[i+1:]...), nil
	})
}

// edit applies fn to the open vertex list of the committed shape and commits
// the result if it is still a valid, simple ring.
func (e *GuidedEngine) edit(fn func([]orb.Point) ([]orb.Point, error)) error {
	switch s := e.state.(type) {
	case Idle, Drawing:
		return nil
	case Editing:
		verts := clonePoints(s.Shape[:len(s.Shape)-1])
		verts, err := fn(verts)
		if err != nil {
			return e.reject(err)
		}
		ring := CloseRing(verts)
		if !IsValidRing(ring) {
			return e.reject(ErrInvalidRing)
		}
		if ringSelfIntersects(ring) {
			return e.reject(ErrSelfIntersection)
		}
		return e.replace(ring)
	}
	return nil
}

// replace commits ring as the territory and moves to Editing.
func (e *GuidedEngine) replace(ring orb.Ring) error {
	ring = e.simplified(ring)
	if _, err := e.commit(ring); err != nil {
		return e.reject(err)
	}
	e.state = Editing{Shape: ring}
	return nil
}

// simplified runs Douglas-Peucker over ring when a tolerance is configured,
// keeping the original when the result would no longer be a usable ring.
func (e *GuidedEngine) simplified(ring orb.Ring) orb.Ring {
	if e.tolerance <= 0 {
		return ring
	}
	s, ok := simplify.DouglasPeucker(e.tolerance).Simplify(ring.Clone()).(orb.Ring)
	if !ok || !IsValidRing(s) || ringSelfIntersects(s) {
		return ring
	}
	if len(s) < len(ring) {
		e.log.Debug(context.Background(), "territory simplified",
			logging.Int("before", len(ring)), logging.Int("after", len(s)))
	}
	return s
}

// Delete removes the territory and reports nil.
func (e *GuidedEngine) Delete() {
	e.Clear()
}

// Clear reports nil and returns to Idle from any state.
func (e *GuidedEngine) Clear() {
	e.state = Idle{}
	e.clear()
}

// Cancel abandons an open sketch without emitting anything.
func (e *GuidedEngine) Cancel() {
	switch e.state.(type) {
	case Drawing:
		e.event(DrawCancel)
		e.state = Idle{}
	case Idle, Editing:
	}
}

// Discard drops any session silently. Used on teardown.
func (e *GuidedEngine) Discard() {
	e.state = Idle{}
}
