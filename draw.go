package territory

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tingold/orb-territory/internal/logging"
)

// ChangeFunc receives every committed territory. A nil feature means the
// territory was cleared.
type ChangeFunc func(*geojson.Feature)

// RejectFunc is told about an operation the engine refused, such as an edge
// that would cross the outline. The session stays open.
type RejectFunc func(error)

// State is the draw session state. It is one of Idle, Drawing or Editing.
type State interface {
	state()
}

// Idle means no session is open.
type Idle struct{}

// Drawing holds the points collected so far, in viewport order.
type Drawing struct {
	Points []orb.Point
}

// Editing holds the committed shape, a closed ring in viewport order.
type Editing struct {
	Shape orb.Ring
}

func (Idle) state()    {}
func (Drawing) state() {}
func (Editing) state() {}

// Engine is the behaviour shared by the draw strategies.
type Engine interface {
	// State returns a snapshot of the current session state.
	State() State
	// Clear removes any territory and reports nil.
	Clear()
	// Discard drops an in-progress session without reporting anything.
	Discard()
}

// Draw event names passed to Observer.DrawEventObserved.
const (
	DrawStart  = "start"
	DrawCommit = "commit"
	DrawClear  = "clear"
	DrawCancel = "cancel"
	DrawReject = "reject"
)

// Observer receives counters from the engines and the resolver. The metrics
// collector in internal/metrics implements it.
type Observer interface {
	DrawEventObserved(strategy, event string)
	ResolutionObserved(step ResolutionStep)
}

type nopObserver struct{}

func (nopObserver) DrawEventObserved(string, string)  {}
func (nopObserver) ResolutionObserved(ResolutionStep) {}

// EngineOptions configures a draw engine.
type EngineOptions struct {
	// Name is written to the feature's name property.
	Name string
	// OnChange receives committed features and clears.
	OnChange ChangeFunc
	// OnReject is told about refused operations.
	OnReject RejectFunc
	// SimplifyTolerance, when positive, runs Douglas-Peucker over committed
	// shapes (guided strategy only). Units are degrees.
	SimplifyTolerance float64
	Logger            logging.Logger
	Observer          Observer
}

// DefaultFeatureName labels features when EngineOptions.Name is empty.
const DefaultFeatureName = "Project Area"

// engineCore holds what both strategies need to publish results.
type engineCore struct {
	strategy string
	name     string
	onChange ChangeFunc
	onReject RejectFunc
	log      logging.Logger
	obs      Observer
}

func newEngineCore(strategy string, opts EngineOptions) engineCore {
	c := engineCore{
		strategy: strategy,
		name:     opts.Name,
		onChange: opts.OnChange,
		onReject: opts.OnReject,
		log:      logging.OrNoop(opts.Logger).With(logging.Strategy(strategy)),
		obs:      opts.Observer,
	}
	if c.name == "" {
		c.name = DefaultFeatureName
	}
	if c.obs == nil {
		c.obs = nopObserver{}
	}
	return c
}

// commit normalises a viewport ring into a feature and publishes it.
func (c *engineCore) commit(shape orb.Ring) (*geojson.Feature, error) {
	f, err := NewFeature(ToInterchange(shape, ViewportOrder), c.name)
	if err != nil {
		return nil, err
	}
	c.obs.DrawEventObserved(c.strategy, DrawCommit)
	c.log.Debug(context.Background(), "territory committed", logging.Int("vertices", len(shape)-1))
	if c.onChange != nil {
		c.onChange(f)
	}
	return f, nil
}

func (c *engineCore) clear() {
	c.obs.DrawEventObserved(c.strategy, DrawClear)
	if c.onChange != nil {
		c.onChange(nil)
	}
}

func (c *engineCore) reject(err error) error {
	c.obs.DrawEventObserved(c.strategy, DrawReject)
	c.log.Info(context.Background(), "draw operation refused", logging.Err(err))
	if c.onReject != nil {
		c.onReject(err)
	}
	return err
}

func (c *engineCore) event(name string) {
	c.obs.DrawEventObserved(c.strategy, name)
}

func clonePoints(points []orb.Point) []orb.Point {
	out := make([]orb.Point, len(points))
	copy(out, points)
	return out
}
