package territory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tingold/orb-territory/internal/logging"
)

// EventKind is a pointer or control event coming from a map surface.
type EventKind int

const (
	EventStart        EventKind = iota // draw button pressed
	EventClick                         // map clicked at Point
	EventDoubleClick                   // finish the sketch
	EventVertexDrag                    // Vertex dragged to Point
	EventVertexInsert                  // Point inserted before Vertex
	EventVertexRemove                  // Vertex removed
	EventDelete                        // delete button pressed
	EventCancel                        // escape pressed
)

var eventNames = [...]string{
	EventStart:        "start",
	EventClick:        "click",
	EventDoubleClick:  "dblclick",
	EventVertexDrag:   "vertexdrag",
	EventVertexInsert: "vertexinsert",
	EventVertexRemove: "vertexremove",
	EventDelete:       "delete",
	EventCancel:       "cancel",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered by a Surface. Point is in viewport order.
type Event struct {
	Kind   EventKind
	Point  orb.Point
	Vertex int
}

// Subscription is a registered surface listener.
type Subscription interface {
	Unsubscribe()
}

// Layer is a ring drawn on a surface, in viewport order.
type Layer struct {
	ID    string
	Ring  orb.Ring
	Style Style
}

// Surface is the map the adapter binds to. Implementations wrap the actual
// map widget.
type Surface interface {
	Subscribe(kind EventKind, fn func(Event)) (Subscription, error)
	Render(layer Layer)
	Remove(id string)
	// Flag shows a refused operation to the user.
	Flag(err error)
}

// Fitter is implemented by surfaces that can frame a bound (viewport order).
type Fitter interface {
	FitBounds(b orb.Bound)
}

// Mode selects which draw strategy an adapter runs.
type Mode int

const (
	// ModeDisplay binds no draw listeners; the adapter only shows territories.
	ModeDisplay Mode = iota
	ModeManual
	ModeGuided
)

// AdapterOptions configures Mount.
type AdapterOptions struct {
	Mode     Mode
	Engine   EngineOptions
	Resolver *Resolver
	Logger   logging.Logger
	Observer Observer
}

// Adapter binds one draw engine and the display of resolved territories to a
// single surface. Adapters never share state with each other.
type Adapter struct {
	id       string
	ctx      context.Context
	log      logging.Logger
	mode     Mode
	resolver *Resolver

	manual *ManualEngine
	guided *GuidedEngine
	engine Engine

	surface Surface
	subs    *scope
	mounted bool
}

// Mount binds a new adapter to surface and attaches its listeners. If any
// listener cannot be attached, the ones already attached are released.
func Mount(ctx context.Context, surface Surface, opts AdapterOptions) (*Adapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if surface == nil {
		return nil, ErrNilSurface
	}

	a := &Adapter{
		id:       uuid.NewString(),
		ctx:      ctx,
		mode:     opts.Mode,
		resolver: opts.Resolver,
	}
	a.log = logging.OrNoop(opts.Logger).With(logging.AdapterID(a.id))
	if a.resolver == nil {
		a.resolver = NewResolver(WithLogger(opts.Logger), WithObserver(opts.Observer))
	}

	eopts := opts.Engine
	if eopts.Logger == nil {
		eopts.Logger = a.log
	}
	if eopts.Observer == nil {
		eopts.Observer = opts.Observer
	}
	onChange, onReject := eopts.OnChange, eopts.OnReject
	eopts.OnChange = func(f *geojson.Feature) {
		a.renderDraft(f)
		if onChange != nil {
			onChange(f)
		}
	}
	eopts.OnReject = func(err error) {
		if a.surface != nil {
			a.surface.Flag(err)
		}
		if onReject != nil {
			onReject(err)
		}
	}

	switch opts.Mode {
	case ModeManual:
		a.manual = NewManualEngine(eopts)
		a.engine = a.manual
	case ModeGuided:
		a.guided = NewGuidedEngine(eopts)
		a.engine = a.guided
	case ModeDisplay:
	default:
		return nil, fmt.Errorf("territory: unknown adapter mode %d", opts.Mode)
	}

	if err := a.attach(surface); err != nil {
		return nil, err
	}
	a.log.Info(ctx, "adapter mounted", logging.Int("listeners", a.subs.len()))
	return a, nil
}

// ID returns the adapter's unique identifier.
func (a *Adapter) ID() string { return a.id }

// Mounted reports whether the adapter is attached to a surface.
func (a *Adapter) Mounted() bool { return a.mounted }

// Engine returns the adapter's draw engine, or nil in display mode.
func (a *Adapter) Engine() Engine { return a.engine }

// Manual returns the manual engine when Mode is ModeManual.
func (a *Adapter) Manual() *ManualEngine { return a.manual }

// Guided returns the guided engine when Mode is ModeGuided.
func (a *Adapter) Guided() *GuidedEngine { return a.guided }

// Unmount detaches every listener and discards any session in progress.
// It is safe to call more than once.
func (a *Adapter) Unmount() {
	if !a.mounted {
		return
	}
	a.detach()
	a.log.Info(a.ctx, "adapter unmounted")
}

// Rebind moves the adapter to a new surface. Listeners on the old surface are
// released and an in-progress session is discarded before binding.
func (a *Adapter) Rebind(surface Surface) error {
	if surface == nil {
		return ErrNilSurface
	}
	if a.mounted {
		a.detach()
	}
	if err := a.attach(surface); err != nil {
		return err
	}
	a.log.Info(a.ctx, "adapter rebound", logging.Int("listeners", a.subs.len()))
	return nil
}

// Show resolves a stored location value and renders it with the status
// style. The resolution is returned even when the adapter is unmounted.
func (a *Adapter) Show(location any, status Status, hovered, selected bool) Resolution {
	res := a.resolver.ResolveDetailed(location)
	if !a.mounted {
		return res
	}
	a.surface.Render(Layer{
		ID:    a.layerID("territory"),
		Ring:  res.Ring,
		Style: StyleFor(status, hovered, selected),
	})
	if f, ok := a.surface.(Fitter); ok {
		f.FitBounds(res.Ring.Bound())
	}
	return res
}

func (a *Adapter) attach(surface Surface) error {
	sc := &scope{}
	attached := false
	defer func() {
		if !attached {
			sc.release()
		}
	}()

	for _, b := range a.bindings() {
		sub, err := surface.Subscribe(b.kind, a.guard(sc, b.fn))
		if err != nil {
			return fmt.Errorf("territory: subscribe %s: %w", b.kind, err)
		}
		if sub == nil {
			return fmt.Errorf("territory: subscribe %s: %w", b.kind, ErrNilSubscription)
		}
		sc.add(sub.Unsubscribe)
	}

	a.surface = surface
	a.subs = sc
	a.mounted = true
	attached = true
	return nil
}

func (a *Adapter) detach() {
	defer func() {
		a.mounted = false
		a.surface = nil
		a.subs = nil
	}()
	a.subs.release()
	if a.engine != nil {
		a.engine.Discard()
	}
	a.surface.Remove(a.layerID("draft"))
	a.surface.Remove(a.layerID("territory"))
}

// guard drops events that arrive after the binding owning sc was torn down,
// including events from a previous surface after Rebind.
func (a *Adapter) guard(sc *scope, fn func(Event)) func(Event) {
	return func(ev Event) {
		if !a.mounted || a.subs != sc {
			return
		}
		fn(ev)
	}
}

type binding struct {
	kind EventKind
	fn   func(Event)
}

func (a *Adapter) bindings() []binding {
	switch a.mode {
	case ModeManual:
		m := a.manual
		return []binding{
			{EventStart, func(Event) { m.Start() }},
			{EventClick, func(ev Event) { m.AddPoint(ev.Point) }},
			{EventCancel, func(Event) { m.Cancel() }},
			{EventDelete, func(Event) { m.Clear() }},
		}
	case ModeGuided:
		g := a.guided
		// errors are already flagged on the surface through OnReject
		return []binding{
			{EventStart, func(Event) { g.StartCreate() }},
			{EventClick, func(ev Event) { _ = g.AddVertex(ev.Point) }},
			{EventDoubleClick, func(Event) { _ = g.Finish() }},
			{EventVertexDrag, func(ev Event) { _ = g.MoveVertex(ev.Vertex, ev.Point) }},
			{EventVertexInsert, func(ev Event) { _ = g.InsertVertex(ev.Vertex, ev.Point) }},
			{EventVertexRemove, func(ev Event) { _ = g.RemoveVertex(ev.Vertex) }},
			{EventDelete, func(Event) { g.Delete() }},
			{EventCancel, func(Event) { g.Cancel() }},
		}
	default:
		return nil
	}
}

// renderDraft mirrors the engine output on the surface.
func (a *Adapter) renderDraft(f *geojson.Feature) {
	if !a.mounted {
		return
	}
	id := a.layerID("draft")
	ring, ok := OuterRing(f)
	if !ok {
		a.surface.Remove(id)
		return
	}
	a.surface.Render(Layer{
		ID:    id,
		Ring:  ToViewport(ring, InterchangeOrder),
		Style: StyleFor(StatusPending, false, true),
	})
}

func (a *Adapter) layerID(name string) string {
	return a.id + "/" + name
}

// scope collects release functions and runs them in reverse order.
type scope struct {
	releases []func()
}

func (s *scope) add(fn func()) {
	s.releases = append(s.releases, fn)
}

func (s *scope) len() int {
	if s == nil {
		return 0
	}
	return len(s.releases)
}

// release runs every release function once, even if one of them panics.
func (s *scope) release() {
	if s == nil {
		return
	}
	for len(s.releases) > 0 {
		fn := s.releases[len(s.releases)-1]
		s.releases = s.releases[:len(s.releases)-1]
		func() {
			defer func() { _ = recover() }()
			fn()
		}()
	}
}

// Zoomer is an explicit handle on a surface's zoom level.
type Zoomer interface {
	Zoom() int
	SetZoom(level int)
}

// ZoomControl steps the zoom of the surface it was given.
type ZoomControl struct {
	handle Zoomer
	lo, hi int
}

// NewZoomControl returns a control bound to handle, clamped to [lo, hi].
func NewZoomControl(handle Zoomer, lo, hi int) *ZoomControl {
	if lo > hi {
		lo, hi = hi, lo
	}
	return &ZoomControl{handle: handle, lo: lo, hi: hi}
}

// ZoomIn raises the zoom level by one.
func (z *ZoomControl) ZoomIn() { z.step(1) }

// ZoomOut lowers the zoom level by one.
func (z *ZoomControl) ZoomOut() { z.step(-1) }

func (z *ZoomControl) step(delta int) {
	if z == nil || z.handle == nil {
		return
	}
	level := z.handle.Zoom() + delta
	if level < z.lo || level > z.hi {
		return
	}
	z.handle.SetZoom(level)
}
