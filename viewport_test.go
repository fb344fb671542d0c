package territory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

// fakeSurface records listeners and layers the way a map widget would.
type fakeSurface struct {
	listeners map[EventKind][]*fakeSub
	captured  []func(Event) // every handler ever subscribed
	layers    map[string]Layer
	flags     []error
	fitted    []orb.Bound
	failOn    *EventKind
	nilOn     *EventKind
}

type fakeSub struct {
	s      *fakeSurface
	kind   EventKind
	fn     func(Event)
	active bool
}

func (f *fakeSub) Unsubscribe() {
	if !f.active {
		return
	}
	f.active = false
	subs := f.s.listeners[f.kind]
	for i, sub := range subs {
		if sub == f {
			f.s.listeners[f.kind] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		listeners: make(map[EventKind][]*fakeSub),
		layers:    make(map[string]Layer),
	}
}

func (s *fakeSurface) Subscribe(kind EventKind, fn func(Event)) (Subscription, error) {
	if s.failOn != nil && *s.failOn == kind {
		return nil, errors.New("listener limit reached")
	}
	if s.nilOn != nil && *s.nilOn == kind {
		return nil, nil
	}
	sub := &fakeSub{s: s, kind: kind, fn: fn, active: true}
	s.listeners[kind] = append(s.listeners[kind], sub)
	s.captured = append(s.captured, fn)
	return sub, nil
}

func (s *fakeSurface) Render(l Layer)        { s.layers[l.ID] = l }
func (s *fakeSurface) Remove(id string)      { delete(s.layers, id) }
func (s *fakeSurface) Flag(err error)        { s.flags = append(s.flags, err) }
func (s *fakeSurface) FitBounds(b orb.Bound) { s.fitted = append(s.fitted, b) }

func (s *fakeSurface) fire(ev Event) {
	for _, sub := range append([]*fakeSub(nil), s.listeners[ev.Kind]...) {
		sub.fn(ev)
	}
}

func (s *fakeSurface) click(p orb.Point) { s.fire(Event{Kind: EventClick, Point: p}) }

func (s *fakeSurface) active() int {
	n := 0
	for _, subs := range s.listeners {
		n += len(subs)
	}
	return n
}

func (s *fakeSurface) layer(suffix string) (Layer, bool) {
	for id, l := range s.layers {
		if strings.HasSuffix(id, "/"+suffix) {
			return l, true
		}
	}
	return Layer{}, false
}

func TestMount_Manual(t *testing.T) {
	surface := newFakeSurface()
	rec := &recorder{}
	a, err := Mount(context.Background(), surface, AdapterOptions{Mode: ModeManual, Engine: rec.options()})
	if err != nil {
		t.Fatal(err)
	}
	if a.Manual() == nil || a.Guided() != nil || a.Engine() == nil {
		t.Fatal("manual adapter has the wrong engine")
	}

	surface.fire(Event{Kind: EventStart})
	surface.click(vpA)
	surface.click(vpB)
	surface.click(vpC)

	if len(rec.features()) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(rec.features()))
	}
	draft, ok := surface.layer("draft")
	if !ok {
		t.Fatal("draft layer not rendered")
	}
	if !draft.Ring.Equal(orb.Ring{vpA, vpB, vpC, vpA}) {
		t.Errorf("draft ring = %v, want viewport order", draft.Ring)
	}

	surface.fire(Event{Kind: EventDelete})
	if _, ok := surface.layer("draft"); ok {
		t.Error("draft layer kept after delete")
	}
}

func TestMount_GuidedFlagsRejections(t *testing.T) {
	surface := newFakeSurface()
	rec := &recorder{}
	a, err := Mount(context.Background(), surface, AdapterOptions{Mode: ModeGuided, Engine: rec.options()})
	if err != nil {
		t.Fatal(err)
	}

	surface.fire(Event{Kind: EventStart})
	for _, p := range []orb.Point{sqA, sqC, sqB, sqD} {
		surface.click(p)
	}
	if len(surface.flags) != 1 || !errors.Is(surface.flags[0], ErrSelfIntersection) {
		t.Errorf("flags = %v, want one self-intersection", surface.flags)
	}
	if len(rec.rejects) != 1 {
		t.Errorf("caller OnReject not chained, got %d", len(rec.rejects))
	}

	surface.fire(Event{Kind: EventCancel})
	surface.fire(Event{Kind: EventStart})
	for _, p := range []orb.Point{sqA, sqB, sqC, sqD} {
		surface.click(p)
	}
	surface.fire(Event{Kind: EventDoubleClick})
	surface.fire(Event{Kind: EventVertexDrag, Vertex: 2, Point: orb.Point{12, 12}})

	s, ok := a.Guided().State().(Editing)
	if !ok {
		t.Fatalf("state = %T, want Editing", a.Guided().State())
	}
	if s.Shape[2] != (orb.Point{12, 12}) {
		t.Errorf("drag not applied: %v", s.Shape)
	}
}

func TestMount_Errors(t *testing.T) {
	if _, err := Mount(context.Background(), nil, AdapterOptions{}); !errors.Is(err, ErrNilSurface) {
		t.Errorf("nil surface: got %v", err)
	}
	if _, err := Mount(context.Background(), newFakeSurface(), AdapterOptions{Mode: Mode(9)}); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestMount_AttachFailureReleasesListeners(t *testing.T) {
	surface := newFakeSurface()
	kind := EventCancel
	surface.failOn = &kind

	if _, err := Mount(context.Background(), surface, AdapterOptions{Mode: ModeManual}); err == nil {
		t.Fatal("expected subscribe failure")
	}
	if n := surface.active(); n != 0 {
		t.Errorf("%d listeners left attached", n)
	}
}

func TestMount_NilSubscriptionFails(t *testing.T) {
	surface := newFakeSurface()
	kind := EventClick
	surface.nilOn = &kind

	_, err := Mount(context.Background(), surface, AdapterOptions{Mode: ModeManual})
	if !errors.Is(err, ErrNilSubscription) {
		t.Fatalf("expected ErrNilSubscription, got %v", err)
	}
	if n := surface.active(); n != 0 {
		t.Errorf("%d listeners left attached", n)
	}
}

func TestUnmount(t *testing.T) {
	surface := newFakeSurface()
	rec := &recorder{}
	a, err := Mount(context.Background(), surface, AdapterOptions{Mode: ModeManual, Engine: rec.options()})
	if err != nil {
		t.Fatal(err)
	}
	if surface.active() == 0 {
		t.Fatal("no listeners attached")
	}

	surface.fire(Event{Kind: EventStart})
	surface.click(vpA)
	notified := len(rec.changes)

	a.Unmount()
	a.Unmount()

	if a.Mounted() {
		t.Error("still mounted")
	}
	if n := surface.active(); n != 0 {
		t.Errorf("%d listeners left attached", n)
	}
	if _, ok := a.Engine().State().(Idle); !ok {
		t.Errorf("session not discarded, state = %T", a.Engine().State())
	}
	if len(rec.changes) != notified {
		t.Error("unmount emitted a notification")
	}

	// a late event from a handler the surface still holds
	for _, fn := range surface.captured {
		fn(Event{Kind: EventStart})
	}
	if _, ok := a.Engine().State().(Idle); !ok {
		t.Error("event after unmount reached the engine")
	}
}

func TestRebind(t *testing.T) {
	first, second := newFakeSurface(), newFakeSurface()
	a, err := Mount(context.Background(), first, AdapterOptions{Mode: ModeGuided})
	if err != nil {
		t.Fatal(err)
	}
	want := first.active()

	first.fire(Event{Kind: EventStart})
	first.click(sqA)

	if err := a.Rebind(second); err != nil {
		t.Fatal(err)
	}
	if first.active() != 0 {
		t.Errorf("old surface keeps %d listeners", first.active())
	}
	if second.active() != want {
		t.Errorf("new surface has %d listeners, want %d", second.active(), want)
	}
	if _, ok := a.Engine().State().(Idle); !ok {
		t.Error("rebind kept the old session")
	}

	// handlers the old surface still holds must not drive the new session
	for _, fn := range first.captured {
		fn(Event{Kind: EventStart})
	}
	for _, fn := range first.captured {
		fn(Event{Kind: EventClick, Point: sqB})
	}
	if st := a.Engine().State(); st != (Idle{}) {
		t.Errorf("stale handler reached the engine: %#v", st)
	}

	second.fire(Event{Kind: EventStart})
	second.click(sqA)
	if d, ok := a.Engine().State().(Drawing); !ok || len(d.Points) != 1 {
		t.Errorf("new surface does not drive the engine: %#v", a.Engine().State())
	}

	if err := a.Rebind(nil); !errors.Is(err, ErrNilSurface) {
		t.Errorf("Rebind(nil) = %v", err)
	}
}

func TestAdaptersAreIndependent(t *testing.T) {
	s1, s2 := newFakeSurface(), newFakeSurface()
	a1, _ := Mount(context.Background(), s1, AdapterOptions{Mode: ModeManual})
	a2, _ := Mount(context.Background(), s2, AdapterOptions{Mode: ModeManual})

	if a1.ID() == a2.ID() {
		t.Fatal("adapters share an id")
	}
	s1.fire(Event{Kind: EventStart})
	if _, ok := a2.Engine().State().(Idle); !ok {
		t.Error("event on one surface reached the other adapter")
	}
}

func TestShow(t *testing.T) {
	surface := newFakeSurface()
	a, err := Mount(context.Background(), surface, AdapterOptions{Mode: ModeDisplay})
	if err != nil {
		t.Fatal(err)
	}
	if surface.active() != 0 || a.Engine() != nil {
		t.Error("display mode bound draw listeners")
	}

	res := a.Show("Mumbai industrial corridor", StatusApproved, false, true)
	if res.Step != StepPlaceName {
		t.Errorf("step = %s", res.Step)
	}
	l, ok := surface.layer("territory")
	if !ok {
		t.Fatal("territory layer not rendered")
	}
	if l.Style != StyleFor(StatusApproved, false, true) {
		t.Errorf("style = %+v", l.Style)
	}
	if !l.Ring.Equal(res.Ring) {
		t.Error("rendered ring differs from resolution")
	}
	if len(surface.fitted) != 1 || surface.fitted[0] != res.Ring.Bound() {
		t.Errorf("fitted = %v", surface.fitted)
	}

	a.Unmount()
	if _, ok := surface.layer("territory"); ok {
		t.Error("territory layer kept after unmount")
	}
	if res := a.Show(nil, StatusPending, false, false); res.Step != StepDefault {
		t.Errorf("unmounted Show step = %s", res.Step)
	}
	if len(surface.layers) != 0 {
		t.Error("unmounted Show rendered")
	}
}

type fakeZoom struct{ level int }

func (z *fakeZoom) Zoom() int         { return z.level }
func (z *fakeZoom) SetZoom(level int) { z.level = level }

func TestZoomControl(t *testing.T) {
	h := &fakeZoom{level: 5}
	z := NewZoomControl(h, 6, 4)

	z.ZoomIn()
	z.ZoomIn()
	if h.level != 6 {
		t.Errorf("level = %d, want clamp at 6", h.level)
	}
	z.ZoomOut()
	z.ZoomOut()
	z.ZoomOut()
	if h.level != 4 {
		t.Errorf("level = %d, want clamp at 4", h.level)
	}

	var nilControl *ZoomControl
	nilControl.ZoomIn()
	NewZoomControl(nil, 0, 10).ZoomOut()
}

func TestEventKindString(t *testing.T) {
	if EventVertexDrag.String() != "vertexdrag" {
		t.Errorf("got %q", EventVertexDrag.String())
	}
	if got := EventKind(42).String(); got != "EventKind(42)" {
		t.Errorf("got %q", got)
	}
}
