package territory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tingold/orb-territory/internal/logging"
)

// ResolutionStep identifies which fallback produced a resolved ring.
type ResolutionStep int

const (
	// StepStructured: the value already carried a polygon.
	StepStructured ResolutionStep = iota
	// StepJSON: the value was JSON text encoding a polygon.
	StepJSON
	// StepPlaceName: free text matched a registry entry.
	StepPlaceName
	// StepDefault: nothing matched; the default region was used.
	StepDefault
)

func (s ResolutionStep) String() string {
	switch s {
	case StepStructured:
		return "structured"
	case StepJSON:
		return "json"
	case StepPlaceName:
		return "place"
	case StepDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of resolving a stored location value.
type Resolution struct {
	Ring  orb.Ring       // viewport order, never nil
	Step  ResolutionStep // which fallback matched
	Place string         // registry or default place name, if any
}

// Resolver turns a stored location value into a displayable ring. It is
// immutable after construction.
type Resolver struct {
	registry *Registry
	fallback Place
	log      logging.Logger
	obs      Observer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRegistry replaces the bundled place table.
func WithRegistry(r *Registry) ResolverOption {
	return func(res *Resolver) {
		if r != nil {
			res.registry = r
		}
	}
}

// WithDefaultRegion replaces the default outline. Invalid places are ignored.
func WithDefaultRegion(p Place) ResolverOption {
	return func(res *Resolver) {
		if IsValidRing(p.Ring) {
			res.fallback = Place{Name: p.Name, Ring: cloneRing(p.Ring)}
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l logging.Logger) ResolverOption {
	return func(res *Resolver) {
		res.log = logging.OrNoop(l)
	}
}

// WithObserver sets the resolver metrics observer.
func WithObserver(o Observer) ResolverOption {
	return func(res *Resolver) {
		if o != nil {
			res.obs = o
		}
	}
}

// NewResolver returns a resolver using the bundled registry and default
// region unless overridden.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry: DefaultRegistry(),
		fallback: DefaultRegion,
		log:      logging.Noop(),
		obs:      nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logging.Component("resolver"))
	return r
}

var defaultResolver = NewResolver()

// Resolve resolves value with the bundled registry and default region.
func Resolve(value any) orb.Ring {
	return defaultResolver.Resolve(value)
}

// Resolve returns the ring for value in viewport order. It never returns nil
// and never panics.
func (r *Resolver) Resolve(value any) orb.Ring {
	return r.ResolveDetailed(value).Ring
}

// ResolveDetailed resolves value and reports which fallback matched:
//
//  1. a structured polygon (Feature, Geometry or decoded JSON object);
//  2. JSON text, decoded and fed back into step 1;
//  3. free text containing a registry place name, first entry wins;
//  4. the default region.
func (r *Resolver) ResolveDetailed(value any) Resolution {
	res := r.resolve(value)
	r.obs.ResolutionObserved(res.Step)
	r.log.Debug(context.Background(), "location resolved",
		logging.String("step", res.Step.String()),
		logging.String("place", res.Place),
		logging.Int("vertices", len(res.Ring)))
	return res
}

func (r *Resolver) resolve(value any) Resolution {
	switch v := value.(type) {
	case nil:
		return r.defaultResolution()
	case string:
		return r.resolveText(v)
	case []byte:
		return r.resolveText(string(v))
	case json.RawMessage:
		return r.resolveText(string(v))
	}
	if ring, ok := r.structuredRing(value); ok {
		return Resolution{Ring: ToViewport(ring, InterchangeOrder), Step: StepStructured}
	}
	return r.defaultResolution()
}

func (r *Resolver) resolveText(text string) Resolution {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return r.defaultResolution()
	}

	var parsed any
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err == nil && !dec.More() {
		switch p := parsed.(type) {
		case map[string]any:
			if ring, ok := r.structuredRing(p); ok {
				return Resolution{Ring: ToViewport(ring, InterchangeOrder), Step: StepJSON}
			}
			return r.defaultResolution()
		case string:
			// double-encoded text: a stringified object gets one more
			// decode, anything else goes to place matching
			if m, ok := decodeObject(p); ok {
				if ring, ok := r.structuredRing(m); ok {
					return Resolution{Ring: ToViewport(ring, InterchangeOrder), Step: StepJSON}
				}
				return r.defaultResolution()
			}
			return r.resolvePlace(p)
		default:
			return r.defaultResolution()
		}
	}
	return r.resolvePlace(trimmed)
}

// decodeObject decodes text as a single JSON object.
func decodeObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil || dec.More() {
		return nil, false
	}
	return m, true
}

func (r *Resolver) resolvePlace(text string) Resolution {
	if p, ok := r.registry.Match(text); ok {
		return Resolution{Ring: ToViewport(p.Ring, InterchangeOrder), Step: StepPlaceName, Place: p.Name}
	}
	return r.defaultResolution()
}

func (r *Resolver) defaultResolution() Resolution {
	return Resolution{
		Ring:  ToViewport(r.fallback.Ring, InterchangeOrder),
		Step:  StepDefault,
		Place: r.fallback.Name,
	}
}

// structuredRing extracts the outer ring (interchange order) from a value
// that carries a polygon. Shape errors, including panics from malformed
// values, count as no match.
func (r *Resolver) structuredRing(value any) (ring orb.Ring, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn(context.Background(), "malformed location value", logging.Any("panic", fmt.Sprint(rec)))
			ring, ok = nil, false
		}
	}()

	var raw orb.Ring
	switch v := value.(type) {
	case *geojson.Feature:
		raw, ok = OuterRing(v)
	case geojson.Feature:
		raw, ok = OuterRing(&v)
	case *geojson.Geometry:
		if v != nil {
			raw, ok = OuterRing(&geojson.Feature{Geometry: v.Geometry()})
		}
	case orb.Polygon:
		raw, ok = OuterRing(&geojson.Feature{Geometry: v})
	case map[string]any:
		raw, ok = ringFromMap(v)
	}
	if !ok {
		return nil, false
	}
	ring = CloseRing(raw)
	if !IsValidRing(ring) {
		return nil, false
	}
	return ring, true
}

// ringFromMap walks geometry.coordinates[0] (or geometry.rings[0]) of a
// decoded JSON object. A bare geometry object is accepted as well.
func ringFromMap(m map[string]any) (orb.Ring, bool) {
	geom, ok := m["geometry"].(map[string]any)
	if !ok {
		geom = m
	}
	rings, found := geom["coordinates"]
	if !found {
		if rings, found = geom["rings"]; !found {
			return nil, false
		}
	}

	switch rs := rings.(type) {
	case [][][]float64:
		if len(rs) == 0 {
			return nil, false
		}
		return ringFromPairs(rs[0])
	case []orb.Ring:
		if len(rs) == 0 {
			return nil, false
		}
		return rs[0], true
	case []any:
		if len(rs) == 0 {
			return nil, false
		}
		switch first := rs[0].(type) {
		case [][]float64:
			return ringFromPairs(first)
		case []any:
			return ringFromAny(first)
		}
	}
	return nil, false
}

func ringFromPairs(coords [][]float64) (orb.Ring, bool) {
	ring := make(orb.Ring, 0, len(coords))
	for _, pair := range coords {
		if len(pair) < 2 {
			return nil, false
		}
		ring = append(ring, orb.Point{pair[0], pair[1]})
	}
	return ring, true
}

func ringFromAny(coords []any) (orb.Ring, bool) {
	ring := make(orb.Ring, 0, len(coords))
	for _, c := range coords {
		var x, y float64
		var okX, okY bool
		switch pair := c.(type) {
		case []any:
			if len(pair) < 2 {
				return nil, false
			}
			x, okX = toFloat(pair[0])
			y, okY = toFloat(pair[1])
		case []float64:
			if len(pair) < 2 {
				return nil, false
			}
			x, y, okX, okY = pair[0], pair[1], true, true
		case orb.Point:
			x, y, okX, okY = pair[0], pair[1], true, true
		}
		if !okX || !okY {
			return nil, false
		}
		ring = append(ring, orb.Point{x, y})
	}
	return ring, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
