package territory

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// AxisOrder names the coordinate convention of a point sequence.
type AxisOrder int

const (
	// ViewportOrder is [lat, lng]: north/south first, as map surfaces emit and
	// render points.
	ViewportOrder AxisOrder = iota
	// InterchangeOrder is [lng, lat]: east/west first, as GeoJSON stores them.
	InterchangeOrder
)

func (o AxisOrder) String() string {
	switch o {
	case ViewportOrder:
		return "viewport"
	case InterchangeOrder:
		return "interchange"
	default:
		return fmt.Sprintf("AxisOrder(%d)", int(o))
	}
}

// minDistinctVertices is the closure threshold for a drawable ring.
const minDistinctVertices = 3

// PropertyName is the feature property holding the territory label.
const PropertyName = "name"

// ToInterchange returns a copy of ring in interchange order. The input is
// never modified.
func ToInterchange(ring orb.Ring, from AxisOrder) orb.Ring {
	if from == InterchangeOrder {
		return cloneRing(ring)
	}
	return swapAxes(ring)
}

// ToViewport returns a copy of ring in viewport order. It is the inverse of
// ToInterchange.
func ToViewport(ring orb.Ring, from AxisOrder) orb.Ring {
	if from == ViewportOrder {
		return cloneRing(ring)
	}
	return swapAxes(ring)
}

// IsValidRing reports whether ring is closed and has at least three pairwise
// distinct points. Self-intersection and collinear vertices are not checked.
func IsValidRing(ring orb.Ring) bool {
	if len(ring) < minDistinctVertices+1 {
		return false
	}
	if ring[0] != ring[len(ring)-1] {
		return false
	}
	return distinctCount(ring) >= minDistinctVertices
}

// CloseRing returns points as a ring, appending a copy of the first point if
// the sequence is not already closed.
func CloseRing(points []orb.Point) orb.Ring {
	ring := make(orb.Ring, len(points), len(points)+1)
	copy(ring, points)
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// NewFeature builds a territory Feature from a ring in interchange order.
func NewFeature(ring orb.Ring, name string) (*geojson.Feature, error) {
	if !IsValidRing(ring) {
		return nil, ErrInvalidRing
	}
	f := geojson.NewFeature(orb.Polygon{cloneRing(ring)})
	f.Properties = geojson.Properties{PropertyName: name}
	return f, nil
}

// OuterRing returns the single outer ring of a polygon feature.
func OuterRing(f *geojson.Feature) (orb.Ring, bool) {
	if f == nil || f.Geometry == nil {
		return nil, false
	}
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return nil, false
		}
		return g[0], true
	case orb.Ring:
		return g, true
	default:
		return nil, false
	}
}

// MarshalFeature encodes f as the single text value stored on a project record.
func MarshalFeature(f *geojson.Feature) (string, error) {
	if f == nil {
		return "", ErrNilGeometry
	}
	ring, ok := OuterRing(f)
	if !ok {
		return "", ErrUnsupportedType
	}
	if !IsValidRing(ring) {
		return "", ErrInvalidRing
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("territory: marshal feature: %w", err)
	}
	return string(data), nil
}

// ParseFeature decodes a stored territory value and checks its outer ring.
func ParseFeature(s string) (*geojson.Feature, error) {
	f, err := geojson.UnmarshalFeature([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	ring, ok := OuterRing(f)
	if !ok {
		return nil, ErrUnsupportedType
	}
	if !IsValidRing(ring) {
		return nil, ErrInvalidRing
	}
	return f, nil
}

func swapAxes(ring orb.Ring) orb.Ring {
	if ring == nil {
		return nil
	}
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[i] = orb.Point{p[1], p[0]}
	}
	return out
}

func cloneRing(ring orb.Ring) orb.Ring {
	if ring == nil {
		return nil
	}
	out := make(orb.Ring, len(ring))
	copy(out, ring)
	return out
}

func distinctCount(points []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
	}
	return len(seen)
}
