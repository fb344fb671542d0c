package territory

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// orbToFGBGeometryType maps the geometries a territory file can hold to their
// FlatGeobuf type. Everything else is Unknown.
func orbToFGBGeometryType(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// outerRingOf returns the single outer ring written for geom. Holes are not
// part of a territory and are dropped.
func outerRingOf(geom orb.Geometry) (orb.Ring, bool) {
	switch v := geom.(type) {
	case orb.Ring:
		return v, len(v) > 0
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) == 0 {
			return nil, false
		}
		return v[0], true
	case orb.Bound:
		return v.ToRing(), true
	default:
		return nil, false
	}
}

// geometryToFGB converts a territory geometry to a FlatGeobuf polygon.
func geometryToFGB(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	ring, ok := outerRingOf(geom)
	if !ok {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(flattypes.GeometryTypePolygon)
	g.SetXY(ringToXY(ring))
	g.SetEnds([]uint32{uint32(len(ring))})
	return g
}

// polygonFromFGB reads the outer ring of a FlatGeobuf polygon.
func polygonFromFGB(fgbGeom *flattypes.Geometry) (orb.Polygon, bool) {
	if fgbGeom == nil || fgbGeom.Type() != flattypes.GeometryTypePolygon {
		return nil, false
	}

	xyLen := fgbGeom.XyLength()
	if xyLen < 2 {
		return nil, false
	}

	// Without an ends array all points form one ring.
	end := xyLen / 2
	if fgbGeom.EndsLength() > 0 {
		end = int(fgbGeom.Ends(0))
	}

	ring := make(orb.Ring, 0, end)
	for i := 0; i < end; i++ {
		idx := i * 2
		if idx+1 >= xyLen {
			break
		}
		ring = append(ring, orb.Point{fgbGeom.Xy(idx), fgbGeom.Xy(idx + 1)})
	}
	return orb.Polygon{ring}, true
}

func ringToXY(r orb.Ring) []float64 {
	xy := make([]float64, 0, len(r)*2)
	for _, p := range r {
		xy = append(xy, p[0], p[1])
	}
	return xy
}
