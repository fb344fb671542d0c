package territory

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Summary holds planar measures of a territory ring, in interchange order.
// Area is in square degrees; it is meant for ranking and display, not for
// surveying.
type Summary struct {
	Vertices int       `json:"vertices"`
	Area     float64   `json:"area"`
	Centroid orb.Point `json:"centroid"`
	Bound    orb.Bound `json:"bbox"`
}

// Summarize measures ring, which must be in interchange order. Vertices
// counts distinct corners, so the closing point is not counted twice.
func Summarize(ring orb.Ring) Summary {
	if len(ring) == 0 {
		return Summary{}
	}
	centroid, area := planar.CentroidArea(orb.Polygon{ring})
	return Summary{
		Vertices: distinctCount(ring),
		Area:     math.Abs(area),
		Centroid: centroid,
		Bound:    ring.Bound(),
	}
}
