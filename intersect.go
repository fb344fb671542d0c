package territory

import "github.com/paulmach/orb"

// orientation returns the sign of the cross product (b-a) x (c-a):
// 1 counter-clockwise, -1 clockwise, 0 collinear.
func orientation(a, b, c orb.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether c, known to be collinear with a-b, lies within
// the segment's bounding box.
func onSegment(a, b, c orb.Point) bool {
	return c[0] >= min(a[0], b[0]) && c[0] <= max(a[0], b[0]) &&
		c[1] >= min(a[1], b[1]) && c[1] <= max(a[1], b[1])
}

// segmentsIntersect reports whether p1-p2 and q1-q2 share any point,
// including touching endpoints and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(p1, p2, q1):
		return true
	case o2 == 0 && onSegment(p1, p2, q2):
		return true
	case o3 == 0 && onSegment(q1, q2, p1):
		return true
	case o4 == 0 && onSegment(q1, q2, p2):
		return true
	}
	return false
}

// pathCrosses reports whether the edge a-b meets any edge of the open path
// except the ones listed in skip (edge i joins path[i] and path[i+1]).
func pathCrosses(path []orb.Point, a, b orb.Point, skip ...int) bool {
	for i := 0; i+1 < len(path); i++ {
		if containsInt(skip, i) {
			continue
		}
		if segmentsIntersect(path[i], path[i+1], a, b) {
			return true
		}
	}
	return false
}

// ringSelfIntersects reports whether any two non-adjacent edges of a closed
// ring meet. Adjacent edges share a vertex and are not compared.
func ringSelfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // edge count
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	// Adjacent edges that double back over each other overlap along a stretch.
	for i := 0; i < n; i++ {
		a, b, c := ring[(i+n-1)%n], ring[i], ring[i+1]
		if orientation(a, b, c) == 0 && doublesBack(a, b, c) {
			return true
		}
	}
	return false
}

// doublesBack reports whether the path a-b-c reverses direction at b.
func doublesBack(a, b, c orb.Point) bool {
	dot := (b[0]-a[0])*(c[0]-b[0]) + (b[1]-a[1])*(c[1]-b[1])
	return dot < 0
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
