package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// relative tolerance used for on-line and parallel tests
const EPSILON = 1e-9

func Dist(start orb.Point, end orb.Point) float64 {
	return math.Hypot(start[0]-end[0], start[1]-end[1])
}

// PointAt returns the point at parameter t on the segment start-end
// (0 is start, 1 is end).
func PointAt(start orb.Point, end orb.Point, t float64) orb.Point {
	return orb.Point{start[0] + (end[0]-start[0])*t, start[1] + (end[1]-start[1])*t}
}

func IsFinite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) && !math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}

func _Cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func _Dot(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[0]-o[0]) + (a[1]-o[1])*(b[1]-o[1])
}

// absolute tolerance scaled to the magnitude of the given coordinates
func _Tolerance(points ...orb.Point) float64 {
	scale := 1.0
	for _, p := range points {
		scale = math.Max(scale, math.Max(math.Abs(p[0]), math.Abs(p[1])))
	}
	return EPSILON * scale
}

// distance of p to the closed segment a-b
func _DistToSegment(p, a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return Dist(p, a)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return Dist(p, orb.Point{a[0] + t*dx, a[1] + t*dy})
}

// Computes the signed area of the ring (positive for counter-clockwise rings).
//
// Note: the ring does not need to be closed.
func SignedArea(ring orb.Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	area := float64(0)
	for i := 0; i < n; i++ {
		curr := ring[i]
		next := ring[(i+1)%n]
		area += curr[0]*next[1] - next[0]*curr[1]
	}
	return area / 2
}

// removes consecutive duplicate points and closes the ring
func _CleanRing(ring orb.Ring) orb.Ring {
	cleaned := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		if len(cleaned) > 0 && cleaned[len(cleaned)-1] == p {
			continue
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) > 1 && cleaned[0] == cleaned[len(cleaned)-1] {
		cleaned = cleaned[:len(cleaned)-1]
	}
	if len(cleaned) == 0 {
		return cleaned
	}
	return append(cleaned, cleaned[0])
}
