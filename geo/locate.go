package geo

import (
	"github.com/paulmach/orb"
)

//*******************************************
// point location
//*******************************************

type Location byte

const (
	EXTERIOR Location = 0
	BOUNDARY Location = 1
	INTERIOR Location = 2
)

func (self Location) String() string {
	switch self {
	case EXTERIOR:
		return "exterior"
	case BOUNDARY:
		return "boundary"
	case INTERIOR:
		return "interior"
	default:
		panic("unknown location")
	}
}

// BoundsDisjoint reports whether two bounds do not overlap on at least one
// axis. Bounds that only touch are not disjoint.
func BoundsDisjoint(a, b orb.Bound) bool {
	if a.Min[0] > b.Max[0] || a.Max[0] < b.Min[0] {
		return true
	}
	if a.Min[1] > b.Max[1] || a.Max[1] < b.Min[1] {
		return true
	}
	return false
}

// Locate classifies the point against the multipolygon. Holes are exterior,
// hole rings are boundary.
func Locate(mp orb.MultiPolygon, p orb.Point) Location {
	loc := EXTERIOR
	for _, polygon := range mp {
		switch LocateInPolygon(polygon, p) {
		case INTERIOR:
			return INTERIOR
		case BOUNDARY:
			loc = BOUNDARY
		}
	}
	return loc
}

func LocateInPolygon(polygon orb.Polygon, p orb.Point) Location {
	if len(polygon) == 0 {
		return EXTERIOR
	}
	shell := _LocateInRing(polygon[0], p)
	if shell != INTERIOR {
		return shell
	}
	for _, hole := range polygon[1:] {
		switch _LocateInRing(hole, p) {
		case BOUNDARY:
			return BOUNDARY
		case INTERIOR:
			return EXTERIOR
		}
	}
	return INTERIOR
}

// even-odd ray casting, works for closed and unclosed rings
func _LocateInRing(ring orb.Ring, p orb.Point) Location {
	n := len(ring)
	if n == 0 {
		return EXTERIOR
	}
	inside := false
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		if _DistToSegment(p, a, b) <= _Tolerance(p, a, b) {
			return BOUNDARY
		}
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := a[0] + (p[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])
			if p[0] < x {
				inside = !inside
			}
		}
	}
	if inside {
		return INTERIOR
	}
	return EXTERIOR
}
