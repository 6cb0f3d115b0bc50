package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

// upper bound on ring splits per ring, far above anything seen in zone systems
const MAX_SPLITS = 10000

//*******************************************
// validation
//*******************************************

// Validate checks that every ring is finite, closed, has at least three
// distinct points, encloses an area and does not touch or cross itself, that
// every hole starts inside its shell, and that the multipolygon is valid in
// the OGC sense.
func Validate(mp orb.MultiPolygon) error {
	if len(mp) == 0 {
		return fmt.Errorf("%w: empty multipolygon", ErrInvalidGeometry)
	}
	for i, polygon := range mp {
		if len(polygon) == 0 {
			return fmt.Errorf("%w: polygon %d has no rings", ErrInvalidGeometry, i)
		}
		for j, ring := range polygon {
			if err := _ValidateRing(ring); err != nil {
				return fmt.Errorf("polygon %d ring %d: %w", i, j, err)
			}
			if j > 0 && LocateInPolygon(orb.Polygon{polygon[0]}, ring[0]) == EXTERIOR {
				return fmt.Errorf("%w: polygon %d hole %d lies outside its shell", ErrInvalidGeometry, i, j)
			}
		}
	}
	// rings crossing each other and overlapping polygons
	if err := ToGeometry(mp).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return nil
}

func _ValidateRing(ring orb.Ring) error {
	for _, p := range ring {
		if !IsFinite(p) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidGeometry)
		}
	}
	if len(ring) < 4 {
		return fmt.Errorf("%w: ring with %d points", ErrInvalidGeometry, len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		return fmt.Errorf("%w: ring is not closed", ErrInvalidGeometry)
	}
	cleaned := _CleanRing(ring)
	if len(cleaned) < 4 {
		return fmt.Errorf("%w: ring collapses to %d distinct points", ErrInvalidGeometry, len(cleaned)-1)
	}
	if SignedArea(cleaned) == 0 {
		return fmt.Errorf("%w: ring has no area", ErrInvalidGeometry)
	}
	if len(_RemoveSpikes(cleaned)) != len(cleaned) {
		return fmt.Errorf("%w: ring has a spike", ErrInvalidGeometry)
	}
	if _, _, _, ok := _FindSelfIntersection(cleaned); ok {
		return fmt.Errorf("%w: ring self-intersection", ErrInvalidGeometry)
	}
	return nil
}

//*******************************************
// repair
//*******************************************

// Repair removes self-intersections and degenerate parts from the
// multipolygon. Self-intersecting rings are cut at their touching and crossing
// points into simple rings. A piece keeps the role of its ring unless it winds
// against the ring, then shell pieces act as holes and hole pieces as shells.
// Rings without a winding direction, like a symmetric bowtie, keep the role
// for all pieces. Shells are dissolved into each other and holes cut out of
// the result. Shells are returned counter-clockwise, holes clockwise.
//
// Geometry with non-finite coordinates or without any remaining area can not
// be repaired.
func Repair(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	shells := make([]orb.Ring, 0, len(mp))
	holes := make([]orb.Ring, 0)
	for _, polygon := range mp {
		for j, ring := range polygon {
			for _, p := range ring {
				if !IsFinite(p) {
					return nil, fmt.Errorf("%w: non-finite coordinate", ErrInvalidGeometry)
				}
			}
			cleaned := _RemoveSpikes(_CleanRing(ring))
			pieces, err := _SplitRing(cleaned)
			if err != nil {
				return nil, err
			}
			winding := _Winding(cleaned, pieces)
			for _, piece := range pieces {
				inverted := winding != 0 && (SignedArea(piece) > 0) != (winding > 0)
				if (j == 0) != inverted {
					shells = append(shells, piece)
				} else {
					holes = append(holes, piece)
				}
			}
		}
	}
	if len(shells) == 0 {
		return nil, fmt.Errorf("%w: no shell left after repair", ErrInvalidGeometry)
	}

	result, err := _Dissolve(shells, holes)
	if err != nil {
		return nil, fmt.Errorf("repair failed: %w", err)
	}
	for _, polygon := range result {
		for k, ring := range polygon {
			want := orb.CW
			if k == 0 {
				want = orb.CCW
			}
			if ring.Orientation() != want {
				ring.Reverse()
			}
		}
	}
	if err := Validate(result); err != nil {
		return nil, fmt.Errorf("repair failed: %w", err)
	}
	return result, nil
}

// sign of the ring's net area, 0 if the pieces cancel out
func _Winding(ring orb.Ring, pieces []orb.Ring) float64 {
	total := float64(0)
	for _, piece := range pieces {
		total += math.Abs(SignedArea(piece))
	}
	area := SignedArea(ring)
	if math.Abs(area) <= EPSILON*total {
		return 0
	}
	return math.Copysign(1, area)
}

// unions the shells and subtracts the union of the holes
func _Dissolve(shells, holes []orb.Ring) (orb.MultiPolygon, error) {
	area, err := _UnionRings(shells)
	if err != nil {
		return nil, err
	}
	if len(holes) > 0 {
		cut, err := _UnionRings(holes)
		if err != nil {
			return nil, err
		}
		area, err = geom.Difference(area, cut)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
	}
	return FromGeometry(area), nil
}

func _UnionRings(rings []orb.Ring) (geom.Geometry, error) {
	parts := make([]geom.Geometry, 0, len(rings))
	for _, ring := range rings {
		parts = append(parts, _ToPolygon(orb.Polygon{ring}).AsGeometry())
	}
	union, err := geom.UnionMany(parts)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return union, nil
}

// drops vertices where the ring turns back on itself
func _RemoveSpikes(ring orb.Ring) orb.Ring {
	if len(ring) < 4 {
		return ring
	}
	pts := append(orb.Ring{}, ring[:len(ring)-1]...)
	changed := true
	for changed && len(pts) >= 3 {
		changed = false
		n := len(pts)
		for i := 0; i < n; i++ {
			prev := pts[(i+n-1)%n]
			curr := pts[i]
			next := pts[(i+1)%n]
			tol := _Tolerance(prev, curr, next)
			if math.Abs(_Cross(prev, curr, next)) <= tol*Dist(prev, curr)+tol*Dist(curr, next) && _Dot(curr, prev, next) > 0 {
				pts = append(pts[:i], pts[i+1:]...)
				changed = true
				break
			}
		}
	}
	return _CleanRing(pts)
}

// cuts a closed ring at its self-intersections into simple rings with area
func _SplitRing(ring orb.Ring) ([]orb.Ring, error) {
	pending := []orb.Ring{ring}
	result := make([]orb.Ring, 0, 1)
	splits := 0
	for len(pending) > 0 {
		curr := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		curr = _CleanRing(curr)
		if len(curr) < 4 {
			continue
		}
		i, j, x, ok := _FindSelfIntersection(curr)
		if !ok {
			// a self-intersecting ring may have zero net area, a simple one may not
			tol := _Tolerance(curr...)
			if math.Abs(SignedArea(curr)) > tol*tol {
				result = append(result, curr)
			}
			continue
		}
		splits += 1
		if splits > MAX_SPLITS {
			return nil, fmt.Errorf("%w: too many self-intersections", ErrInvalidGeometry)
		}
		n := len(curr)
		first := make(orb.Ring, 0, n)
		first = append(first, curr[:i+1]...)
		first = append(first, x)
		first = append(first, curr[j+1:]...)
		second := make(orb.Ring, 0, j-i+2)
		second = append(second, x)
		second = append(second, curr[i+1:j+1]...)
		second = append(second, x)
		pending = append(pending, _RemoveSpikes(_CleanRing(first)), _RemoveSpikes(_CleanRing(second)))
	}
	return result, nil
}

type _Edge struct {
	index int
	min_x float64
	max_x float64
}

// Finds the first pair of non-adjacent edges i < j of the closed ring that
// touch or cross, and a shared point. Edges are swept by x-extent.
func _FindSelfIntersection(ring orb.Ring) (int, int, orb.Point, bool) {
	n := len(ring) - 1
	if n < 3 {
		return 0, 0, orb.Point{}, false
	}
	edges := make([]_Edge, n)
	for k := 0; k < n; k++ {
		a := ring[k]
		b := ring[k+1]
		edges[k] = _Edge{k, math.Min(a[0], b[0]), math.Max(a[0], b[0])}
	}
	sort.Slice(edges, func(p, q int) bool {
		if edges[p].min_x != edges[q].min_x {
			return edges[p].min_x < edges[q].min_x
		}
		return edges[p].index < edges[q].index
	})

	best_i, best_j := -1, -1
	var best_x orb.Point
	for p := 0; p < n; p++ {
		for q := p + 1; q < n && edges[q].min_x <= edges[p].max_x; q++ {
			i := edges[p].index
			j := edges[q].index
			if i > j {
				i, j = j, i
			}
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			x, ok := _EdgeIntersection(ring[i], ring[i+1], ring[j], ring[j+1])
			if !ok {
				continue
			}
			if best_i == -1 || i < best_i || (i == best_i && j < best_j) {
				best_i, best_j, best_x = i, j, x
			}
		}
	}
	if best_i == -1 {
		return 0, 0, orb.Point{}, false
	}
	return best_i, best_j, best_x, true
}

// returns a point shared by the closed segments a-b and c-d
func _EdgeIntersection(a, b, c, d orb.Point) (orb.Point, bool) {
	if math.Max(a[0], b[0]) < math.Min(c[0], d[0]) || math.Max(c[0], d[0]) < math.Min(a[0], b[0]) {
		return orb.Point{}, false
	}
	if math.Max(a[1], b[1]) < math.Min(c[1], d[1]) || math.Max(c[1], d[1]) < math.Min(a[1], b[1]) {
		return orb.Point{}, false
	}
	d1 := _Cross(c, d, a)
	d2 := _Cross(c, d, b)
	d3 := _Cross(a, b, c)
	d4 := _Cross(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		t := d1 / (d1 - d2)
		return PointAt(a, b, t), true
	}
	// touching or collinear: report the first shared endpoint along a-b
	tol := _Tolerance(a, b, c, d)
	if _DistToSegment(a, c, d) <= tol {
		return a, true
	}
	candidates := make([]orb.Point, 0, 2)
	if _DistToSegment(c, a, b) <= tol {
		candidates = append(candidates, c)
	}
	if _DistToSegment(d, a, b) <= tol {
		candidates = append(candidates, d)
	}
	if len(candidates) > 0 {
		best := candidates[0]
		for _, p := range candidates[1:] {
			if Dist(a, p) < Dist(a, best) {
				best = p
			}
		}
		return best, true
	}
	if _DistToSegment(b, c, d) <= tol {
		return b, true
	}
	return orb.Point{}, false
}
