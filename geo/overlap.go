package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

var ErrDegenerate = errors.New("degenerate geometry")

// Overlap is the outcome of testing one segment against one polygon.
// A set Err means the pair could not be evaluated and contributes nothing.
type Overlap struct {
	Length   float64
	Contains bool
	Err      error
}

func (self Overlap) HasScore() bool {
	return self.Err == nil && self.Length > 0
}

// Shape is a multipolygon prepared for repeated overlap tests.
type Shape struct {
	polygons orb.MultiPolygon
	geometry geom.Geometry
	err      error
}

// NewShape converts mp once, a structurally broken multipolygon yields a
// shape whose every overlap fails.
func NewShape(mp orb.MultiPolygon) Shape {
	if len(mp) == 0 {
		return Shape{err: fmt.Errorf("%w: empty multipolygon", ErrDegenerate)}
	}
	for _, polygon := range mp {
		if len(polygon) == 0 {
			return Shape{err: fmt.Errorf("%w: polygon without rings", ErrDegenerate)}
		}
		for _, ring := range polygon {
			if len(ring) < 3 {
				return Shape{err: fmt.Errorf("%w: ring with %d points", ErrDegenerate, len(ring))}
			}
			for _, p := range ring {
				if !IsFinite(p) {
					return Shape{err: fmt.Errorf("%w: non-finite ring coordinate", ErrDegenerate)}
				}
			}
		}
	}
	return Shape{polygons: mp, geometry: ToGeometry(mp)}
}

// Overlap computes the length of the part of the segment a-b that lies in the
// closed multipolygon, and whether the multipolygon contains the segment (no
// part outside, some part in the interior). Boundary parts count as overlap.
func (self Shape) Overlap(a, b orb.Point) Overlap {
	if !IsFinite(a) || !IsFinite(b) {
		return Overlap{Err: fmt.Errorf("%w: non-finite segment coordinate", ErrDegenerate)}
	}
	if self.err != nil {
		return Overlap{Err: self.err}
	}
	length := Dist(a, b)
	if length == 0 {
		return Overlap{Contains: Locate(self.polygons, a) == INTERIOR}
	}

	segment := _ToSegment(a, b)
	contains, err := geom.Contains(self.geometry, segment)
	if err != nil {
		return Overlap{Err: fmt.Errorf("%w: %v", ErrDegenerate, err)}
	}
	if contains {
		return Overlap{Length: length, Contains: true}
	}
	inter, err := geom.Intersection(segment, self.geometry)
	if err != nil {
		return Overlap{Err: fmt.Errorf("%w: %v", ErrDegenerate, err)}
	}
	inside := inter.Length()
	if math.IsNaN(inside) {
		return Overlap{Err: fmt.Errorf("%w: intersection length is not a number", ErrDegenerate)}
	}
	return Overlap{Length: math.Min(inside, length)}
}

// SegmentOverlap tests a single segment against mp, see Shape.Overlap.
func SegmentOverlap(a, b orb.Point, mp orb.MultiPolygon) Overlap {
	return NewShape(mp).Overlap(a, b)
}
