package geo

import (
	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

//*******************************************
// orb <-> simplefeatures
//*******************************************

func ToGeometry(mp orb.MultiPolygon) geom.Geometry {
	polys := make([]geom.Polygon, 0, len(mp))
	for _, polygon := range mp {
		polys = append(polys, _ToPolygon(polygon))
	}
	return geom.NewMultiPolygon(polys).AsGeometry()
}

func _ToPolygon(polygon orb.Polygon) geom.Polygon {
	rings := make([]geom.LineString, 0, len(polygon))
	for _, ring := range polygon {
		rings = append(rings, _ToLineString(ring, true))
	}
	return geom.NewPolygon(rings)
}

func _ToLineString(points []orb.Point, closed bool) geom.LineString {
	coords := make([]float64, 0, 2*len(points)+2)
	for _, p := range points {
		coords = append(coords, p[0], p[1])
	}
	if closed && len(points) > 0 && points[0] != points[len(points)-1] {
		coords = append(coords, points[0][0], points[0][1])
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

func _ToSegment(a, b orb.Point) geom.Geometry {
	return _ToLineString([]orb.Point{a, b}, false).AsGeometry()
}

// FromGeometry collects the polygons of g, other geometry types are dropped.
func FromGeometry(g geom.Geometry) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, 1)
	switch g.Type() {
	case geom.TypePolygon:
		if p, ok := g.AsPolygon(); ok && !p.IsEmpty() {
			mp = append(mp, _FromPolygon(p))
		}
	case geom.TypeMultiPolygon:
		if m, ok := g.AsMultiPolygon(); ok {
			for i := 0; i < m.NumPolygons(); i++ {
				if p := m.PolygonN(i); !p.IsEmpty() {
					mp = append(mp, _FromPolygon(p))
				}
			}
		}
	case geom.TypeGeometryCollection:
		if gc, ok := g.AsGeometryCollection(); ok {
			for i := 0; i < gc.NumGeometries(); i++ {
				mp = append(mp, FromGeometry(gc.GeometryN(i))...)
			}
		}
	}
	return mp
}

func _FromPolygon(p geom.Polygon) orb.Polygon {
	polygon := make(orb.Polygon, 0, 1+p.NumInteriorRings())
	polygon = append(polygon, _FromLineString(p.ExteriorRing()))
	for i := 0; i < p.NumInteriorRings(); i++ {
		polygon = append(polygon, _FromLineString(p.InteriorRingN(i)))
	}
	return polygon
}

func _FromLineString(ls geom.LineString) orb.Ring {
	seq := ls.Coordinates()
	ring := make(orb.Ring, seq.Length())
	for i := range ring {
		xy := seq.GetXY(i)
		ring[i] = orb.Point{xy.X, xy.Y}
	}
	return ring
}
