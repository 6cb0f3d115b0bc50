package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/ttpr0/go-netjoin/structs"
)

//*******************************************
// shapefile reader
//*******************************************

// ReadShapefile reads the polygons of a shapefile and the values of the
// requested attributes. A requested attribute missing from the dbf schema is
// an error, checked before any shape is read.
func ReadShapefile(filename string, fields []structs.Field) (ShapeData, error) {
	reader, err := shp.Open(filename)
	if err != nil {
		return ShapeData{}, fmt.Errorf("open shapefile: %w", err)
	}
	defer reader.Close()

	schema := _ShapefileSchema(reader.Fields())
	resolved, columns, err := _ResolveFields(fields, schema)
	if err != nil {
		return ShapeData{}, fmt.Errorf("%s: %w", filename, err)
	}

	data := ShapeData{
		Regions: make([]structs.Region, 0, 1000),
		Fields:  resolved,
	}
	for reader.Next() {
		n, shape := reader.Shape()
		parts, points, ok := _PolygonParts(shape)
		if !ok {
			data.Skipped += 1
			continue
		}
		geom, repaired, err := _PrepareGeometry(_AssemblePolygons(parts, points), n)
		if err != nil {
			return ShapeData{}, fmt.Errorf("%s: %w", filename, err)
		}
		if repaired {
			data.Repaired += 1
		}

		values := make([]structs.Value, len(resolved))
		for k, field := range resolved {
			raw := reader.ReadAttribute(n, columns[k])
			value, err := _ParseDBFValue(raw, field.Type)
			if err != nil {
				return ShapeData{}, fmt.Errorf("%s: shape %d field %s: %w", filename, n, field.Name, err)
			}
			values[k] = value
		}
		data.Regions = append(data.Regions, structs.NewRegion(geom, values))
	}
	if err := reader.Err(); err != nil {
		return ShapeData{}, fmt.Errorf("read shapefile: %w", err)
	}
	return data, nil
}

func ReadShapefileSchema(filename string) ([]structs.Field, error) {
	reader, err := shp.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer reader.Close()
	return _ShapefileSchema(reader.Fields()), nil
}

func _ShapefileSchema(fields []shp.Field) []structs.Field {
	schema := make([]structs.Field, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(strings.TrimRight(f.String(), "\x00"))
		schema[i] = structs.Field{
			Name:   name,
			Target: name,
			Type:   _DBFFieldType(f.Fieldtype),
		}
	}
	return schema
}

func _DBFFieldType(typ byte) structs.FieldType {
	switch typ {
	case 'N', 'F':
		return structs.NUMERIC
	default:
		return structs.TEXT
	}
}

func _ParseDBFValue(raw string, typ structs.FieldType) (structs.Value, error) {
	value := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if typ == structs.TEXT {
		return structs.TextValue(value), nil
	}
	// empty or overflowed numeric fields
	if value == "" || strings.Trim(value, "*") == "" {
		return structs.NullValue(structs.NUMERIC), nil
	}
	num, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return structs.Value{}, err
	}
	return structs.NumericValue(num), nil
}

func _PolygonParts(shape shp.Shape) ([]int32, []shp.Point, bool) {
	switch s := shape.(type) {
	case *shp.Polygon:
		return s.Parts, s.Points, true
	case *shp.PolygonZ:
		return s.Parts, s.Points, true
	case *shp.PolygonM:
		return s.Parts, s.Points, true
	default:
		return nil, nil, false
	}
}

// Groups the parts of a shapefile polygon into polygons. Shapefile shells are
// clockwise and holes counter-clockwise; a hole is given to the first shell
// containing it, holes without shell are taken as shells.
func _AssemblePolygons(parts []int32, points []shp.Point) orb.MultiPolygon {
	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || end > int32(len(points)) {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		rings = append(rings, ring)
	}

	mp := make(orb.MultiPolygon, 0, 1)
	holes := make([]orb.Ring, 0)
	for _, ring := range rings {
		if ring.Orientation() == orb.CW {
			mp = append(mp, orb.Polygon{ring})
		} else {
			holes = append(holes, ring)
		}
	}
	for _, hole := range holes {
		assigned := false
		for i := range mp {
			if len(hole) > 0 && _RingContainsRing(mp[i][0], hole) {
				mp[i] = append(mp[i], hole)
				assigned = true
				break
			}
		}
		if !assigned {
			mp = append(mp, orb.Polygon{hole})
		}
	}

	// orb convention: counter-clockwise shells, clockwise holes
	for _, polygon := range mp {
		for j, ring := range polygon {
			if j == 0 && ring.Orientation() == orb.CW {
				ring.Reverse()
			} else if j > 0 && ring.Orientation() == orb.CCW {
				ring.Reverse()
			}
		}
	}
	return mp
}
