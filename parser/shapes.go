package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/ttpr0/go-netjoin/geo"
	"github.com/ttpr0/go-netjoin/structs"
	"golang.org/x/exp/slog"
)

var ErrUnknownField = errors.New("attribute not present in source schema")

// ReadShapes reads the regions of a polygon shapefile or GeoJSON file with
// the values of the requested fields. The returned fields carry the types
// declared by the source.
func ReadShapes(filename string, fields []structs.Field) (ShapeData, error) {
	var data ShapeData
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".shp":
		data, err = ReadShapefile(filename, fields)
	case ".geojson", ".json":
		data, err = ReadGeoJSON(filename, fields)
	default:
		return ShapeData{}, fmt.Errorf("unsupported shape source %s", filename)
	}
	if err != nil {
		return ShapeData{}, err
	}
	slog.Info(fmt.Sprintf("Read %d shapes from %s, cleaned %d", len(data.Regions), filename, data.Repaired))
	if data.Skipped > 0 {
		slog.Warn(fmt.Sprintf("Skipped %d shapes without polygon geometry in %s", data.Skipped, filename))
	}
	return data, nil
}

// ReadSchema lists the attributes available in a shape source.
func ReadSchema(filename string) ([]structs.Field, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".shp":
		return ReadShapefileSchema(filename)
	case ".geojson", ".json":
		return ReadGeoJSONSchema(filename)
	default:
		return nil, fmt.Errorf("unsupported shape source %s", filename)
	}
}

// resolves the requested fields against the source schema, names are
// compared case-insensitively when there is no exact match
func _ResolveFields(requested []structs.Field, schema []structs.Field) ([]structs.Field, []int, error) {
	resolved := make([]structs.Field, len(requested))
	columns := make([]int, len(requested))
	for i, field := range requested {
		column := -1
		for j, available := range schema {
			if available.Name == field.Name {
				column = j
				break
			}
		}
		if column == -1 {
			for j, available := range schema {
				if strings.EqualFold(available.Name, field.Name) {
					column = j
					break
				}
			}
		}
		if column == -1 {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownField, field.Name)
		}
		resolved[i] = structs.Field{
			Name:   schema[column].Name,
			Target: field.Target,
			Type:   schema[column].Type,
		}
		if resolved[i].Target == "" {
			resolved[i].Target = field.Name
		}
		columns[i] = column
	}
	return resolved, columns, nil
}

// validates the geometry and repairs it if needed
func _PrepareGeometry(mp orb.MultiPolygon, index int) (orb.MultiPolygon, bool, error) {
	if err := geo.Validate(mp); err == nil {
		return mp, false, nil
	} else {
		slog.Debug(fmt.Sprintf("shape %d is invalid: %v", index, err))
	}
	repaired, err := geo.Repair(mp)
	if err != nil {
		return nil, false, fmt.Errorf("shape %d: %w", index, err)
	}
	return repaired, true, nil
}

// whether the inner ring lies inside the outer one, judged by the first vertex
// not on the outer boundary
func _RingContainsRing(outer orb.Ring, inner orb.Ring) bool {
	shell := orb.Polygon{outer}
	for _, p := range inner {
		switch geo.LocateInPolygon(shell, p) {
		case geo.INTERIOR:
			return true
		case geo.EXTERIOR:
			return false
		}
	}
	return true
}
