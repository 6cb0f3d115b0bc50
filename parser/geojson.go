package parser

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/ttpr0/go-netjoin/structs"
)

//*******************************************
// geojson reader
//*******************************************

// ReadGeoJSON reads the Polygon and MultiPolygon features of a GeoJSON
// feature collection. Attribute types follow the JSON value of the first
// feature carrying the property: strings and booleans are text, numbers are
// numeric.
func ReadGeoJSON(filename string, fields []structs.Field) (ShapeData, error) {
	fc, err := _ReadFeatureCollection(filename)
	if err != nil {
		return ShapeData{}, err
	}
	schema := _GeoJSONSchema(fc)
	resolved, columns, err := _ResolveFields(fields, schema)
	if err != nil {
		return ShapeData{}, fmt.Errorf("%s: %w", filename, err)
	}

	data := ShapeData{
		Regions: make([]structs.Region, 0, len(fc.Features)),
		Fields:  resolved,
	}
	for n, feature := range fc.Features {
		var mp orb.MultiPolygon
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			data.Skipped += 1
			continue
		}
		geom, repaired, err := _PrepareGeometry(mp, n)
		if err != nil {
			return ShapeData{}, fmt.Errorf("%s: %w", filename, err)
		}
		if repaired {
			data.Repaired += 1
		}

		values := make([]structs.Value, len(resolved))
		for k, field := range resolved {
			values[k] = _GeoJSONValue(feature.Properties[schema[columns[k]].Name], field.Type)
		}
		data.Regions = append(data.Regions, structs.NewRegion(geom, values))
	}
	return data, nil
}

func ReadGeoJSONSchema(filename string) ([]structs.Field, error) {
	fc, err := _ReadFeatureCollection(filename)
	if err != nil {
		return nil, err
	}
	return _GeoJSONSchema(fc), nil
}

func _ReadFeatureCollection(filename string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return fc, nil
}

// property names in sorted order, typed by their first non-null value
func _GeoJSONSchema(fc *geojson.FeatureCollection) []structs.Field {
	types := make(map[string]structs.FieldType)
	typed := make(map[string]bool)
	for _, feature := range fc.Features {
		for key, value := range feature.Properties {
			if value == nil {
				if _, ok := types[key]; !ok {
					types[key] = structs.TEXT
				}
				continue
			}
			if typed[key] {
				continue
			}
			typed[key] = true
			if _, ok := value.(float64); ok {
				types[key] = structs.NUMERIC
			} else {
				types[key] = structs.TEXT
			}
		}
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	schema := make([]structs.Field, len(names))
	for i, name := range names {
		schema[i] = structs.Field{Name: name, Target: name, Type: types[name]}
	}
	return schema
}

func _GeoJSONValue(value any, typ structs.FieldType) structs.Value {
	if value == nil {
		return structs.NullValue(typ)
	}
	switch v := value.(type) {
	case float64:
		if typ == structs.NUMERIC {
			return structs.NumericValue(v)
		}
		return structs.TextValue(strconv.FormatFloat(v, 'f', -1, 64))
	case string:
		if typ == structs.TEXT {
			return structs.TextValue(v)
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return structs.NumericValue(num)
		}
	}
	if typ == structs.NUMERIC {
		return structs.NullValue(typ)
	}
	return structs.TextValue(fmt.Sprint(value))
}
