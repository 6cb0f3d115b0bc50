package structs

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

//*******************************************
// network structs
//*******************************************

// Segment is a straight network link between two nodes.
type Segment struct {
	From        orb.Point
	To          orb.Point
	Origin      int64
	Destination int64
}

func NewSegment(from, to orb.Point, origin, destination int64) Segment {
	return Segment{
		From:        from,
		To:          to,
		Origin:      origin,
		Destination: destination,
	}
}

func (self Segment) LineString() orb.LineString {
	return orb.LineString{self.From, self.To}
}

func (self Segment) Bound() orb.Bound {
	return orb.MultiPoint{self.From, self.To}.Bound()
}

//*******************************************
// region structs
//*******************************************

// Region is a polygon with the attribute values requested for it, in the
// order of the requested fields.
type Region struct {
	Geometry orb.MultiPolygon
	Bound    orb.Bound
	Values   []Value
}

func NewRegion(geom orb.MultiPolygon, values []Value) Region {
	return Region{
		Geometry: geom,
		Bound:    geom.Bound(),
		Values:   values,
	}
}

// Field names a region attribute and the column it is written to.
type Field struct {
	Name   string
	Target string
	Type   FieldType
}

func NewField(name, target string) Field {
	if target == "" {
		target = name
	}
	return Field{Name: name, Target: target}
}

type Value struct {
	Type FieldType
	Text string
	Num  float64
	Null bool
}

func TextValue(s string) Value {
	return Value{Type: TEXT, Text: s}
}

func NumericValue(v float64) Value {
	return Value{Type: NUMERIC, Num: v}
}

func NullValue(typ FieldType) Value {
	return Value{Type: typ, Null: true}
}

func (self Value) String() string {
	if self.Null {
		return ""
	}
	if self.Type == TEXT {
		return self.Text
	}
	return strconv.FormatFloat(self.Num, 'f', -1, 64)
}

//*******************************************
// enums
//*******************************************

type FieldType byte

const (
	NUMERIC FieldType = 0
	TEXT    FieldType = 1
)

func (self FieldType) String() string {
	switch self {
	case NUMERIC:
		return "numeric"
	case TEXT:
		return "text"
	default:
		panic("unknown field type")
	}
}
func (self FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(self.String())
}
func (self *FieldType) UnmarshalJSON(data []byte) error {
	var typ string
	if err := json.Unmarshal(data, &typ); err != nil {
		return err
	}
	field_typ, err := FieldTypeFromString(typ)
	*self = field_typ
	return err
}
func (self FieldType) MarshalYAML() (any, error) {
	return self.String(), nil
}
func (self *FieldType) UnmarshalYAML(value *yaml.Node) error {
	typ, err := FieldTypeFromString(value.Value)
	if err != nil {
		return err
	}
	*self = typ
	return nil
}

func FieldTypeFromString(s string) (FieldType, error) {
	switch s {
	case "numeric":
		return NUMERIC, nil
	case "text":
		return TEXT, nil
	default:
		return NUMERIC, errors.New("unknown field type")
	}
}
