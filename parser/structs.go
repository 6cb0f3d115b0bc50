package parser

import (
	"github.com/paulmach/orb"
	"github.com/ttpr0/go-netjoin/structs"
)

//*******************************************
// parser structs
//*******************************************

// row of the node export (N,X,Y)
type NodeRow struct {
	N int64   `csv:"N"`
	X float64 `csv:"X"`
	Y float64 `csv:"Y"`
}

// row of the link export (A,B)
type LinkRow struct {
	A int64 `csv:"A"`
	B int64 `csv:"B"`
}

type TempNode struct {
	Point orb.Point
	Found bool
}

type OSMLink struct {
	NodeA int64
	NodeB int64
}

// ShapeData is the result of reading a polygon source.
type ShapeData struct {
	Regions  []structs.Region
	Fields   []structs.Field
	Repaired int
	Skipped  int
}
