package parser

import (
	. "github.com/ttpr0/go-netjoin/util"
)

//*******************************************
// osm link filter
//*******************************************

type ILinkFilter interface {
	IsValidLink(tags Dict[string, string]) bool
}

// HighwayFilter accepts ways of the highway classes carried by a regional
// auto network.
type HighwayFilter struct {
}

var highway_types = Dict[string, bool]{"motorway": true, "motorway_link": true, "trunk": true, "trunk_link": true,
	"primary": true, "primary_link": true, "secondary": true, "secondary_link": true, "tertiary": true, "tertiary_link": true,
	"residential": true, "living_street": true, "unclassified": true, "road": true}

func (self *HighwayFilter) IsValidLink(tags Dict[string, string]) bool {
	if !tags.ContainsKey("highway") {
		return false
	}
	if !highway_types.ContainsKey(tags.Get("highway")) {
		return false
	}
	if tags.Get("area") == "yes" {
		return false
	}
	return true
}

// AllWaysFilter accepts every way tagged as highway.
type AllWaysFilter struct {
}

func (self *AllWaysFilter) IsValidLink(tags Dict[string, string]) bool {
	return tags.ContainsKey("highway")
}
