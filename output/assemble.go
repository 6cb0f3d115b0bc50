package output

import (
	"github.com/ttpr0/go-netjoin/matching"
	"github.com/ttpr0/go-netjoin/structs"
)

// Record is one output row: the endpoint ids of a segment and the attribute
// values of its region.
type Record struct {
	Origin      int64
	Destination int64
	Values      []structs.Value
}

// Assemble builds one record per matched segment in segment order. Unmatched
// segments produce no record.
func Assemble(segments []structs.Segment, regions []structs.Region, mapping matching.Mapping) []Record {
	records := make([]Record, 0, mapping.MatchedCount())
	for i, seg := range segments {
		region, ok := mapping.Get(i)
		if !ok {
			continue
		}
		records = append(records, Record{
			Origin:      seg.Origin,
			Destination: seg.Destination,
			Values:      regions[region].Values,
		})
	}
	return records
}
