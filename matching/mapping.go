package matching

//*******************************************
// segment to region mapping
//*******************************************

const NO_MATCH = -1

// Mapping holds one region index (or NO_MATCH) per segment.
type Mapping struct {
	Regions   []int
	Unmatched []int

	CandidatesTested int
	RegionErrors     int
}

func NewMapping(segment_count int) Mapping {
	regions := make([]int, segment_count)
	for i := range regions {
		regions[i] = NO_MATCH
	}
	return Mapping{
		Regions:   regions,
		Unmatched: make([]int, 0),
	}
}

func (self *Mapping) Get(segment int) (int, bool) {
	region := self.Regions[segment]
	return region, region != NO_MATCH
}

func (self *Mapping) Length() int {
	return len(self.Regions)
}

func (self *Mapping) MatchedCount() int {
	return len(self.Regions) - len(self.Unmatched)
}
