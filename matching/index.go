package matching

import (
	"encoding/json"
	"errors"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/ttpr0/go-netjoin/geo"
	"github.com/ttpr0/go-netjoin/structs"
	"gopkg.in/yaml.v3"
)

//*******************************************
// region index interface
//*******************************************

type IRegionIndex interface {
	// Appends to buf the indices of all regions whose bounds are not disjoint
	// from bound, in ascending order.
	Candidates(bound orb.Bound, buf []int) []int
}

func NewRegionIndex(typ IndexType, regions []structs.Region) IRegionIndex {
	switch typ {
	case INDEX_RTREE:
		return NewRTreeIndex(regions)
	default:
		return NewLinearIndex(regions)
	}
}

//*******************************************
// linear scan
//*******************************************

type LinearIndex struct {
	bounds []orb.Bound
}

func NewLinearIndex(regions []structs.Region) *LinearIndex {
	bounds := make([]orb.Bound, len(regions))
	for i, region := range regions {
		bounds[i] = region.Bound
	}
	return &LinearIndex{bounds: bounds}
}

func (self *LinearIndex) Candidates(bound orb.Bound, buf []int) []int {
	for i, b := range self.bounds {
		if geo.BoundsDisjoint(bound, b) {
			continue
		}
		buf = append(buf, i)
	}
	return buf
}

//*******************************************
// r-tree
//*******************************************

type _RegionEntry struct {
	index int
	rect  rtreego.Rect
}

func (self *_RegionEntry) Bounds() rtreego.Rect {
	return self.rect
}

// RTreeIndex answers candidate queries from an r-tree over padded region
// bounds. Hits are re-checked against the exact bounds, so the result equals
// the one of a linear scan.
type RTreeIndex struct {
	tree   *rtreego.Rtree
	bounds []orb.Bound
}

func NewRTreeIndex(regions []structs.Region) *RTreeIndex {
	tree := rtreego.NewTree(2, 25, 50)
	bounds := make([]orb.Bound, len(regions))
	for i, region := range regions {
		bounds[i] = region.Bound
		rect, ok := _PaddedRect(region.Bound)
		if !ok {
			continue
		}
		tree.Insert(&_RegionEntry{index: i, rect: rect})
	}
	return &RTreeIndex{
		tree:   tree,
		bounds: bounds,
	}
}

func (self *RTreeIndex) Candidates(bound orb.Bound, buf []int) []int {
	rect, ok := _PaddedRect(bound)
	if !ok {
		return buf
	}
	start := len(buf)
	for _, hit := range self.tree.SearchIntersect(rect) {
		index := hit.(*_RegionEntry).index
		if geo.BoundsDisjoint(bound, self.bounds[index]) {
			continue
		}
		buf = append(buf, index)
	}
	sort.Ints(buf[start:])
	return buf
}

// rtreego rejects empty extents and treats touching rects as disjoint, so
// every rect is grown by a small margin
func _PaddedRect(bound orb.Bound) (rtreego.Rect, bool) {
	if !geo.IsFinite(bound.Min) || !geo.IsFinite(bound.Max) {
		return rtreego.Rect{}, false
	}
	scale := math.Max(1, math.Max(math.Max(math.Abs(bound.Min[0]), math.Abs(bound.Min[1])), math.Max(math.Abs(bound.Max[0]), math.Abs(bound.Max[1]))))
	pad := geo.EPSILON * scale
	point := rtreego.Point{bound.Min[0] - pad, bound.Min[1] - pad}
	lengths := []float64{bound.Max[0] - bound.Min[0] + 2*pad, bound.Max[1] - bound.Min[1] + 2*pad}
	rect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}

//*******************************************
// enums
//*******************************************

type IndexType byte

const (
	INDEX_NONE  IndexType = 0
	INDEX_RTREE IndexType = 1
)

func (self IndexType) String() string {
	switch self {
	case INDEX_NONE:
		return "none"
	case INDEX_RTREE:
		return "rtree"
	default:
		panic("unknown index type")
	}
}
func (self IndexType) MarshalJSON() ([]byte, error) {
	return json.Marshal(self.String())
}
func (self *IndexType) UnmarshalJSON(data []byte) error {
	var typ string
	err := json.Unmarshal(data, &typ)
	if err != nil {
		return err
	}
	*self, err = IndexTypeFromString(typ)
	return err
}
func (self IndexType) MarshalYAML() (any, error) {
	return self.String(), nil
}
func (self *IndexType) UnmarshalYAML(value *yaml.Node) error {
	typ, err := IndexTypeFromString(value.Value)
	if err != nil {
		return err
	}
	*self = typ
	return nil
}

func IndexTypeFromString(s string) (IndexType, error) {
	switch s {
	case "none", "linear":
		return INDEX_NONE, nil
	case "rtree":
		return INDEX_RTREE, nil
	default:
		return INDEX_RTREE, errors.New("unknown index type")
	}
}
