package matching

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ttpr0/go-netjoin/geo"
	"github.com/ttpr0/go-netjoin/structs"
	"golang.org/x/exp/slog"
)

// IMatchRecorder receives per-segment outcomes, e.g. for metrics.
type IMatchRecorder interface {
	ObserveSegment(matched bool)
	ObserveCandidates(tested, failed int)
}

type MatchOptions struct {
	Workers          int
	Index            IndexType
	ProgressInterval int
	Recorder         IMatchRecorder
}

func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		Workers:          1,
		Index:            INDEX_RTREE,
		ProgressInterval: 100,
	}
}

// SegmentResult is the outcome of matching a single segment.
type SegmentResult struct {
	Region    int
	Score     float64
	Contained bool
	Tested    int
	Failed    int
}

//*******************************************
// matcher
//*******************************************

// Matcher assigns every segment the region it overlaps most. Regions are
// only read, a Matcher can be shared between goroutines.
type Matcher struct {
	shapes []geo.Shape
	index  IRegionIndex
	opts   MatchOptions
}

func NewMatcher(regions []structs.Region, opts MatchOptions) *Matcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	shapes := make([]geo.Shape, len(regions))
	for i := range regions {
		shapes[i] = geo.NewShape(regions[i].Geometry)
	}
	return &Matcher{
		shapes: shapes,
		index:  NewRegionIndex(opts.Index, regions),
		opts:   opts,
	}
}

// MatchSegment scans the candidate regions in ascending index order. The
// first region containing the segment wins; otherwise the region with the
// longest overlap, the lower index on equal lengths.
func (self *Matcher) MatchSegment(seg structs.Segment, buf []int) (SegmentResult, []int) {
	result := SegmentResult{Region: NO_MATCH}
	buf = self.index.Candidates(seg.Bound(), buf[:0])
	for _, idx := range buf {
		result.Tested += 1
		overlap := self.shapes[idx].Overlap(seg.From, seg.To)
		if overlap.Err != nil {
			result.Failed += 1
			slog.Debug("no overlap for region", "origin", seg.Origin, "destination", seg.Destination, "region", idx, "error", overlap.Err)
			continue
		}
		if overlap.Contains {
			result.Region = idx
			result.Score = overlap.Length
			result.Contained = true
			break
		}
		if overlap.HasScore() && (result.Region == NO_MATCH || overlap.Length > result.Score) {
			result.Region = idx
			result.Score = overlap.Length
		}
	}
	return result, buf
}

// Match computes the mapping for all segments. With more than one worker the
// segments are distributed over goroutines, each result is stored at the
// index of its segment so the mapping does not depend on the worker count.
//
// The only error returned is the one of a cancelled context.
func (self *Matcher) Match(ctx context.Context, segments []structs.Segment) (Mapping, error) {
	mapping := NewMapping(len(segments))
	results := make([]SegmentResult, len(segments))
	processed := int64(0)

	process := func(i int, buf []int) []int {
		var res SegmentResult
		res, buf = self.MatchSegment(segments[i], buf)
		results[i] = res
		if self.opts.Recorder != nil {
			self.opts.Recorder.ObserveSegment(res.Region != NO_MATCH)
			self.opts.Recorder.ObserveCandidates(res.Tested, res.Failed)
		}
		count := atomic.AddInt64(&processed, 1)
		if self.opts.ProgressInterval > 0 && count%int64(self.opts.ProgressInterval) == 0 {
			slog.Info(fmt.Sprintf("Processed %7d links", count))
		}
		return buf
	}

	if self.opts.Workers == 1 || len(segments) < 2 {
		buf := make([]int, 0, 16)
		for i := range segments {
			if err := ctx.Err(); err != nil {
				return mapping, err
			}
			buf = process(i, buf)
		}
	} else {
		ch := make(chan int, 1024)
		var wg sync.WaitGroup
		for w := 0; w < self.opts.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				buf := make([]int, 0, 16)
				for i := range ch {
					if ctx.Err() != nil {
						continue
					}
					buf = process(i, buf)
				}
			}()
		}
	feed:
		for i := range segments {
			select {
			case ch <- i:
			case <-ctx.Done():
				break feed
			}
		}
		close(ch)
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return mapping, err
		}
	}

	for i, res := range results {
		mapping.Regions[i] = res.Region
		mapping.CandidatesTested += res.Tested
		mapping.RegionErrors += res.Failed
		if res.Region == NO_MATCH {
			seg := segments[i]
			mapping.Unmatched = append(mapping.Unmatched, i)
			slog.Warn(fmt.Sprintf("No match found for linestring %5d - %5d", seg.Origin, seg.Destination))
		}
	}
	return mapping, nil
}
