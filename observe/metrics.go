package observe

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JoinCollector bundles the Prometheus metrics of one join run.
type JoinCollector struct {
	gatherer prometheus.Gatherer

	Segments          prometheus.Counter
	SegmentsMatched   prometheus.Counter
	SegmentsUnmatched prometheus.Counter
	RegionsLoaded     prometheus.Counter
	RegionsRepaired   prometheus.Counter
	CandidatesTested  prometheus.Counter
	CandidateErrors   prometheus.Counter
	StageDurations    *prometheus.HistogramVec
}

// NewJoinCollector registers the join metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewJoinCollector(reg prometheus.Registerer) (*JoinCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &JoinCollector{gatherer: gatherer}
	counters := []struct {
		target *prometheus.Counter
		name   string
		help   string
	}{
		{&c.Segments, "netjoin_segments_total", "Number of network segments matched against regions."},
		{&c.SegmentsMatched, "netjoin_segments_matched_total", "Number of segments assigned to a region."},
		{&c.SegmentsUnmatched, "netjoin_segments_unmatched_total", "Number of segments without any overlapping region."},
		{&c.RegionsLoaded, "netjoin_regions_loaded_total", "Number of regions read from the shape source."},
		{&c.RegionsRepaired, "netjoin_regions_repaired_total", "Number of regions whose geometry was repaired at load."},
		{&c.CandidatesTested, "netjoin_candidates_tested_total", "Number of segment/region pairs tested after the bounding box filter."},
		{&c.CandidateErrors, "netjoin_candidate_errors_total", "Number of segment/region pairs skipped because of a geometry error."},
	}
	for _, def := range counters {
		counter, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: def.name,
			Help: def.help,
		}), def.name)
		if err != nil {
			return nil, err
		}
		*def.target = counter
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netjoin_stage_duration_seconds",
		Help:    "Duration of the pipeline stages in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"stage"})
	durations, err := registerHistogramVec(reg, durations, "netjoin_stage_duration_seconds")
	if err != nil {
		return nil, err
	}
	c.StageDurations = durations

	return c, nil
}

// ObserveSegment satisfies matching.IMatchRecorder.
func (c *JoinCollector) ObserveSegment(matched bool) {
	if c == nil {
		return
	}
	c.Segments.Inc()
	if matched {
		c.SegmentsMatched.Inc()
	} else {
		c.SegmentsUnmatched.Inc()
	}
}

// ObserveCandidates satisfies matching.IMatchRecorder.
func (c *JoinCollector) ObserveCandidates(tested, failed int) {
	if c == nil {
		return
	}
	c.CandidatesTested.Add(float64(tested))
	c.CandidateErrors.Add(float64(failed))
}

func (c *JoinCollector) ObserveRegions(loaded, repaired int) {
	if c == nil {
		return
	}
	c.RegionsLoaded.Add(float64(loaded))
	c.RegionsRepaired.Add(float64(repaired))
}

// ObserveStage records the time elapsed since start for the named stage.
func (c *JoinCollector) ObserveStage(stage string, start time.Time) {
	if c == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes all gathered metrics in the text exposition format,
// e.g. for the node exporter textfile collector.
func (c *JoinCollector) WriteTextfile(filename string) error {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(filename, gatherer); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
