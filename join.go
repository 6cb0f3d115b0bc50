package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ttpr0/go-netjoin/matching"
	"github.com/ttpr0/go-netjoin/observe"
	"github.com/ttpr0/go-netjoin/output"
	"github.com/ttpr0/go-netjoin/parser"
	"github.com/ttpr0/go-netjoin/structs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/exp/slog"
)

// JoinSummary reports the counts of a finished run.
type JoinSummary struct {
	Segments  int
	Regions   int
	Repaired  int
	Matched   int
	Unmatched int
	VarList   string
}

// RunJoin loads network and shapes, matches every segment to a region and
// writes the matched segments with the region attributes. Nothing is written
// when loading fails.
func RunJoin(ctx context.Context, config Config, collector *observe.JoinCollector) (JoinSummary, error) {
	summary := JoinSummary{}

	segments, err := _RunStage(ctx, "load-network", collector, func(ctx context.Context) ([]structs.Segment, error) {
		return LoadNetwork(ctx, config.Network)
	})
	if err != nil {
		return summary, err
	}
	summary.Segments = len(segments)

	data, err := _RunStage(ctx, "load-shapes", collector, func(ctx context.Context) (parser.ShapeData, error) {
		return parser.ReadShapes(config.Shapes.File, config.Fields())
	})
	if err != nil {
		return summary, err
	}
	summary.Regions = len(data.Regions)
	summary.Repaired = data.Repaired
	if collector != nil {
		collector.ObserveRegions(len(data.Regions), data.Repaired)
	}

	mapping, err := _RunStage(ctx, "match", collector, func(ctx context.Context) (matching.Mapping, error) {
		opts := matching.MatchOptions{
			Workers:          config.Matching.Workers,
			Index:            config.Matching.Index,
			ProgressInterval: config.Matching.ProgressInterval,
		}
		if collector != nil {
			opts.Recorder = collector
		}
		matcher := matching.NewMatcher(data.Regions, opts)
		return matcher.Match(ctx, segments)
	})
	if err != nil {
		return summary, err
	}
	summary.Matched = mapping.MatchedCount()
	summary.Unmatched = len(mapping.Unmatched)

	_, err = _RunStage(ctx, "write", collector, func(ctx context.Context) (int, error) {
		records := output.Assemble(segments, data.Regions, mapping)
		opts := output.WriterOptions{Header: config.Output.Header}
		if err := output.WriteFile(config.Output.File, data.Fields, records, opts); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", config.Output.File, err)
		}
		return len(records), nil
	})
	if err != nil {
		return summary, err
	}

	summary.VarList = output.VarList(data.Fields)
	slog.Info(fmt.Sprintf("Matched %d of %d links, %d without match", summary.Matched, summary.Segments, summary.Unmatched))
	slog.Info("Var list: " + summary.VarList)
	return summary, nil
}

// LoadNetwork reads the segments of the configured network source.
func LoadNetwork(ctx context.Context, source NetworkSource) ([]structs.Segment, error) {
	switch opts := source.Value.(type) {
	case CSVNetworkOptions:
		return parser.ReadNetworkCSV(opts.Nodes, opts.Links)
	case OSMNetworkOptions:
		var filter parser.ILinkFilter = &parser.HighwayFilter{}
		if opts.Ways == "all" {
			filter = &parser.AllWaysFilter{}
		}
		return parser.ReadNetworkOSM(ctx, opts.File, filter)
	default:
		return nil, fmt.Errorf("no network source configured")
	}
}

// runs one stage inside its own span and records its duration
func _RunStage[T any](ctx context.Context, stage string, collector *observe.JoinCollector, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, span := observe.StartStage(ctx, stage, attribute.String("stage", stage))
	defer span.End()

	res, err := fn(ctx)
	if collector != nil {
		collector.ObserveStage(stage, start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	slog.Debug("finished stage", "stage", stage, "duration", time.Since(start).String())
	return res, nil
}
