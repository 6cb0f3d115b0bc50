package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ttpr0/go-netjoin/matching"
	"golang.org/x/exp/slog"
)

func _WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return filename
}

const TEST_CONFIG = `
network:
  type: osm
  file: region.osm.pbf
  ways: all
shapes:
  file: zones.shp
  fields:
    - shape: ZONE
      network: TAZ
    - shape: NAME
output:
  file: out.csv
  header: true
matching:
  workers: 3
  index: none
  progress-interval: 50
logging:
  level: debug
metrics:
  file: metrics.prom
tracing:
  enabled: true
  exporter: otlp
  endpoint: collector:4317
`

func TestReadConfig(t *testing.T) {
	filename := _WriteFile(t, t.TempDir(), "job.yaml", TEST_CONFIG)
	config, err := ReadConfig(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	network, ok := config.Network.Value.(OSMNetworkOptions)
	if !ok {
		t.Fatalf("network = %T; want OSMNetworkOptions", config.Network.Value)
	}
	if network.File != "region.osm.pbf" || network.Ways != "all" {
		t.Errorf("network = %+v", network)
	}
	fields := config.Fields()
	if len(fields) != 2 || fields[0].Target != "TAZ" || fields[1].Target != "NAME" {
		t.Errorf("fields = %+v", fields)
	}
	if config.Matching.Workers != 3 || config.Matching.Index != matching.INDEX_NONE || config.Matching.ProgressInterval != 50 {
		t.Errorf("matching = %+v", config.Matching)
	}
	if !config.Output.Header || config.Metrics.File != "metrics.prom" {
		t.Errorf("output = %+v, metrics = %+v", config.Output, config.Metrics)
	}
	if !config.Tracing.Enabled || config.Tracing.Endpoint != "collector:4317" {
		t.Errorf("tracing = %+v", config.Tracing)
	}
	level, err := config.LogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("config.LogLevel() = %v, %v; want DEBUG", level, err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestReadConfigMissing(t *testing.T) {
	if _, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("missing config file accepted")
	}
}

func TestReadConfigUnknownNetwork(t *testing.T) {
	filename := _WriteFile(t, t.TempDir(), "job.yaml", "network:\n  type: gtfs\n")
	if _, err := ReadConfig(filename); err == nil {
		t.Errorf("unknown network type accepted")
	}
}

func TestApplyFlags(t *testing.T) {
	config := DefaultConfig()
	flags := &AttachFlags{
		Nodes:   "nodes.csv",
		Links:   "links.csv",
		Fields:  stringList{"ZONE", "NAME"},
		Targets: stringList{"TAZ", "ZNAME"},
		Index:   "none",
		Workers: 2,
	}
	set := map[string]bool{"nodes": true, "links": true, "s": true, "c": true, "index": true, "workers": true}
	if err := config.ApplyFlags(flags, set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := config.Network.Value.(CSVNetworkOptions); !ok {
		t.Errorf("network = %T; want CSVNetworkOptions", config.Network.Value)
	}
	if config.Shapes.Fields[1].Network != "ZNAME" {
		t.Errorf("fields = %+v", config.Shapes.Fields)
	}
	if config.Matching.Index != matching.INDEX_NONE || config.Matching.Workers != 2 {
		t.Errorf("matching = %+v", config.Matching)
	}
}

func TestApplyFlagsFieldMismatch(t *testing.T) {
	config := DefaultConfig()
	flags := &AttachFlags{Fields: stringList{"A", "B"}, Targets: stringList{"X"}}
	err := config.ApplyFlags(flags, map[string]bool{"s": true, "c": true})
	var uerr usageError
	if !errors.As(err, &uerr) {
		t.Errorf("err = %v; want usage error", err)
	}
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err == nil {
		t.Errorf("empty config accepted")
	}
	config.Network.Value = CSVNetworkOptions{Nodes: "nodes.csv"}
	config.Shapes.File = "zones.shp"
	config.Shapes.Fields = []FieldOptions{{Shape: "ZONE"}}
	config.Output.File = "out.csv"
	if err := config.Validate(); err == nil {
		t.Errorf("csv network without links accepted")
	}
}

func TestValidateTargetNames(t *testing.T) {
	config := DefaultConfig()
	config.Network.Value = CSVNetworkOptions{Nodes: "nodes.csv", Links: "links.csv"}
	config.Shapes.File = "zones.shp"
	config.Output.File = "out.csv"
	config.Shapes.Fields = []FieldOptions{{Shape: "ZONE", Network: "TAZ"}}
	if err := config.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, target := range []string{"TAZ,NAME", `say "x"`, "two\nlines"} {
		config.Shapes.Fields = []FieldOptions{{Shape: "ZONE", Network: target}}
		if err := config.Validate(); err == nil {
			t.Errorf("target %q accepted", target)
		}
	}
	// the field name is the target when none is given
	config.Shapes.Fields = []FieldOptions{{Shape: "A,B"}}
	if err := config.Validate(); err == nil {
		t.Errorf("field name with comma accepted as target")
	}
}

func TestAttachTargetWithComma(t *testing.T) {
	nodes, links, zones, out := _WriteJob(t)
	root := NewRootCommand(io.Discard, io.Discard)
	args := []string{"attach", "-nodes", nodes, "-links", links, "-s", "zone", "-c", "TAZ,X", zones, out}
	if ExitCode(root.ParseAndRun(context.Background(), args)) != 2 {
		t.Errorf("target with comma does not exit with 2")
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("hidden")
	logger.With("file", "zones.shp").WithGroup("shape").Warn("invalid", "index", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines; want 1: %q", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[0], "WARN invalid file=zones.shp shape.index=3") {
		t.Errorf("line = %q", lines[0])
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Errorf("ExitCode(nil) != 0")
	}
	if ExitCode(usageError{"bad"}) != 2 {
		t.Errorf("usage error does not exit with 2")
	}
	if ExitCode(flag.ErrHelp) != 2 {
		t.Errorf("help does not exit with 2")
	}
	if ExitCode(errors.New("failed to read")) != 1 {
		t.Errorf("setup error does not exit with 1")
	}
}

//*******************************************
// end to end
//*******************************************

const TEST_ZONES = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"zone": 7, "name": "West"},
      "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [4, 0], [4, 4], [0, 4], [0, 0]]]}
    },
    {
      "type": "Feature",
      "properties": {"zone": 9, "name": "East"},
      "geometry": {"type": "Polygon", "coordinates": [[[4, 0], [8, 0], [8, 4], [4, 4], [4, 0]]]}
    }
  ]
}`

func _WriteJob(t *testing.T) (string, string, string, string) {
	dir := t.TempDir()
	nodes := _WriteFile(t, dir, "nodes.csv", "1,1,1\n2,3,1\n3,6,1\n4,20,20\n")
	links := _WriteFile(t, dir, "links.csv", "1,2\n2,3\n3,4\n4,4\n")
	zones := _WriteFile(t, dir, "zones.geojson", TEST_ZONES)
	return nodes, links, zones, filepath.Join(dir, "out.csv")
}

func TestAttachCommand(t *testing.T) {
	nodes, links, zones, out := _WriteJob(t)
	metrics := filepath.Join(filepath.Dir(out), "netjoin.prom")

	root := NewRootCommand(io.Discard, io.Discard)
	args := []string{
		"attach",
		"-nodes", nodes, "-links", links,
		"-s", "zone", "-c", "TAZ",
		"-s", "name", "-c", "NAME",
		"-workers", "2",
		"-header",
		"-log-level", "warn",
		"-metrics-file", metrics,
		zones, out,
	}
	if err := root.ParseAndRun(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "A,B,TAZ,NAME\n" +
		"1,2,7,\"West\"\n" +
		"2,3,9,\"East\"\n" +
		"3,4,9,\"East\"\n"
	if string(data) != want {
		t.Errorf("output = %q; want %q", string(data), want)
	}

	prom, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(prom), "netjoin_segments_unmatched_total 1") {
		t.Errorf("metrics file misses the unmatched link")
	}
}

func TestAttachUnknownField(t *testing.T) {
	nodes, links, zones, out := _WriteJob(t)
	root := NewRootCommand(io.Discard, io.Discard)
	args := []string{"attach", "-nodes", nodes, "-links", links, "-s", "population", "-log-level", "error", zones, out}
	err := root.ParseAndRun(context.Background(), args)
	if err == nil {
		t.Fatalf("unknown field accepted")
	}
	if ExitCode(err) != 1 {
		t.Errorf("ExitCode(%v) = %v; want 1", err, ExitCode(err))
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written although loading failed")
	}
}

func TestAttachUsage(t *testing.T) {
	nodes, links, zones, _ := _WriteJob(t)
	root := NewRootCommand(io.Discard, io.Discard)
	args := []string{"attach", "-nodes", nodes, "-links", links, "-s", "zone", zones}
	err := root.ParseAndRun(context.Background(), args)
	var uerr usageError
	if !errors.As(err, &uerr) {
		t.Errorf("err = %v; want usage error", err)
	}
}

func TestInspectCommand(t *testing.T) {
	_, _, zones, _ := _WriteJob(t)
	var buf bytes.Buffer
	root := NewRootCommand(&buf, io.Discard)
	if err := root.ParseAndRun(context.Background(), []string{"inspect", zones}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := buf.String()
	if !strings.Contains(text, "name") || !strings.Contains(text, "text") || !strings.Contains(text, "numeric") {
		t.Errorf("inspect output = %q", text)
	}
}
