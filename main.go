package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ttpr0/go-netjoin/observe"
	"github.com/ttpr0/go-netjoin/parser"
	"golang.org/x/exp/slog"
)

func main() {
	InitLogging(os.Stderr, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Parse(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(2)
	}
	err := root.Run(ctx)
	if errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
	}
	os.Exit(ExitCode(err))
}

// ExitCode maps the result of a command run to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var uerr usageError
	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, "error:", uerr.msg)
		return 2
	}
	slog.Error(err.Error())
	return 1
}

type usageError struct {
	msg string
}

func (self usageError) Error() string {
	return self.msg
}

// stringList collects the values of a repeatable flag.
type stringList []string

func (self *stringList) String() string {
	return strings.Join(*self, ",")
}

func (self *stringList) Set(value string) error {
	*self = append(*self, value)
	return nil
}

type AttachFlags struct {
	Config        string
	Nodes         string
	Links         string
	OSM           string
	Ways          string
	Fields        stringList
	Targets       stringList
	Workers       int
	Index         string
	Progress      int
	Header        bool
	MetricsFile   string
	LogLevel      string
	Trace         bool
	TraceExporter string
	TraceEndpoint string
	CPUProfile    string
}

func (self *AttachFlags) Register(fs *flag.FlagSet) {
	defaults := DefaultConfig()
	fs.StringVar(&self.Config, "config", "", "yaml job file, flags override its values")
	fs.StringVar(&self.Nodes, "nodes", "", "node export of the network (N,X,Y)")
	fs.StringVar(&self.Links, "links", "", "link export of the network (A,B)")
	fs.StringVar(&self.OSM, "osm", "", "OSM file (.pbf or .osm) to build the network from")
	fs.StringVar(&self.Ways, "ways", "highway", "ways taken from the OSM file: highway | all")
	fs.Var(&self.Fields, "s", "shape attribute to attach (repeatable)")
	fs.Var(&self.Targets, "c", "network column name for the matching -s attribute (repeatable)")
	fs.IntVar(&self.Workers, "workers", defaults.Matching.Workers, "number of matching goroutines")
	fs.StringVar(&self.Index, "index", defaults.Matching.Index.String(), "candidate index: rtree | none")
	fs.IntVar(&self.Progress, "progress", defaults.Matching.ProgressInterval, "log progress every n links, 0 disables")
	fs.BoolVar(&self.Header, "header", false, "write a header line")
	fs.StringVar(&self.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	fs.StringVar(&self.LogLevel, "log-level", defaults.Logging.Level, "debug | info | warn | error")
	fs.BoolVar(&self.Trace, "trace", false, "trace the pipeline stages")
	fs.StringVar(&self.TraceExporter, "trace-exporter", defaults.Tracing.Exporter, "stdout | otlp")
	fs.StringVar(&self.TraceEndpoint, "trace-endpoint", "", "otlp collector endpoint")
	fs.StringVar(&self.CPUProfile, "cpuprofile", "", "write a CPU profile to this file")
}

//*******************************************
// commands
//*******************************************

func NewRootCommand(stdout, stderr io.Writer) *ffcli.Command {
	root_fs := flag.NewFlagSet("netjoin", flag.ContinueOnError)
	root_fs.SetOutput(stderr)

	attach := NewAttachCommand(stderr)
	inspect := NewInspectCommand(stdout, stderr)

	return &ffcli.Command{
		Name:        "netjoin",
		ShortUsage:  "netjoin <subcommand> [flags] <args>",
		ShortHelp:   "attach polygon attributes to network links",
		FlagSet:     root_fs,
		Subcommands: []*ffcli.Command{attach, inspect},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func NewAttachCommand(stderr io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("netjoin attach", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := &AttachFlags{}
	flags.Register(fs)

	return &ffcli.Command{
		Name:       "attach",
		ShortUsage: "netjoin attach [flags] <shapes.shp|.geojson> <out.csv>",
		ShortHelp:  "match every link to the polygon it overlaps most and write the attributes",
		LongHelp: strings.Join([]string{
			"Links are read from -nodes/-links or -osm. Every link gets the attributes",
			"given with -s of the polygon containing it, or else of the polygon with the",
			"longest overlap. Links outside all polygons are left out of the output.",
		}, "\n"),
		FlagSet: fs,
		Exec: func(ctx context.Context, args []string) error {
			set := map[string]bool{}
			fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
			return RunAttach(ctx, flags, set, args)
		},
	}
}

func RunAttach(ctx context.Context, flags *AttachFlags, set map[string]bool, args []string) error {
	config := DefaultConfig()
	if flags.Config != "" {
		var err error
		config, err = ReadConfig(flags.Config)
		if err != nil {
			return err
		}
	}
	switch len(args) {
	case 0:
	case 2:
		config.Shapes.File = args[0]
		config.Output.File = args[1]
	default:
		return usageError{"expected <shapes> <out.csv>"}
	}
	if err := config.ApplyFlags(flags, set); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return usageError{err.Error()}
	}

	level, err := config.LogLevel()
	if err != nil {
		return usageError{err.Error()}
	}
	InitLogging(os.Stderr, level)

	if flags.CPUProfile != "" {
		f, err := os.Create(flags.CPUProfile)
		if err != nil {
			return fmt.Errorf("failed to create profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	shutdown, err := observe.InitTracing(ctx, config.Tracing)
	if err != nil {
		return err
	}
	defer observe.ShutdownWithTimeout(context.Background(), shutdown)

	collector, err := observe.NewJoinCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	_, err = RunJoin(ctx, config, collector)
	if config.Metrics.File != "" {
		if merr := collector.WriteTextfile(config.Metrics.File); merr != nil {
			slog.Warn("failed to write metrics", "file", config.Metrics.File, "error", merr)
		}
	}
	return err
}

func NewInspectCommand(stdout, stderr io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("netjoin inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)

	return &ffcli.Command{
		Name:       "inspect",
		ShortUsage: "netjoin inspect <shapes.shp|.geojson>",
		ShortHelp:  "list the attributes of a shape file",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError{"expected <shapes>"}
			}
			fields, err := parser.ReadSchema(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE")
			for _, field := range fields {
				fmt.Fprintf(w, "%s\t%s\n", field.Name, field.Type)
			}
			return w.Flush()
		},
	}
}
