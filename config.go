package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ttpr0/go-netjoin/matching"
	"github.com/ttpr0/go-netjoin/observe"
	"github.com/ttpr0/go-netjoin/structs"
	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

//**********************************************************
// config
//**********************************************************

func ReadConfig(file string) (Config, error) {
	slog.Info("Reading config file", "file", file)
	config := DefaultConfig()
	data, err := os.ReadFile(file)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %w", file, err)
	}
	return config, nil
}

func DefaultConfig() Config {
	config := Config{}
	config.Matching.Workers = runtime.NumCPU()
	config.Matching.Index = matching.INDEX_RTREE
	config.Matching.ProgressInterval = 100
	config.Logging.Level = "info"
	config.Tracing.Exporter = "stdout"
	return config
}

type Config struct {
	Network  NetworkSource   `yaml:"network"`
	Shapes   ShapeOptions    `yaml:"shapes"`
	Output   OutputOptions   `yaml:"output"`
	Matching MatchingOptions `yaml:"matching"`
	Logging  struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Metrics struct {
		File string `yaml:"file"`
	} `yaml:"metrics"`
	Tracing observe.TracingConfig `yaml:"tracing"`
}

type ShapeOptions struct {
	File   string         `yaml:"file"`
	Fields []FieldOptions `yaml:"fields"`
}

type FieldOptions struct {
	Shape   string `yaml:"shape"`
	Network string `yaml:"network"`
}

type OutputOptions struct {
	File   string `yaml:"file"`
	Header bool   `yaml:"header"`
}

type MatchingOptions struct {
	Workers          int                `yaml:"workers"`
	Index            matching.IndexType `yaml:"index"`
	ProgressInterval int                `yaml:"progress-interval"`
}

// Fields returns the requested shape attributes and their output names.
func (self *Config) Fields() []structs.Field {
	fields := make([]structs.Field, len(self.Shapes.Fields))
	for i, field := range self.Shapes.Fields {
		fields[i] = structs.NewField(field.Shape, field.Network)
	}
	return fields
}

// ApplyFlags overrides the config with the flags set on the command line.
func (self *Config) ApplyFlags(flags *AttachFlags, set map[string]bool) error {
	if flags.Nodes != "" || flags.Links != "" {
		if flags.OSM != "" {
			return usageError{"-osm can not be combined with -nodes/-links"}
		}
		self.Network.Value = CSVNetworkOptions{Nodes: flags.Nodes, Links: flags.Links}
	}
	if flags.OSM != "" {
		self.Network.Value = OSMNetworkOptions{File: flags.OSM, Ways: flags.Ways}
	} else if set["ways"] {
		if opts, ok := self.Network.Value.(OSMNetworkOptions); ok {
			opts.Ways = flags.Ways
			self.Network.Value = opts
		}
	}

	if len(flags.Targets) > 0 && len(flags.Targets) != len(flags.Fields) {
		return usageError{fmt.Sprintf("got %d -s fields but %d -c names", len(flags.Fields), len(flags.Targets))}
	}
	if len(flags.Fields) > 0 {
		self.Shapes.Fields = make([]FieldOptions, len(flags.Fields))
		for i, name := range flags.Fields {
			self.Shapes.Fields[i] = FieldOptions{Shape: name}
			if len(flags.Targets) > 0 {
				self.Shapes.Fields[i].Network = flags.Targets[i]
			}
		}
	}

	if set["workers"] {
		self.Matching.Workers = flags.Workers
	}
	if set["index"] {
		typ, err := matching.IndexTypeFromString(flags.Index)
		if err != nil {
			return usageError{err.Error()}
		}
		self.Matching.Index = typ
	}
	if set["progress"] {
		self.Matching.ProgressInterval = flags.Progress
	}
	if set["header"] {
		self.Output.Header = flags.Header
	}
	if set["metrics-file"] {
		self.Metrics.File = flags.MetricsFile
	}
	if set["log-level"] {
		self.Logging.Level = flags.LogLevel
	}
	if set["trace"] {
		self.Tracing.Enabled = flags.Trace
	}
	if set["trace-exporter"] {
		self.Tracing.Exporter = flags.TraceExporter
	}
	if set["trace-endpoint"] {
		self.Tracing.Endpoint = flags.TraceEndpoint
	}
	return nil
}

func (self *Config) Validate() error {
	if self.Network.Value == nil {
		return errors.New("no network source configured")
	}
	if err := self.Network.Value.Validate(); err != nil {
		return err
	}
	if self.Shapes.File == "" {
		return errors.New("no shape file configured")
	}
	if len(self.Shapes.Fields) == 0 {
		return errors.New("no shape fields requested")
	}
	for i, field := range self.Shapes.Fields {
		if field.Shape == "" {
			return fmt.Errorf("shape field %d has no name", i)
		}
	}
	// targets end up unquoted in the header line
	for _, field := range self.Fields() {
		if strings.ContainsAny(field.Target, ",\"\r\n") {
			return fmt.Errorf("target name %q contains a separator or quote", field.Target)
		}
	}
	if self.Output.File == "" {
		return errors.New("no output file configured")
	}
	return nil
}

func (self *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if self.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(self.Logging.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", self.Logging.Level)
	}
	return level, nil
}

//**********************************************************
// network options
//**********************************************************

type NetworkSource struct {
	Value INetworkOptions
}

func (self *NetworkSource) UnmarshalYAML(value *yaml.Node) error {
	m := map[string]interface{}{}
	if err := value.Decode(&m); err != nil {
		return err
	}
	name, _ := m["type"].(string)
	typ, err := NetworkTypeFromString(name)
	if err != nil {
		return err
	}
	switch typ {
	case NETWORK_CSV:
		val := CSVNetworkOptions{}
		if err := value.Decode(&val); err != nil {
			return err
		}
		self.Value = val
	case NETWORK_OSM:
		val := OSMNetworkOptions{Ways: "highway"}
		if err := value.Decode(&val); err != nil {
			return err
		}
		self.Value = val
	default:
		self.Value = nil
	}
	return nil
}

type INetworkOptions interface {
	Type() NetworkType
	Validate() error
}

// node and link exports of the network
type CSVNetworkOptions struct {
	Nodes string `yaml:"nodes"`
	Links string `yaml:"links"`
}

func (self CSVNetworkOptions) Type() NetworkType {
	return NETWORK_CSV
}

func (self CSVNetworkOptions) Validate() error {
	if self.Nodes == "" || self.Links == "" {
		return errors.New("csv network needs a node and a link file")
	}
	return nil
}

type OSMNetworkOptions struct {
	File string `yaml:"file"`
	// highway | all
	Ways string `yaml:"ways"`
}

func (self OSMNetworkOptions) Type() NetworkType {
	return NETWORK_OSM
}

func (self OSMNetworkOptions) Validate() error {
	if self.File == "" {
		return errors.New("osm network needs a file")
	}
	if self.Ways != "" && self.Ways != "highway" && self.Ways != "all" {
		return fmt.Errorf("unknown way selection %q", self.Ways)
	}
	return nil
}

//**********************************************************
// enums
//**********************************************************

type NetworkType byte

const (
	NETWORK_CSV NetworkType = 0
	NETWORK_OSM NetworkType = 1
)

func (self NetworkType) String() string {
	switch self {
	case NETWORK_CSV:
		return "csv"
	case NETWORK_OSM:
		return "osm"
	default:
		panic("unknown network type")
	}
}
func (self NetworkType) MarshalJSON() ([]byte, error) {
	return json.Marshal(self.String())
}
func (self *NetworkType) UnmarshalJSON(data []byte) error {
	var typ string
	if err := json.Unmarshal(data, &typ); err != nil {
		return err
	}
	network_typ, err := NetworkTypeFromString(typ)
	*self = network_typ
	return err
}

func NetworkTypeFromString(s string) (NetworkType, error) {
	switch s {
	case "csv", "":
		return NETWORK_CSV, nil
	case "osm":
		return NETWORK_OSM, nil
	default:
		return NETWORK_CSV, errors.New("unknown network type")
	}
}
