package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mrzor/endpoint-sec/internal/event"
)

// Output selects where processed events go.
const (
	OutputStdout = "stdout"
	OutputOTEL   = "otel"
	OutputBoth   = "both"
)

// CustomAttribute is a named expression evaluated against every event.
type CustomAttribute struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expr"`
}

// Config holds the resolved configuration of es-tap.
type Config struct {
	// RingBufPath is the bpffs path of the pinned ring buffer map.
	RingBufPath string
	// Kinds restricts delivery to these kinds. Empty means all kinds.
	Kinds []event.Kind
	// Filter is an expr boolean expression; events it rejects are dropped.
	Filter string
	// TraceID is an expr expression grouping events into traces.
	TraceID          string
	CustomAttributes []CustomAttribute
	// DedupSize bounds the duplicate suppression window. 0 disables it.
	DedupSize int
	// RulesDir holds Sigma rules. Empty disables detection.
	RulesDir string
	Output   string
}

// EnvConfig holds settings read from ES_TAP_* environment variables.
type EnvConfig struct {
	RingBuf    string   `env:"ES_TAP_RINGBUF" envDefault:"/sys/fs/bpf/es_events"`
	Kinds      []string `env:"ES_TAP_KINDS" envSeparator:","`
	Filter     string   `env:"ES_TAP_FILTER"`
	TraceID    string   `env:"ES_TAP_TRACE_ID"`
	Attributes string   `env:"ES_TAP_ATTRIBUTES"`
	DedupSize  int      `env:"ES_TAP_DEDUP_SIZE"`
	RulesDir   string   `env:"ES_TAP_RULES_DIR"`
	Output     string   `env:"ES_TAP_OUTPUT" envDefault:"stdout"`
}

// ParseEnvConfig parses configuration from environment variables.
func ParseEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return &cfg, nil
}

// FileConfig is the YAML configuration file. Unset fields keep the
// environment's value.
type FileConfig struct {
	RingBuf    string            `yaml:"ringbuf"`
	Kinds      []string          `yaml:"kinds"`
	Filter     string            `yaml:"filter"`
	TraceID    string            `yaml:"trace_id"`
	Attributes []CustomAttribute `yaml:"attributes"`
	DedupSize  *int              `yaml:"dedup_size"`
	RulesDir   string            `yaml:"rules_dir"`
	Output     string            `yaml:"output"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	for i, a := range fc.Attributes {
		if err := validateAttribute(a); err != nil {
			return nil, fmt.Errorf("attribute %d in %s: %w", i, path, err)
		}
	}
	return &fc, nil
}

// Flags holds command-line overrides. Zero values mean "not given".
type Flags struct {
	RingBuf    string
	Kinds      []string
	Filter     string
	TraceID    string
	Attributes []string
	DedupSize  *int
	RulesDir   string
	Output     string
}

// Resolve merges the layers: environment, then the file (may be nil), then
// flags. Custom attributes accumulate across layers in that order.
func Resolve(envCfg *EnvConfig, file *FileConfig, flags Flags) (*Config, error) {
	kinds := envCfg.Kinds
	cfg := &Config{
		RingBufPath: envCfg.RingBuf,
		Filter:      envCfg.Filter,
		TraceID:     envCfg.TraceID,
		DedupSize:   envCfg.DedupSize,
		RulesDir:    envCfg.RulesDir,
		Output:      envCfg.Output,
	}

	envAttrs, err := ParseAttributeString(envCfg.Attributes)
	if err != nil {
		return nil, fmt.Errorf("ES_TAP_ATTRIBUTES: %w", err)
	}
	cfg.CustomAttributes = append(cfg.CustomAttributes, envAttrs...)

	if file != nil {
		override(&cfg.RingBufPath, file.RingBuf)
		override(&cfg.Filter, file.Filter)
		override(&cfg.TraceID, file.TraceID)
		override(&cfg.RulesDir, file.RulesDir)
		override(&cfg.Output, file.Output)
		if len(file.Kinds) > 0 {
			kinds = file.Kinds
		}
		if file.DedupSize != nil {
			cfg.DedupSize = *file.DedupSize
		}
		cfg.CustomAttributes = append(cfg.CustomAttributes, file.Attributes...)
	}

	override(&cfg.RingBufPath, flags.RingBuf)
	override(&cfg.Filter, flags.Filter)
	override(&cfg.TraceID, flags.TraceID)
	override(&cfg.RulesDir, flags.RulesDir)
	override(&cfg.Output, flags.Output)
	if len(flags.Kinds) > 0 {
		kinds = flags.Kinds
	}
	if flags.DedupSize != nil {
		cfg.DedupSize = *flags.DedupSize
	}
	for _, s := range flags.Attributes {
		attrs, err := ParseAttributeString(s)
		if err != nil {
			return nil, fmt.Errorf("--attr %q: %w", s, err)
		}
		cfg.CustomAttributes = append(cfg.CustomAttributes, attrs...)
	}

	cfg.Kinds, err = parseKinds(kinds)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseKinds(names []string) ([]event.Kind, error) {
	var kinds []event.Kind
	var errs []error
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		k, ok := event.ParseKind(name)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown event kind %q", name))
			continue
		}
		kinds = append(kinds, k)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return kinds, nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.RingBufPath == "" {
		return fmt.Errorf("ring buffer path is required")
	}
	if c.DedupSize < 0 {
		return fmt.Errorf("dedup size must not be negative, got %d", c.DedupSize)
	}
	switch c.Output {
	case OutputStdout, OutputOTEL, OutputBoth:
	default:
		return fmt.Errorf("output must be one of %s, %s, %s; got %q", OutputStdout, OutputOTEL, OutputBoth, c.Output)
	}
	return nil
}

// WantsOTEL reports whether spans should be exported.
func (c *Config) WantsOTEL() bool {
	return c.Output == OutputOTEL || c.Output == OutputBoth
}

// WantsStdout reports whether events should be printed.
func (c *Config) WantsStdout() bool {
	return c.Output == OutputStdout || c.Output == OutputBoth
}

// ParseAttributeString parses "name=expr;name2=expr2". Empty sections are
// skipped; the first '=' separates name from expression.
func ParseAttributeString(s string) ([]CustomAttribute, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var attrs []CustomAttribute
	for _, section := range strings.Split(s, ";") {
		if strings.TrimSpace(section) == "" {
			continue
		}
		name, expression, ok := strings.Cut(section, "=")
		if !ok {
			return nil, fmt.Errorf("invalid attribute format %q, expected name=expression", section)
		}
		attr := CustomAttribute{
			Name:       strings.TrimSpace(name),
			Expression: strings.TrimSpace(expression),
		}
		if err := validateAttribute(attr); err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func validateAttribute(a CustomAttribute) error {
	if a.Name == "" {
		return fmt.Errorf("attribute name cannot be empty")
	}
	if a.Expression == "" {
		return fmt.Errorf("attribute %q: expression cannot be empty", a.Name)
	}
	return nil
}
