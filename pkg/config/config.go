package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
	"github.com/Sumatoshi-tech/vuesetup/pkg/rules"
)

// Sentinel validation errors.
var (
	ErrInvalidPort      = errors.New("invalid server port")
	ErrInvalidWorkers   = errors.New("batch workers must not be negative")
	ErrInvalidSize      = errors.New("invalid size")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidIndent    = errors.New("indent must be spaces or tabs")
	ErrInvalidRatio     = errors.New("sample ratio must be within [0, 1]")
)

const maxPort = 65535

// Config is the full vuesetup configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	// Rules is the path of a rules YAML file. Empty selects the built-in set.
	Rules string `mapstructure:"rules"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig controls the emitted code.
type OutputConfig struct {
	Indent       string `mapstructure:"indent"`
	ImportSource string `mapstructure:"import_source"`
	RuntimeProps bool   `mapstructure:"runtime_props"`
}

// BatchConfig controls directory conversion.
type BatchConfig struct {
	MaxFileSize string   `mapstructure:"max_file_size"`
	Include     []string `mapstructure:"include"`
	Exclude     []string `mapstructure:"exclude"`
	Workers     int      `mapstructure:"workers"`
	Write       bool     `mapstructure:"write"`
}

// CacheConfig controls the in-memory result cache.
type CacheConfig struct {
	MaxSize string `mapstructure:"max_size"`
	Enabled bool   `mapstructure:"enabled"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	MaxBodySize  string        `mapstructure:"max_body_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Port         int           `mapstructure:"port"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if strings.Trim(c.Output.Indent, " \t") != "" {
		return fmt.Errorf("%w: %q", ErrInvalidIndent, c.Output.Indent)
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Batch.Workers)
	}

	for _, size := range []string{c.Batch.MaxFileSize, c.Cache.MaxSize, c.Server.MaxBodySize} {
		if _, err := humanize.ParseBytes(size); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSize, size)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// ConvertOptions maps the output section onto converter options.
func (c *Config) ConvertOptions() convert.Options {
	return convert.Options{
		Indent:       c.Output.Indent,
		ImportSource: c.Output.ImportSource,
		RuntimeProps: c.Output.RuntimeProps,
	}
}

// LoadRules reads the configured rule file, or returns the defaults.
func (c *Config) LoadRules() (*rules.Rules, error) {
	if c.Rules == "" {
		return rules.Default(), nil
	}

	r, err := rules.LoadFile(c.Rules)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	return r, nil
}

// Observability builds the telemetry configuration for one run mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Mode = mode
	cfg.Environment = c.Telemetry.Environment
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.LogJSON = c.Logging.Format == "json"

	if level, err := parseLevel(c.Logging.Level); err == nil {
		cfg.LogLevel = level
	}

	return cfg
}

// Bytes parses a validated size setting.
func Bytes(size string) int64 {
	n, err := humanize.ParseBytes(size)
	if err != nil || n > 1<<62 {
		return 0
	}

	return int64(n)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}

	return level, nil
}
