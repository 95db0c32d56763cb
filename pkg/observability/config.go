// Package observability wires OpenTelemetry tracing, metrics and structured
// logging for every way vuesetup runs: CLI, HTTP server, MCP and LSP.
package observability

import "log/slog"

// AppMode identifies how the binary was launched.
type AppMode string

// Application modes.
const (
	ModeCLI   AppMode = "cli"
	ModeServe AppMode = "serve"
	ModeMCP   AppMode = "mcp"
	ModeLSP   AppMode = "lsp"
)

const (
	defaultServiceName        = "vuesetup"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// OTLPHeaders are extra gRPC metadata headers for the OTLP exporters.
	OTLPHeaders map[string]string

	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint is the collector address. Empty disables export and
	// yields no-op providers.
	OTLPEndpoint string

	// SampleRatio is the parent-based trace sampling ratio; zero samples
	// every root span.
	SampleRatio float64

	LogLevel           slog.Level
	ShutdownTimeoutSec int
	OTLPInsecure       bool
	LogJSON            bool
}

// DefaultConfig returns a zero-export configuration for CLI use.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelWarn,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
