// Package config loads vuesetup settings from .vuesetup.yaml, VUESETUP_*
// environment variables and built-in defaults, in that order of precedence.
package config

// Logging defaults.
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Output defaults. An empty indent means "detect from the class body".
const (
	DefaultIndent       = ""
	DefaultRuntimeProps = false
	DefaultImportSource = ""
)

// Batch defaults. Zero workers means one per CPU.
const (
	DefaultBatchWorkers     = 0
	DefaultBatchWrite       = false
	DefaultBatchMaxFileSize = "1MB"
)

// DefaultBatchInclude are the glob patterns batch mode visits.
var DefaultBatchInclude = []string{"*.ts", "*.tsx"}

// Cache defaults.
const (
	DefaultCacheEnabled = true
	DefaultCacheMaxSize = "64MB"
)

// Server defaults.
const (
	DefaultServerHost         = "127.0.0.1"
	DefaultServerPort         = 8080
	DefaultServerReadTimeout  = "30s"
	DefaultServerWriteTimeout = "30s"
	DefaultServerIdleTimeout  = "60s"
	DefaultServerMaxBodySize  = "4MB"
)

// Telemetry defaults.
const (
	DefaultTelemetrySampleRatio = 0.0
	DefaultTelemetryInsecure    = false
)
