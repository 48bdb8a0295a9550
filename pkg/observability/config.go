// Package observability wires OpenTelemetry tracing and metrics together with
// structured logging for the arborist CLI and library callers.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot command run.
	ModeCLI AppMode = "cli"
	// ModeLibrary is an embedding program driving the Runner directly.
	ModeLibrary AppMode = "library"
)

const (
	defaultServiceName        = "arborist"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// LogWriter receives log output. Nil means os.Stderr.
	LogWriter io.Writer

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporters.
	OTLPHeaders map[string]string

	ServiceName    string
	ServiceVersion string
	Mode           AppMode

	// OTLPEndpoint is the collector address. Empty disables export and
	// installs no-op providers.
	OTLPEndpoint string

	// SampleRatio is the parent-based trace sampling ratio. Zero samples everything.
	SampleRatio float64

	ShutdownTimeoutSec int
	LogLevel           slog.Level
	OTLPInsecure       bool
	LogJSON            bool
}

// DefaultConfig returns the zero-config startup settings.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
