// Package config provides configuration types and helpers for distill.
package config

import (
	"encoding/json"
	"strings"
	"time"
)

// Config holds the application-wide configuration.
type Config struct {
	Format           string      `mapstructure:"format"`
	Verbose          bool        `mapstructure:"verbose"`
	TimestampFormats []string    `mapstructure:"timestamp_formats"`
	Drain            DrainConfig `mapstructure:"drain"`
}

// DrainConfig holds the template-mining engine settings.
type DrainConfig struct {
	// Depth is the parse tree depth. Must be at least 2; the engine
	// descends depth-2 token levels below the length bucket.
	Depth int `mapstructure:"depth"`

	// SimThreshold is the minimum similarity for merging a line into an
	// existing template, in [0.0, 1.0].
	SimThreshold float64 `mapstructure:"sim_threshold"`

	// MaxChildren caps the distinct children of any parse tree node.
	MaxChildren int `mapstructure:"max_children"`

	// MaxClusters caps the total number of templates across the tree.
	MaxClusters int `mapstructure:"max_clusters"`

	// MaxSamples caps the stored variable-value samples per template.
	MaxSamples int `mapstructure:"max_samples"`

	// Masks selects which masking patterns the default parsing strategy
	// applies before tokenization.
	// Available: ipv4, uuid, timestamp, hex, number, path, mac
	Masks []string `mapstructure:"masks"`
}

// LogLevel represents a standard log severity level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelUnknown
)

// String returns the string representation of a LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON implements json.Marshaler for LogLevel.
func (l LogLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler for LogLevel.
func (l *LogLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseLevel(s)
	return nil
}

// ParseLevel converts a string to a LogLevel.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return LevelDebug
	case "info", "inf":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "err":
		return LevelError
	case "fatal", "critical", "crit":
		return LevelFatal
	default:
		return LevelUnknown
	}
}

// LogEntry represents a single parsed log line.
type LogEntry struct {
	Raw       string            `json:"raw"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Level     LogLevel          `json:"level"`
	Message   string            `json:"message"`
	Source    string            `json:"source,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Line      int               `json:"line"`
}
