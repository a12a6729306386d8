// Package config defines service configuration and how it is loaded.
//
// Defaults come from New, then an optional YAML file, then STANDINGS_*
// environment variables. Load validates the merged result.
package config

import (
	"context"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory sync update queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of sync workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many update IDs are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// DefaultPageSize applies when a request omits page_size.
	DefaultPageSize int `koanf:"default_page_size"`
	// MaxPageSize caps page_size on the HTTP surface.
	MaxPageSize int `koanf:"max_page_size"`

	// Categories lists the rankable categories. Empty means the built-ins.
	Categories []string `koanf:"categories"`
	// ScopeDimensions lists attribute names usable as scopes.
	ScopeDimensions []string `koanf:"scope_dimensions"`

	// SnapshotIntervalMS is how often the store publishes a new snapshot.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`
	// RolloverIntervalMS closes the ranking period on a timer; 0 disables it.
	RolloverIntervalMS int `koanf:"rollover_interval_ms"`

	// SeedFile is an optional YAML population loaded at start.
	SeedFile string `koanf:"seed_file"`

	// OverallWeights derives overallScore when an update omits it. Keys must
	// be configured categories. Empty means the built-in weights, limited to
	// the configured categories.
	OverallWeights map[string]float64 `koanf:"overall_weights"`
}

// New creates a Config with defaults. The list and map fields stay nil
// here and are filled by applyCollectionDefaults after loading, so loaded
// values replace rather than merge with them.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          50_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         200_000,
		DefaultPageSize:    50,
		MaxPageSize:        200,
		SnapshotIntervalMS: 250,
		RolloverIntervalMS: 0,
	}
}

// Defaults for the collection fields.
var (
	defaultCategories      = []string{"overallScore", "problemsSolved", "rating", "currentStreak"}
	defaultScopeDimensions = []string{"country", "college", "teamId"}
)

func (c *Config) applyCollectionDefaults() {
	c.Categories = splitList(c.Categories)
	c.ScopeDimensions = splitList(c.ScopeDimensions)
	if len(c.Categories) == 0 {
		c.Categories = append([]string(nil), defaultCategories...)
	}
	if len(c.ScopeDimensions) == 0 {
		c.ScopeDimensions = append([]string(nil), defaultScopeDimensions...)
	}
}

// splitList expands comma-separated entries, which is how lists arrive
// from environment variables, and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// SnapshotInterval returns SnapshotIntervalMS as a duration.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

// RolloverInterval returns RolloverIntervalMS as a duration.
func (c *Config) RolloverInterval() time.Duration {
	return time.Duration(c.RolloverIntervalMS) * time.Millisecond
}
