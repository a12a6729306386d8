// Package loadgen pushes a synthetic population through the sync endpoint
// and checks that the published leaderboard is a consistent ranking of it.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Entities      int           // Number of entities to generate
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	PageSize      int           // page_size used to walk the leaderboard
	Category      string        // Category to verify
	SettleTimeout time.Duration // How long to wait for updates to be applied
	Seed          uint64        // Seed for the generated population
	OutputFile    string        // Optional file receiving the generated population
	Verbose       bool          // Enable verbose logging
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if c.Category == "" {
		c.Category = "overallScore"
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = time.Minute
	}
	return c
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Accepted   int
	Duplicate  int
	Retried    int
	Failed     int
	Verified   int
	RankChecks int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
