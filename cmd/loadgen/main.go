package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/standings/internal/loadgen"
	"github.com/okian/standings/pkg/logger"
)

// Default configuration constants.
const (
	defaultEntities   = 10000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultPageSize   = 200
	defaultSettle     = 2 * time.Minute
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		entities = flag.Int("entities", defaultEntities, "Number of entities to generate and sync")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		pageSize = flag.Int("page-size", defaultPageSize, "page_size used to walk the leaderboard (must not exceed max_page_size)")
		category = flag.String("category", "overallScore", "Category to verify")
		settle   = flag.Duration("settle", defaultSettle, "How long to wait for updates to be published")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for generated metrics")
		output   = flag.String("output", "", "Write the generated population to this JSON file")
		format   = flag.String("log-format", "text", "Log format: text or json")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	f, err := logger.ParseFormat(*format)
	if err != nil {
		os.Stderr.WriteString("invalid log format: " + err.Error() + "\n")
		os.Exit(2)
	}
	if err := logger.Init(logger.WithFormat(f)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err = loadgen.Run(ctx, loadgen.Config{
		BaseURL:       *baseURL,
		Entities:      *entities,
		Workers:       *workers,
		Timeout:       *timeout,
		PageSize:      *pageSize,
		Category:      *category,
		SettleTimeout: *settle,
		Seed:          *seed,
		OutputFile:    *output,
		Verbose:       *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
