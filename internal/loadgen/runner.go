package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
)

const (
	settlePoll        = 50 * time.Millisecond
	rankSample        = 25
	outputPermission  = 0o600
	directoryPerm     = 0o750
	percentMultiplier = 100
)

// Run executes a complete load run: health check, generation, submission,
// waiting for the updates to be published, then verification.
func Run(ctx context.Context, cfg Config) (Stats, error) { //nolint:gocritic // hugeParam: config value
	cfg = cfg.withDefaults()
	stats := Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("entities", cfg.Entities),
		logger.Int("workers", cfg.Workers),
		logger.String("category", cfg.Category),
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	reqs := Generate(cfg.Seed, cfg.Entities)
	stats.Generated = len(reqs)
	if cfg.OutputFile != "" {
		if err := savePopulation(cfg.OutputFile, reqs); err != nil {
			log.Warn(ctx, "failed to save population", logger.Error(err))
		}
	}

	submitAll(ctx, cfg, client, reqs, &stats)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d updates failed", stats.Failed, stats.Submitted)
	}

	expected := lo.SliceToMap(reqs, func(r types.SyncRequest) (string, struct{}) {
		return r.Entity.ID, struct{}{}
	})
	entries, err := waitForPopulation(ctx, cfg, client, len(expected))
	if err != nil {
		return stats, err
	}
	if err := verifyRanking(entries, expected); err != nil {
		return stats, err
	}
	stats.Verified = len(entries)

	if err := verifySample(ctx, cfg, client, entries, &stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, &stats)
	return stats, nil
}

// waitForPopulation polls until the leaderboard holds want entities, then
// returns the whole ranking. Updates are applied asynchronously so the
// first reads may see an older snapshot.
func waitForPopulation(ctx context.Context, cfg Config, client *Client, want int) ([]types.Entry, error) { //nolint:gocritic // hugeParam: read-only config
	ctx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
	defer cancel()
	for {
		first, err := client.Leaderboard(ctx, cfg.Category, 1, cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("read leaderboard: %w", err)
		}
		if first.TotalCount >= want {
			return walk(ctx, cfg, client, first)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("leaderboard has %d of %d entities: %w", first.TotalCount, want, ctx.Err())
		case <-time.After(settlePoll):
		}
	}
}

// walk reads every page of the snapshot first came from. If a newer
// snapshot is published mid-walk the walk restarts.
func walk(ctx context.Context, cfg Config, client *Client, first types.Page) ([]types.Entry, error) { //nolint:gocritic // hugeParam: read-only config
	for {
		entries := append([]types.Entry(nil), first.Items...)
		restarted := false
		for page := 2; page <= first.TotalPages; page++ {
			p, err := client.Leaderboard(ctx, cfg.Category, page, cfg.PageSize)
			if err != nil {
				return nil, fmt.Errorf("read leaderboard page %d: %w", page, err)
			}
			if p.SnapshotID != first.SnapshotID {
				first = p
				restarted = true
				break
			}
			entries = append(entries, p.Items...)
		}
		if !restarted {
			return entries, nil
		}
		var err error
		if first, err = client.Leaderboard(ctx, cfg.Category, 1, cfg.PageSize); err != nil {
			return nil, fmt.Errorf("read leaderboard: %w", err)
		}
	}
}

// verifySample cross-checks /rank for a spread of entities.
func verifySample(ctx context.Context, cfg Config, client *Client, entries []types.Entry, stats *Stats) error { //nolint:gocritic // hugeParam: read-only config
	step := max(len(entries)/rankSample, 1)
	for i := 0; i < len(entries); i += step {
		pos, err := client.Rank(ctx, cfg.Category, entries[i].ID)
		if err != nil {
			return fmt.Errorf("rank %s: %w", entries[i].ID, err)
		}
		if err := verifyPosition(pos, entries[i], pos.PageSize); err != nil {
			return err
		}
		stats.RankChecks++
	}
	return nil
}

func savePopulation(path string, reqs []types.SyncRequest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPerm); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal population: %w", err)
	}
	if err := os.WriteFile(path, data, outputPermission); err != nil {
		return fmt.Errorf("write population: %w", err)
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted+stats.Duplicate) / float64(stats.Submitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("retried", stats.Retried),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("rankChecks", stats.RankChecks),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("updatesPerSecond", perSecond),
	)
}
