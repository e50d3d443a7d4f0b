// Package tasks contains the scheduled background tasks.
package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/scheduler"
)

// IndexerHealthTask handles scheduled connectivity checks for indexers.
// A successful check closes an open circuit, so unhealthy indexers
// return to rotation without operator intervention.
type IndexerHealthTask struct {
	manager  *indexer.Manager
	interval time.Duration
	logger   zerolog.Logger
}

// NewIndexerHealthTask creates a new indexer health check task.
func NewIndexerHealthTask(manager *indexer.Manager, interval time.Duration, logger zerolog.Logger) *IndexerHealthTask {
	return &IndexerHealthTask{
		manager:  manager,
		interval: interval,
		logger:   logger.With().Str("task", "indexer-health").Logger(),
	}
}

// Config returns the task configuration for scheduler registration.
func (t *IndexerHealthTask) Config() scheduler.TaskConfig {
	return scheduler.TaskConfig{
		ID:          "indexer-health",
		Name:        "Indexer Health Check",
		Description: "Tests connectivity to all configured indexers",
		Interval:    t.interval,
		Func:        t.Run,
		RunOnStart:  true,
	}
}

// Run executes the indexer health check.
func (t *IndexerHealthTask) Run(ctx context.Context) error {
	t.logger.Info().Msg("Starting indexer health check")

	results := t.manager.TestAll(ctx)

	healthy := 0
	for key, result := range results {
		if result.Success {
			healthy++
			t.logger.Debug().
				Str("indexer", key).
				Str("version", result.Version).
				Msg("Indexer healthy")
			continue
		}
		t.logger.Warn().
			Str("indexer", key).
			Str("error", result.Error).
			Msg("Indexer health check failed")
	}

	t.logger.Info().
		Int("healthy", healthy).
		Int("total", len(results)).
		Msg("Indexer health check completed")
	return nil
}
