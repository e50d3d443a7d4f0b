package indexer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/adapter"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

const (
	// Cap on concurrent indexer searches during fan-out.
	maxSearchWorkers = 5

	// Per-indexer time budget inside one fan-out.
	searchWorkerBudget = 60 * time.Second
)

// ConfigProvider supplies indexer configurations. Reload re-reads it.
type ConfigProvider interface {
	IndexerConfigs() ([]types.IndexerConfig, error)
}

// Manager owns the set of configured indexers and fans searches out across
// them.
type Manager struct {
	provider ConfigProvider
	registry *adapter.Registry
	logger   zerolog.Logger
	opts     []Option

	mu       sync.RWMutex
	indexers []*Indexer
}

// ManagerStatus summarizes the runtime state of all indexers.
type ManagerStatus struct {
	Total     int                   `json:"total"`
	Available int                   `json:"available"`
	Indexers  []types.IndexerStatus `json:"indexers"`
}

// SearchOptions tune one fan-out.
type SearchOptions struct {
	// Sequential searches indexers one at a time in priority order.
	Sequential bool
}

// NewManager builds a manager and performs the initial config load.
// Per-indexer options (e.g. WithTransport) are applied to every indexer
// built, now and on reload.
func NewManager(provider ConfigProvider, registry *adapter.Registry, logger zerolog.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		provider: provider,
		registry: registry,
		logger:   logger.With().Str("component", "indexer-manager").Logger(),
		opts:     opts,
	}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads configuration and atomically swaps in a fresh indexer set.
// Runtime health state starts clean for every indexer.
func (m *Manager) Reload() error {
	cfgs, err := m.provider.IndexerConfigs()
	if err != nil {
		return err
	}
	var indexers []*Indexer
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		ad, err := m.registry.Resolve(cfg)
		if err != nil {
			m.logger.Warn().Err(err).Str("indexer", cfg.Key).Msg("Skipping indexer with unresolvable provider")
			continue
		}
		indexers = append(indexers, New(cfg, ad, m.logger, m.opts...))
	}
	sort.Slice(indexers, func(a, b int) bool {
		if indexers[a].Priority() != indexers[b].Priority() {
			return indexers[a].Priority() < indexers[b].Priority()
		}
		return indexers[a].Key() < indexers[b].Key()
	})

	m.mu.Lock()
	m.indexers = indexers
	m.mu.Unlock()

	m.logger.Info().Int("indexers", len(indexers)).Msg("Indexer set loaded")
	return nil
}

// Indexers returns a snapshot of the current indexer set.
func (m *Manager) Indexers() []*Indexer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Indexer, len(m.indexers))
	copy(out, m.indexers)
	return out
}

// ByKey looks an indexer up by config key.
func (m *Manager) ByKey(key string) (*Indexer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, idx := range m.indexers {
		if idx.Key() == key {
			return idx, true
		}
	}
	return nil, false
}

// Search fans the query out across all indexers and returns the merged,
// deduplicated results plus the number of indexers queried. Individual
// indexer failures are logged and contribute zero results; Search itself
// never fails.
func (m *Manager) Search(ctx context.Context, params types.SearchParams, opts SearchOptions) ([]types.Result, int) {
	indexers := m.Indexers()
	if len(indexers) == 0 {
		return nil, 0
	}

	var merged []types.Result
	if opts.Sequential {
		for _, idx := range indexers {
			merged = append(merged, m.searchOne(ctx, idx, params)...)
		}
	} else {
		var mu sync.Mutex
		g := &errgroup.Group{}
		workers := len(indexers)
		if workers > maxSearchWorkers {
			workers = maxSearchWorkers
		}
		g.SetLimit(workers)
		for _, idx := range indexers {
			idx := idx
			g.Go(func() error {
				results := m.searchOne(ctx, idx, params)
				if len(results) > 0 {
					mu.Lock()
					merged = append(merged, results...)
					mu.Unlock()
				}
				return nil
			})
		}
		g.Wait()
	}

	deduped := DeduplicateResults(merged)
	m.logger.Debug().
		Str("query", params.Query).
		Int("indexers", len(indexers)).
		Int("results", len(deduped)).
		Msg("Fan-out search completed")
	return deduped, len(indexers)
}

func (m *Manager) searchOne(ctx context.Context, idx *Indexer, params types.SearchParams) []types.Result {
	sctx, cancel := context.WithTimeout(ctx, searchWorkerBudget)
	defer cancel()

	results, err := idx.Search(sctx, params)
	if err != nil {
		evt := m.logger.Warn()
		if errors.Is(err, ErrUnavailable) {
			evt = m.logger.Debug()
		}
		evt.Err(err).Str("indexer", idx.Key()).Msg("Indexer search failed")
		return nil
	}
	return results
}

// TestAll runs connection tests against every indexer, keyed by config key.
func (m *Manager) TestAll(ctx context.Context) map[string]types.TestResult {
	indexers := m.Indexers()
	results := make(map[string]types.TestResult, len(indexers))
	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(maxSearchWorkers)
	for _, idx := range indexers {
		idx := idx
		g.Go(func() error {
			res := idx.TestConnection(ctx)
			mu.Lock()
			results[idx.Key()] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// Status reports aggregate and per-indexer health.
func (m *Manager) Status() ManagerStatus {
	indexers := m.Indexers()
	status := ManagerStatus{Total: len(indexers)}
	for _, idx := range indexers {
		st := idx.Status()
		if st.Available {
			status.Available++
		}
		status.Indexers = append(status.Indexers, st)
	}
	return status
}

// DeduplicateResults removes duplicates, preferring the first occurrence.
// A result is a duplicate when it shares a download URL, an info hash, or
// an (indexer, lowercased title) pair with an earlier one.
func DeduplicateResults(results []types.Result) []types.Result {
	if len(results) < 2 {
		return results
	}
	seen := make(map[string]bool, len(results))
	out := make([]types.Result, 0, len(results))
	for _, r := range results {
		var keys []string
		if r.DownloadURL != "" {
			keys = append(keys, "u|"+r.DownloadURL)
		}
		if r.InfoHash != "" {
			keys = append(keys, "h|"+strings.ToLower(r.InfoHash))
		}
		keys = append(keys, "t|"+r.IndexerName+"|"+strings.ToLower(r.Title))
		dup := false
		for _, k := range keys {
			if seen[k] {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		for _, k := range keys {
			seen[k] = true
		}
		out = append(out, r)
	}
	return out
}
