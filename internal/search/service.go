// Package search is the front door of the federation pipeline: it turns a
// (title, author) request into variant queries, fans them out through the
// indexer manager, scores and shapes the merged results, and keeps a short
// history of outcomes.
package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/search/scoring"
)

// Mode selects how results are consumed.
type Mode string

const (
	// ModeManual returns a ranked list for a person to pick from.
	ModeManual Mode = "manual"
	// ModeAutomatic returns the single best acceptable result.
	ModeAutomatic Mode = "automatic"
)

// ErrEmptyQuery is returned when neither a title nor an author is given.
var ErrEmptyQuery = errors.New("search requires a title or an author")

// Query is the user-facing search input.
type Query struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Mode   Mode   `json:"mode"`
}

// Outcome is the full record of one search.
type Outcome struct {
	ID               string          `json:"id"`
	Success          bool            `json:"success"`
	Error            string          `json:"error,omitempty"`
	Query            Query           `json:"query"`
	Results          []DisplayResult `json:"results,omitempty"`
	Selection        *Selection      `json:"selection,omitempty"`
	ResultCount      int             `json:"resultCount"`
	SearchTime       float64         `json:"searchTimeSeconds"`
	IndexersSearched int             `json:"indexersSearched"`
	Timestamp        time.Time       `json:"timestamp"`
}

// Searcher is the slice of the indexer manager the facade needs.
type Searcher interface {
	Search(ctx context.Context, params types.SearchParams, opts indexer.SearchOptions) ([]types.Result, int)
	TestAll(ctx context.Context) map[string]types.TestResult
	Status() indexer.ManagerStatus
}

// ServiceStatus describes the facade for health pages.
type ServiceStatus struct {
	Indexers          indexer.ManagerStatus `json:"indexers"`
	HistorySize       int                   `json:"historySize"`
	VariantGeneration bool                  `json:"variantGeneration"`
}

// Options tune the facade.
type Options struct {
	// HistorySize bounds the outcome ring (default 50).
	HistorySize int
	// DisableVariants searches only the canonical title.
	DisableVariants bool
	// LimitPerIndexer caps results requested from each indexer (default 100).
	LimitPerIndexer int
}

// Service orchestrates the search pipeline.
type Service struct {
	searcher  Searcher
	assessor  *scoring.Assessor
	processor *Processor
	history   *History
	logger    zerolog.Logger
	opts      Options
}

// NewService builds the facade around an indexer manager.
func NewService(searcher Searcher, logger zerolog.Logger, opts Options) *Service {
	if opts.LimitPerIndexer <= 0 {
		opts.LimitPerIndexer = 100
	}
	return &Service{
		searcher:  searcher,
		assessor:  scoring.NewAssessor(logger),
		processor: NewProcessor(logger),
		history:   NewHistory(opts.HistorySize),
		logger:    logger.With().Str("component", "search-service").Logger(),
		opts:      opts,
	}
}

// SearchForAudiobook runs the full pipeline for one request. Per-indexer
// failures never fail the outcome; only an empty query does.
func (s *Service) SearchForAudiobook(ctx context.Context, title, author string, mode Mode) (*Outcome, error) {
	start := time.Now()
	if mode == "" {
		mode = ModeManual
	}
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	outcome := &Outcome{
		ID:        uuid.NewString(),
		Query:     Query{Title: title, Author: author, Mode: mode},
		Timestamp: start.UTC(),
	}
	if title == "" && author == "" {
		outcome.Error = ErrEmptyQuery.Error()
		s.history.Add(*outcome)
		return outcome, ErrEmptyQuery
	}

	variants := s.variants(title)
	var merged []types.Result
	searched := 0
	for _, variant := range variants {
		params := types.SearchParams{
			Query:  buildQueryText(variant, author),
			Author: author,
			Title:  variant,
			Limit:  s.opts.LimitPerIndexer,
		}
		results, n := s.searcher.Search(ctx, params, indexer.SearchOptions{})
		if n > searched {
			searched = n
		}
		for i := range results {
			results[i].SearchQueryUsed = variant
		}
		merged = append(merged, results...)
	}

	// Variant queries overlap heavily; collapse duplicates before scoring.
	merged = indexer.DeduplicateResults(merged)
	// Score against the original request, not the variant phrasings.
	ranked := s.assessor.Rank(merged, title, author)

	outcome.Success = true
	outcome.IndexersSearched = searched
	outcome.ResultCount = len(ranked)
	switch mode {
	case ModeAutomatic:
		outcome.Selection = s.processor.ProcessAutomatic(outcome.ID, ranked)
	default:
		outcome.Results = s.processor.ProcessManual(ranked)
	}
	outcome.SearchTime = time.Since(start).Seconds()

	s.logger.Info().
		Str("title", title).
		Str("author", author).
		Str("mode", string(mode)).
		Int("variants", len(variants)).
		Int("results", outcome.ResultCount).
		Int("indexers", searched).
		Float64("seconds", outcome.SearchTime).
		Msg("Search completed")

	s.history.Add(*outcome)
	return outcome, nil
}

func (s *Service) variants(title string) []string {
	if title == "" {
		return []string{""}
	}
	if s.opts.DisableVariants {
		return []string{title}
	}
	return GenerateTitleVariants(title)
}

func buildQueryText(title, author string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(author+" "+title), " "))
}

// TestSearchFunctionality probes the pipeline with two canned queries and
// reports per-query result counts plus indexer status.
func (s *Service) TestSearchFunctionality(ctx context.Context) map[string]any {
	canned := []Query{
		{Title: "The Hobbit", Author: "J.R.R. Tolkien"},
		{Title: "Project Hail Mary", Author: "Andy Weir"},
	}
	counts := make(map[string]int, len(canned))
	for _, q := range canned {
		outcome, err := s.SearchForAudiobook(ctx, q.Title, q.Author, ModeManual)
		if err != nil {
			counts[q.Title] = -1
			continue
		}
		counts[q.Title] = outcome.ResultCount
	}
	return map[string]any{
		"queries":  counts,
		"indexers": s.searcher.Status(),
	}
}

// History returns recent outcomes, newest first.
func (s *Service) History() []Outcome {
	return s.history.Recent()
}

// Status reports the facade and indexer state.
func (s *Service) Status() ServiceStatus {
	return ServiceStatus{
		Indexers:          s.searcher.Status(),
		HistorySize:       s.history.Len(),
		VariantGeneration: !s.opts.DisableVariants,
	}
}

// Reset clears the search history.
func (s *Service) Reset() {
	s.history.Clear()
	s.logger.Info().Msg("Search history cleared")
}

// Shutdown releases facade resources. Nothing is persisted.
func (s *Service) Shutdown() {
	s.logger.Info().Msg("Search service shutting down")
}
