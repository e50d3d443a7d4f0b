package search

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// Cap on results shown in manual mode.
const maxManualResults = 20

// DisplayResult is the shape handed to manual-mode consumers: a 1-based
// ordinal plus the normalized fields and the full quality assessment.
type DisplayResult struct {
	ID          int                 `json:"id"`
	Title       string              `json:"title"`
	Author      string              `json:"author"`
	Narrator    string              `json:"narrator,omitempty"`
	Series      string              `json:"series,omitempty"`
	Sequence    string              `json:"sequence,omitempty"`
	Language    string              `json:"language,omitempty"`
	Format      types.Format        `json:"format,omitempty"`
	Bitrate     int                 `json:"bitrateKbps,omitempty"`
	Size        int64               `json:"sizeBytes"`
	SizeDisplay string              `json:"sizeDisplay"`
	Seeders     int                 `json:"seeders"`
	Peers       int                 `json:"peers"`
	Protocol    types.Protocol      `json:"protocol"`
	IndexerName string              `json:"indexerName"`
	DownloadURL string              `json:"downloadUrl"`
	InfoURL     string              `json:"infoUrl,omitempty"`
	InfoHash    string              `json:"infoHash,omitempty"`
	Quality     *types.QualityScore `json:"qualityAssessment,omitempty"`
}

// Selection is the automatic-mode pick.
type Selection struct {
	BookID             string       `json:"bookId"`
	SelectedResult     types.Result `json:"selectedResult"`
	SelectionTimestamp time.Time    `json:"selectionTimestamp"`
	ConfidenceScore    int          `json:"confidenceScore"`
}

// Processor shapes quality-ranked results for the two consumption modes.
type Processor struct {
	logger zerolog.Logger
}

// NewProcessor returns a processor.
func NewProcessor(logger zerolog.Logger) *Processor {
	return &Processor{logger: logger.With().Str("component", "result-processor").Logger()}
}

// acceptable is the minimum shape a result must have to be shown or picked.
func acceptable(r *types.Result) bool {
	return strings.TrimSpace(r.Title) != "" &&
		strings.TrimSpace(r.Author) != "" &&
		strings.TrimSpace(r.DownloadURL) != ""
}

// HumanSize renders a byte count with 1024-based units.
func HumanSize(bytes int64) string {
	if bytes <= 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(bytes))
}

// ProcessManual keeps the ranked order, drops malformed entries, and caps
// the list for display.
func (p *Processor) ProcessManual(results []types.Result) []DisplayResult {
	display := make([]DisplayResult, 0, minInt(len(results), maxManualResults))
	dropped := 0
	for i := range results {
		r := &results[i]
		if !acceptable(r) {
			dropped++
			continue
		}
		if len(display) == maxManualResults {
			break
		}
		display = append(display, DisplayResult{
			ID:          len(display) + 1,
			Title:       r.Title,
			Author:      r.Author,
			Narrator:    r.Narrator,
			Series:      r.Series,
			Sequence:    r.Sequence,
			Language:    r.Language,
			Format:      r.Format,
			Bitrate:     r.Bitrate,
			Size:        r.Size,
			SizeDisplay: HumanSize(r.Size),
			Seeders:     r.Seeders,
			Peers:       r.Peers,
			Protocol:    r.Protocol,
			IndexerName: r.IndexerName,
			DownloadURL: r.DownloadURL,
			InfoURL:     r.InfoURL,
			InfoHash:    r.InfoHash,
			Quality:     r.Quality,
		})
	}
	if dropped > 0 {
		p.logger.Debug().Int("dropped", dropped).Msg("Malformed results dropped")
	}
	return display
}

// ProcessAutomatic returns the top-ranked acceptable result, or nil when
// nothing qualifies. Results are expected best-first.
func (p *Processor) ProcessAutomatic(bookID string, results []types.Result) *Selection {
	for i := range results {
		r := &results[i]
		if !acceptable(r) {
			continue
		}
		sel := &Selection{
			BookID:             bookID,
			SelectedResult:     *r,
			SelectionTimestamp: time.Now().UTC(),
		}
		if r.Quality != nil {
			sel.ConfidenceScore = r.Quality.Confidence
		}
		return sel
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
