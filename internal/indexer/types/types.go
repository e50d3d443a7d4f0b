// Package types defines the shared data model for the search federation
// pipeline: indexer configuration, the provider-agnostic request spec, and
// the normalized result record passed between components.
package types

import (
	"net/url"
	"strings"
	"time"
)

// Protocol identifies how a result is retrieved.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolDirect  Protocol = "direct"
)

// Format is the audio container/codec of a release.
type Format string

const (
	FormatM4B     Format = "m4b"
	FormatM4A     Format = "m4a"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatAAC     Format = "aac"
	FormatOGG     Format = "ogg"
	FormatUnknown Format = "unknown"
)

// ParseFormat maps a free-form format token to a known Format.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m4b":
		return FormatM4B
	case "m4a":
		return FormatM4A
	case "mp3":
		return FormatMP3
	case "flac":
		return FormatFLAC
	case "aac":
		return FormatAAC
	case "ogg", "opus", "oga":
		return FormatOGG
	default:
		return FormatUnknown
	}
}

// IndexerType distinguishes Torznab feeds from direct-site adapters.
type IndexerType string

const (
	IndexerTypeTorznab IndexerType = "torznab"
	IndexerTypeDirect  IndexerType = "direct"
)

// RateLimitConfig holds per-indexer request throttling settings.
type RateLimitConfig struct {
	RequestsPerSecond int `json:"requestsPerSecond"`
	MaxConcurrent     int `json:"maxConcurrent"`
}

// IndexerConfig is the static configuration for one indexer.
type IndexerConfig struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Enabled     bool            `json:"enabled"`
	Type        IndexerType     `json:"type"`
	BaseURL     string          `json:"baseUrl"`
	APIKey      string          `json:"-"`
	SessionID   string          `json:"-"`
	ProviderKey string          `json:"providerKey,omitempty"`
	Categories  []int           `json:"categories,omitempty"`
	Languages   []string        `json:"languages,omitempty"`
	Priority    int             `json:"priority"`
	Timeout     time.Duration   `json:"timeout"`
	VerifyTLS   bool            `json:"verifyTls"`
	RateLimit   RateLimitConfig `json:"rateLimit"`
}

// Host returns the hostname portion of the base URL, used for adapter
// resolution by domain suffix.
func (c *IndexerConfig) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// RequestSpec describes a single provider HTTP request. Adapters build these;
// the indexer composes the URL, injects auth, and executes.
type RequestSpec struct {
	Method       string
	Path         string
	Params       url.Values
	Form         url.Values
	JSON         any
	Headers      map[string]string
	ExpectsJSON  bool
	AllowMissing bool
}

// SearchParams are the provider-agnostic inputs to a single indexer search.
type SearchParams struct {
	Query  string
	Author string
	Title  string
	Limit  int
	Offset int
}

// Capabilities describes what a provider supports, filled lazily from the
// first successful health check.
type Capabilities struct {
	SupportsSearch       bool  `json:"supportsSearch"`
	SupportsBookSearch   bool  `json:"supportsBookSearch"`
	SupportsAuthorSearch bool  `json:"supportsAuthorSearch"`
	Categories           []int `json:"categories,omitempty"`
	MaxLimit             int   `json:"maxLimit,omitempty"`
	DefaultLimit         int   `json:"defaultLimit,omitempty"`
}

// TestResult is the outcome of a connection test.
type TestResult struct {
	Success      bool          `json:"success"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
	Version      string        `json:"version,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// IndexerStatus is a point-in-time snapshot of an indexer's runtime health.
type IndexerStatus struct {
	Key                 string        `json:"key"`
	Name                string        `json:"name"`
	Priority            int           `json:"priority"`
	Available           bool          `json:"available"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	LastError           string        `json:"lastError,omitempty"`
	LastSuccess         *time.Time    `json:"lastSuccess,omitempty"`
	Capabilities        *Capabilities `json:"capabilities,omitempty"`
}

// Result is the normalized record every adapter emits and every downstream
// component consumes.
type Result struct {
	IndexerName string `json:"indexerName"`
	IndexerID   string `json:"indexerId"`

	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Narrator string `json:"narrator,omitempty"`
	Series   string `json:"series,omitempty"`
	Sequence string `json:"sequence,omitempty"`
	Language string `json:"language,omitempty"`

	Format  Format `json:"format,omitempty"`
	Bitrate int    `json:"bitrateKbps,omitempty"`
	Size    int64  `json:"sizeBytes"`

	// Seeders/Peers use -1 for "unknown".
	Seeders int `json:"seeders"`
	Peers   int `json:"peers"`

	Protocol    Protocol  `json:"protocol"`
	Category    string    `json:"category,omitempty"`
	PublishDate time.Time `json:"publishDate,omitempty"`

	DownloadURL string `json:"downloadUrl"`
	InfoURL     string `json:"infoUrl,omitempty"`
	InfoHash    string `json:"infoHash,omitempty"`
	MagnetURI   string `json:"magnetUri,omitempty"`

	RawAttributes map[string]string `json:"rawAttributes,omitempty"`

	// SearchQueryUsed records which variant query produced this result.
	SearchQueryUsed string `json:"searchQueryUsed,omitempty"`

	// Quality is attached by the assessor during ranking.
	Quality *QualityScore `json:"qualityAssessment,omitempty"`
}

// Match statuses used in score breakdowns.
const (
	MatchStatusMatch         = "match"
	MatchStatusPartial       = "partial"
	MatchStatusNoMatch       = "no_match"
	MatchStatusNeutral       = "neutral"
	MatchStatusMismatch      = "mismatch"
	MatchStatusResultMissing = "result_missing"
)

// ComponentMatch is one relevance sub-score with its qualitative status.
type ComponentMatch struct {
	Score  float64 `json:"score"`
	Status string  `json:"status"`
}

// ScoreBreakdown explains how the relevance score was derived.
type ScoreBreakdown struct {
	BookNumberStatus string         `json:"bookNumberStatus"`
	Author           ComponentMatch `json:"author"`
	Title            ComponentMatch `json:"title"`
	Series           ComponentMatch `json:"series"`
}

// QualityScore is the full assessment of one result against the query.
// Components are 0..10, total is 0..10, confidence is 0..100.
type QualityScore struct {
	Relevance    float64        `json:"relevance"`
	Format       float64        `json:"format"`
	Bitrate      float64        `json:"bitrate"`
	Source       float64        `json:"source"`
	Metadata     float64        `json:"metadata"`
	Availability float64        `json:"availability"`
	Total        float64        `json:"total"`
	Confidence   int            `json:"confidence"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
}
