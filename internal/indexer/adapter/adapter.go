// Package adapter contains the per-provider translation layer: each adapter
// builds provider HTTP requests and parses provider responses into normalized
// result records. Adapters are pure values and perform no I/O; the indexer
// owns URL composition, auth injection, TLS, timeouts, and error taxonomy.
package adapter

import (
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// Adapter encapsulates one provider's wire protocol.
type Adapter interface {
	// Key is the stable identifier used for provider_key pinning.
	Key() string

	// Domains lists host suffixes this adapter recognizes.
	Domains() []string

	// BuildHealthRequest returns the health-check request, or nil to skip
	// the health ping entirely.
	BuildHealthRequest() *types.RequestSpec

	// ParseHealthResponse extracts capabilities and a server version from a
	// successful health response.
	ParseHealthResponse(payload []byte) (*types.Capabilities, string, error)

	// BuildSearchRequests returns the request(s) for one logical search.
	// Most providers need exactly one; scraped sites may page.
	BuildSearchRequests(p types.SearchParams) ([]types.RequestSpec, error)

	// ParseSearchResults parses one search response payload into normalized
	// results. Unparseable individual items are dropped, not fatal.
	ParseSearchResults(payload []byte) ([]types.Result, error)
}

// DetailScraper is implemented by adapters whose listing pages only link to
// per-item detail pages. The indexer fetches each detail request and feeds
// the payload back to ParseDetailPage.
type DetailScraper interface {
	// ExtractDetailRequests parses a listing payload into follow-up requests.
	ExtractDetailRequests(payload []byte) ([]types.RequestSpec, error)

	// ParseDetailPage parses one detail payload into a result. A nil result
	// with nil error means the item should be dropped.
	ParseDetailPage(payload []byte) (*types.Result, error)
}
