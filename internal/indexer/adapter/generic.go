package adapter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// GenericJSON is the fallback adapter for direct indexers with no dedicated
// provider: it assumes a conventional JSON search endpoint returning
// {"results": [...]}.
type GenericJSON struct {
	cfg types.IndexerConfig
}

// NewGenericJSON returns a generic JSON adapter bound to cfg.
func NewGenericJSON(cfg types.IndexerConfig) *GenericJSON {
	return &GenericJSON{cfg: cfg}
}

func (g *GenericJSON) Key() string       { return "generic" }
func (g *GenericJSON) Domains() []string { return nil }

func (g *GenericJSON) BuildHealthRequest() *types.RequestSpec {
	return &types.RequestSpec{Method: "GET", Path: "/api/status", ExpectsJSON: true, AllowMissing: true}
}

func (g *GenericJSON) ParseHealthResponse(payload []byte) (*types.Capabilities, string, error) {
	if len(payload) > 0 {
		var body map[string]any
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, "", fmt.Errorf("status response: %w", err)
		}
		if v, ok := body["version"].(string); ok {
			return &types.Capabilities{SupportsSearch: true}, v, nil
		}
	}
	return &types.Capabilities{SupportsSearch: true}, "", nil
}

func (g *GenericJSON) BuildSearchRequests(p types.SearchParams) ([]types.RequestSpec, error) {
	params := url.Values{}
	if p.Query != "" {
		params.Set("q", p.Query)
	}
	if p.Author != "" {
		params.Set("author", p.Author)
	}
	if p.Title != "" {
		params.Set("title", p.Title)
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		params.Set("offset", strconv.Itoa(p.Offset))
	}
	return []types.RequestSpec{{Method: "GET", Path: "/api/search", Params: params, ExpectsJSON: true}}, nil
}

type genericResponse struct {
	Results []genericResult `json:"results"`
}

type genericResult struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Narrator    string   `json:"narrator"`
	Series      string   `json:"series"`
	Sequence    string   `json:"sequence"`
	Language    string   `json:"language"`
	Format      string   `json:"format"`
	Bitrate     flexInt  `json:"bitrate"`
	Size        flexSize `json:"size"`
	Seeders     *int     `json:"seeders"`
	Peers       *int     `json:"peers"`
	Leechers    *int     `json:"leechers"`
	Category    string   `json:"category"`
	Published   string   `json:"published"`
	DownloadURL string   `json:"download_url"`
	InfoURL     string   `json:"info_url"`
	InfoHash    string   `json:"info_hash"`
}

// ParseSearchResults parses a {"results": [...]} payload. Entries without a
// title or any retrieval handle are dropped.
func (g *GenericJSON) ParseSearchResults(payload []byte) ([]types.Result, error) {
	var resp genericResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("search response: %w", err)
	}
	results := make([]types.Result, 0, len(resp.Results))
	for _, item := range resp.Results {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		infoHash := item.InfoHash
		if !validInfoHash(infoHash) {
			infoHash = ""
		}
		downloadURL := strings.TrimSpace(item.DownloadURL)
		if downloadURL == "" && infoHash != "" {
			downloadURL = buildMagnet(infoHash, title, nil)
		}
		if downloadURL == "" {
			continue
		}
		peers := intOr(item.Peers, -1)
		if item.Peers == nil {
			peers = intOr(item.Leechers, -1)
		}
		results = append(results, types.Result{
			Title:       title,
			Author:      item.Author,
			Narrator:    item.Narrator,
			Series:      item.Series,
			Sequence:    item.Sequence,
			Language:    item.Language,
			Format:      types.ParseFormat(item.Format),
			Bitrate:     int(item.Bitrate),
			Size:        int64(item.Size),
			Seeders:     intOr(item.Seeders, -1),
			Peers:       peers,
			Protocol:    types.ProtocolDirect,
			Category:    item.Category,
			PublishDate: parseDate(item.Published),
			DownloadURL: downloadURL,
			InfoURL:     item.InfoURL,
			InfoHash:    strings.ToLower(infoHash),
		})
	}
	return results, nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
