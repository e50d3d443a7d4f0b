package adapter

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// AudiobookBay scrapes the AudiobookBay site in two phases: the search
// listing yields links to per-release detail pages, and each detail page
// yields the info hash, size, format, and trackers needed to build a result.
type AudiobookBay struct {
	cfg types.IndexerConfig
}

// NewAudiobookBay returns an AudiobookBay adapter bound to cfg.
func NewAudiobookBay(cfg types.IndexerConfig) *AudiobookBay {
	return &AudiobookBay{cfg: cfg}
}

func (a *AudiobookBay) Key() string { return "audiobookbay" }

func (a *AudiobookBay) Domains() []string {
	return []string{"audiobookbay.lu", "audiobookbay.is", "audiobookbay.se", "audiobookbay.fi"}
}

// BuildHealthRequest returns nil: the site has no cheap health endpoint, so
// health pings are skipped and liveness is learned from searches.
func (a *AudiobookBay) BuildHealthRequest() *types.RequestSpec { return nil }

// ParseHealthResponse is never called (no health request is built).
func (a *AudiobookBay) ParseHealthResponse([]byte) (*types.Capabilities, string, error) {
	return &types.Capabilities{SupportsSearch: true}, "", nil
}

var abbQueryCleanRe = regexp.MustCompile(`[^a-z0-9\s]+`)

// cleanQuery lowercases and strips punctuation; the site's search chokes on
// apostrophes and colons.
func cleanQuery(q string) string {
	q = strings.ToLower(q)
	q = abbQueryCleanRe.ReplaceAllString(q, " ")
	return strings.Join(strings.Fields(q), " ")
}

// BuildSearchRequests requests the first two listing pages for the query.
func (a *AudiobookBay) BuildSearchRequests(p types.SearchParams) ([]types.RequestSpec, error) {
	q := cleanQuery(p.Query)
	if q == "" {
		q = cleanQuery(strings.TrimSpace(p.Author + " " + p.Title))
	}
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}
	params := url.Values{}
	params.Set("s", q)
	params.Set("tt", "1")
	return []types.RequestSpec{
		{Method: "GET", Path: "/", Params: params},
		{Method: "GET", Path: "/page/2/", Params: params, AllowMissing: true},
	}, nil
}

// ParseSearchResults is unused; results come from the detail-page phase.
func (a *AudiobookBay) ParseSearchResults([]byte) ([]types.Result, error) {
	return nil, nil
}

// ExtractDetailRequests pulls the per-release links out of a listing page.
func (a *AudiobookBay) ExtractDetailRequests(payload []byte) ([]types.RequestSpec, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("listing page: %w", err)
	}
	var specs []types.RequestSpec
	seen := map[string]bool{}
	sel := doc.Find("div.post div.postTitle a[href]")
	if sel.Length() == 0 {
		sel = doc.Find("div.post h2 a[href]")
	}
	sel.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		path, err := absolutePath(href)
		if err != nil || path == "/" || seen[path] {
			return
		}
		seen[path] = true
		specs = append(specs, types.RequestSpec{Method: "GET", Path: path})
	})
	return specs, nil
}

var (
	abbHashRe    = regexp.MustCompile(`\b[a-fA-F0-9]{40}\b`)
	abbTrackerRe = regexp.MustCompile(`^(?:https?|udp)://`)
)

// ParseDetailPage scrapes one release page. Releases exposing neither an
// info hash nor a torrent link are dropped (nil, nil).
func (a *AudiobookBay) ParseDetailPage(payload []byte) (*types.Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("detail page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("div.postTitle h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		return nil, nil
	}

	cells := tableValues(doc)
	infoHash := abbHashRe.FindString(cells["info hash"])
	size := parseSize(cells["combined file size"])
	if size == 0 {
		size = parseSize(cells["file size"])
	}

	var trackers []string
	for label, value := range cells {
		if !strings.Contains(label, "tracker") && !strings.Contains(label, "announce") {
			continue
		}
		for _, f := range strings.Fields(value) {
			if abbTrackerRe.MatchString(f) {
				trackers = append(trackers, f)
			}
		}
	}

	torrentLink := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.Contains(href, "/downld/") || strings.Contains(href, ".torrent") {
			torrentLink = a.absoluteURL(href)
			return false
		}
		return true
	})

	if infoHash == "" && torrentLink == "" {
		return nil, nil
	}

	magnet := buildMagnet(infoHash, title, trackers)
	downloadURL := torrentLink
	if downloadURL == "" {
		downloadURL = magnet
	}

	r := &types.Result{
		Title:         title,
		Author:        strings.TrimSpace(doc.Find("div.desc .author").First().Text()),
		Narrator:      strings.TrimSpace(doc.Find("div.desc .narrator").First().Text()),
		Language:      strings.TrimSpace(cells["language"]),
		Format:        types.ParseFormat(doc.Find("div.desc .format").First().Text()),
		Size:          size,
		Protocol:      types.ProtocolTorrent,
		Category:      strings.TrimSpace(cells["category"]),
		DownloadURL:   downloadURL,
		InfoHash:      strings.ToLower(infoHash),
		MagnetURI:     magnet,
		RawAttributes: map[string]string{
			"_source": "direct-audiobookbay",
		},
	}
	// The site publishes no swarm numbers; pessimistic fixed values keep
	// availability scoring honest.
	r.Seeders = 1
	r.Peers = 1
	if r.Format == types.FormatUnknown || r.Bitrate == 0 {
		f, b := extractTitleTokens(title)
		if r.Format == types.FormatUnknown {
			r.Format = f
		}
		r.Bitrate = b
	}
	if cover, ok := doc.Find("div.desc img[src]").First().Attr("src"); ok {
		r.RawAttributes["cover"] = cover
	}
	return r, nil
}

// tableValues maps lowercased label cells to the text of the cell that
// follows them.
func tableValues(doc *goquery.Document) map[string]string {
	values := map[string]string{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td,th")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		label = strings.TrimSuffix(label, ":")
		if label == "" {
			return
		}
		if _, ok := values[label]; !ok {
			values[label] = strings.TrimSpace(cells.Eq(1).Text())
		}
	})
	return values
}

func (a *AudiobookBay) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}
