package adapter

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// Torznab speaks the Torznab API dialect used by Jackett and Prowlarr:
// capabilities via t=caps, searches via t=book / t=search, results as RSS
// with torznab:attr extensions.
type Torznab struct {
	cfg types.IndexerConfig
}

// NewTorznab returns a Torznab adapter bound to cfg.
func NewTorznab(cfg types.IndexerConfig) *Torznab {
	return &Torznab{cfg: cfg}
}

func (t *Torznab) Key() string       { return "torznab" }
func (t *Torznab) Domains() []string { return nil }

// BuildHealthRequest asks the endpoint for its capabilities document.
func (t *Torznab) BuildHealthRequest() *types.RequestSpec {
	params := url.Values{}
	params.Set("t", "caps")
	if t.cfg.APIKey != "" {
		params.Set("apikey", t.cfg.APIKey)
	}
	return &types.RequestSpec{Method: "GET", Path: "/api", Params: params}
}

// capsDoc mirrors the torznab caps XML.
type capsDoc struct {
	XMLName xml.Name `xml:"caps"`
	Server  struct {
		Title   string `xml:"title,attr"`
		Version string `xml:"version,attr"`
	} `xml:"server"`
	Limits struct {
		Max     int `xml:"max,attr"`
		Default int `xml:"default,attr"`
	} `xml:"limits"`
	Searching struct {
		Search struct {
			Available       string `xml:"available,attr"`
			SupportedParams string `xml:"supportedParams,attr"`
		} `xml:"search"`
		BookSearch struct {
			Available       string `xml:"available,attr"`
			SupportedParams string `xml:"supportedParams,attr"`
		} `xml:"book-search"`
	} `xml:"searching"`
	Categories struct {
		Category []capsCategory `xml:"category"`
	} `xml:"categories"`
}

type capsCategory struct {
	ID     string         `xml:"id,attr"`
	Name   string         `xml:"name,attr"`
	Subcat []capsCategory `xml:"subcat"`
}

// ParseHealthResponse extracts capabilities from a caps document.
func (t *Torznab) ParseHealthResponse(payload []byte) (*types.Capabilities, string, error) {
	var doc capsDoc
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, "", fmt.Errorf("caps document: %w", err)
	}
	caps := &types.Capabilities{
		SupportsSearch:       doc.Searching.Search.Available == "yes",
		SupportsBookSearch:   doc.Searching.BookSearch.Available == "yes",
		SupportsAuthorSearch: strings.Contains(doc.Searching.BookSearch.SupportedParams, "author"),
		MaxLimit:             doc.Limits.Max,
		DefaultLimit:         doc.Limits.Default,
	}
	var collect func(cats []capsCategory)
	collect = func(cats []capsCategory) {
		for _, c := range cats {
			if id, err := strconv.Atoi(c.ID); err == nil {
				caps.Categories = append(caps.Categories, id)
			}
			collect(c.Subcat)
		}
	}
	collect(doc.Categories.Category)
	version := doc.Server.Version
	if version == "" {
		version = doc.Server.Title
	}
	return caps, version, nil
}

// BuildSearchRequests builds one t=book request when author/title are given,
// falling back to a free-text t=search.
func (t *Torznab) BuildSearchRequests(p types.SearchParams) ([]types.RequestSpec, error) {
	params := url.Values{}
	if t.cfg.APIKey != "" {
		params.Set("apikey", t.cfg.APIKey)
	}
	if p.Author != "" || p.Title != "" {
		params.Set("t", "book")
		if p.Author != "" {
			params.Set("author", p.Author)
		}
		if p.Title != "" {
			params.Set("title", p.Title)
		}
		if p.Query != "" {
			params.Set("q", p.Query)
		}
	} else {
		params.Set("t", "search")
		params.Set("q", p.Query)
	}
	if len(t.cfg.Categories) > 0 {
		cats := make([]string, 0, len(t.cfg.Categories))
		for _, c := range t.cfg.Categories {
			cats = append(cats, strconv.Itoa(c))
		}
		params.Set("cat", strings.Join(cats, ","))
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		params.Set("offset", strconv.Itoa(p.Offset))
	}
	return []types.RequestSpec{{Method: "GET", Path: "/api", Params: params}}, nil
}

// rssDoc mirrors the torznab result feed.
type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string `xml:"title"`
	GUID      string `xml:"guid"`
	Link      string `xml:"link"`
	Comments  string `xml:"comments"`
	PubDate   string `xml:"pubDate"`
	Size      string `xml:"size"`
	Category  string `xml:"category"`
	Enclosure struct {
		URL    string `xml:"url,attr"`
		Length string `xml:"length,attr"`
		Type   string `xml:"type,attr"`
	} `xml:"enclosure"`
	Attrs []rssAttr `xml:"attr"`
}

type rssAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (i *rssItem) attrMap() map[string]string {
	m := make(map[string]string, len(i.Attrs))
	for _, a := range i.Attrs {
		if a.Name == "" {
			continue
		}
		// First occurrence wins except for trackers, which accumulate.
		if a.Name == "tracker" {
			if prev, ok := m["tracker"]; ok {
				m["tracker"] = prev + "\n" + a.Value
				continue
			}
		}
		if _, ok := m[a.Name]; !ok {
			m[a.Name] = a.Value
		}
	}
	return m
}

// ParseSearchResults parses a torznab RSS feed into results. Items without a
// title, or with neither a download URL nor an info hash, are dropped.
func (t *Torznab) ParseSearchResults(payload []byte) ([]types.Result, error) {
	var doc rssDoc
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("torznab feed: %w", err)
	}
	results := make([]types.Result, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		attrs := item.attrMap()

		infoHash := attrs["infohash"]
		if !validInfoHash(infoHash) {
			infoHash = ""
		}
		downloadURL := torrentURL(&item, attrs)
		magnet := attrs["magneturl"]
		if magnet == "" && infoHash != "" {
			magnet = buildMagnet(infoHash, title, splitTrackers(attrs["tracker"]))
		}
		if downloadURL == "" {
			downloadURL = magnet
		}
		if downloadURL == "" && infoHash == "" {
			continue
		}

		r := types.Result{
			Title:       title,
			Author:      attrs["author"],
			Narrator:    attrs["narrator"],
			Series:      attrs["series"],
			Sequence:    attrs["seriesnumber"],
			Language:    attrs["language"],
			Size:        itemSize(&item, attrs),
			Seeders:     attrInt(attrs, "seeders", -1),
			Peers:       attrInt(attrs, "peers", -1),
			Protocol:    types.ProtocolTorrent,
			Category:    itemCategory(&item, attrs),
			PublishDate: parseDate(item.PubDate),
			DownloadURL: downloadURL,
			InfoURL:     firstNonEmpty(item.Comments, item.GUID),
			InfoHash:    strings.ToLower(infoHash),
			MagnetURI:   magnet,
		}
		if bt := attrs["booktitle"]; bt != "" {
			if r.RawAttributes == nil {
				r.RawAttributes = map[string]string{}
			}
			r.RawAttributes["booktitle"] = bt
		}
		r.Format = types.ParseFormat(attrs["format"])
		if v := attrInt(attrs, "bitrate", 0); v > 0 {
			r.Bitrate = v
		}
		if r.Format == types.FormatUnknown || r.Bitrate == 0 {
			f, b := extractTitleTokens(title)
			if r.Format == types.FormatUnknown {
				r.Format = f
			}
			if r.Bitrate == 0 {
				r.Bitrate = b
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// torrentURL picks the best .torrent URL: a torrent enclosure, then a link
// that looks like a torrent download, then nothing (magnet fallback applies).
func torrentURL(item *rssItem, attrs map[string]string) string {
	enc := strings.TrimSpace(item.Enclosure.URL)
	if enc != "" && (item.Enclosure.Type == "application/x-bittorrent" || strings.Contains(enc, ".torrent")) {
		return enc
	}
	link := strings.TrimSpace(item.Link)
	if strings.HasPrefix(link, "magnet:") {
		return ""
	}
	if link != "" {
		return link
	}
	return strings.TrimSpace(attrs["downloadurl"])
}

func itemSize(item *rssItem, attrs map[string]string) int64 {
	if n := parseSize(item.Size); n > 0 {
		return n
	}
	if n := parseSize(attrs["size"]); n > 0 {
		return n
	}
	return parseSize(item.Enclosure.Length)
}

func itemCategory(item *rssItem, attrs map[string]string) string {
	if c := strings.TrimSpace(item.Category); c != "" {
		return c
	}
	return attrs["category"]
}

func attrInt(attrs map[string]string, name string, fallback int) int {
	v, ok := attrs[name]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func splitTrackers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
