package adapter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// MyAnonamouse searches the MAM JSON endpoint. Audiobooks live under main
// category 13; ebooks (main category 14) are filtered out, as are releases
// whose file types or tags mark them ebook-only.
type MyAnonamouse struct {
	cfg types.IndexerConfig
}

// NewMyAnonamouse returns a MAM adapter bound to cfg.
func NewMyAnonamouse(cfg types.IndexerConfig) *MyAnonamouse {
	return &MyAnonamouse{cfg: cfg}
}

func (m *MyAnonamouse) Key() string       { return "myanonamouse" }
func (m *MyAnonamouse) Domains() []string { return []string{"myanonamouse.net"} }

const (
	mamMainCatAudiobooks = 13
	mamMainCatEbooks     = 14
)

var (
	mamEbookFiletypes = map[string]bool{
		"epub": true, "pdf": true, "mobi": true, "azw": true,
		"azw3": true, "cbz": true, "cbr": true,
	}
	mamAudioFiletypes = map[string]bool{
		"m4b": true, "m4a": true, "mp3": true, "flac": true,
		"aac": true, "ogg": true, "opus": true, "wma": true,
	}
	mamEbookIndicators = []string{"epub", "ebook", "pdf", "mobi", "azw"}
	mamBitrateRe       = regexp.MustCompile(`(?i)\b(\d{2,4})\s*kbps\b`)

	mamLanguageIDs = map[string]int{
		"en": 1, "eng": 1, "english": 1,
	}
)

// BuildHealthRequest pings the session-info endpoint; a JSON body confirms
// the session cookie is alive.
func (m *MyAnonamouse) BuildHealthRequest() *types.RequestSpec {
	return &types.RequestSpec{Method: "GET", Path: "/jsonLoad.php", ExpectsJSON: true}
}

// ParseHealthResponse verifies the session endpoint returned a JSON object.
func (m *MyAnonamouse) ParseHealthResponse(payload []byte) (*types.Capabilities, string, error) {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, "", fmt.Errorf("session info: %w", err)
	}
	caps := &types.Capabilities{
		SupportsSearch:       true,
		SupportsBookSearch:   true,
		SupportsAuthorSearch: true,
		Categories:           []int{mamMainCatAudiobooks},
	}
	username, _ := body["username"].(string)
	return caps, username, nil
}

// BuildSearchRequests builds the loadSearchJSONbasic query. An empty search
// text becomes the wildcard "*" so category browsing still works.
func (m *MyAnonamouse) BuildSearchRequests(p types.SearchParams) ([]types.RequestSpec, error) {
	text := strings.TrimSpace(p.Query)
	if text == "" {
		text = strings.TrimSpace(strings.Join([]string{p.Author, p.Title}, " "))
	}
	if text == "" {
		text = "*"
	}

	params := url.Values{}
	params.Set("tor[text]", text)
	params.Set("tor[searchType]", "all")
	params.Set("tor[searchIn]", "torrents")
	for _, field := range []string{"title", "author", "narrator", "series", "description", "filenames"} {
		params.Set(fmt.Sprintf("tor[srchIn][%s]", field), "true")
	}
	for i, cat := range m.trackerCategories() {
		params.Set(fmt.Sprintf("tor[cat][%d]", i), strconv.Itoa(cat))
	}
	for i, lang := range m.languageIDs() {
		params.Set(fmt.Sprintf("tor[browse_lang][%d]", i), strconv.Itoa(lang))
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	params.Set("tor[perpage]", strconv.Itoa(limit))
	if p.Offset > 0 {
		params.Set("tor[startNumber]", strconv.Itoa(p.Offset))
	}

	return []types.RequestSpec{{
		Method:      "GET",
		Path:        "/tor/js/loadSearchJSONbasic.php",
		Params:      params,
		ExpectsJSON: true,
		// MAM answers an empty result set with 404.
		AllowMissing: true,
	}}, nil
}

// trackerCategories returns the configured category IDs that are MAM-native
// (below 1000). Torznab-style 3xxx/7xxx values only shape the main-category
// allow list, not the request.
func (m *MyAnonamouse) trackerCategories() []int {
	var cats []int
	for _, c := range m.cfg.Categories {
		if c > 0 && c < 1000 {
			cats = append(cats, c)
		}
	}
	sort.Ints(cats)
	return cats
}

// mainCatAllowList maps configured categories to MAM main categories.
func (m *MyAnonamouse) mainCatAllowList() map[int]bool {
	allow := map[int]bool{}
	for _, c := range m.cfg.Categories {
		switch {
		case c == mamMainCatAudiobooks || c == mamMainCatEbooks:
			allow[c] = true
		case c >= 3000 && c < 4000:
			allow[mamMainCatAudiobooks] = true
		case c >= 7000 && c < 8000:
			allow[mamMainCatEbooks] = true
		}
	}
	return allow
}

func (m *MyAnonamouse) languageIDs() []int {
	var ids []int
	seen := map[int]bool{}
	for _, lang := range m.cfg.Languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		id, ok := mamLanguageIDs[lang]
		if !ok {
			if n, err := strconv.Atoi(lang); err == nil && n > 0 {
				id = n
				ok = true
			}
		}
		if ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	sort.Ints(ids)
	return ids
}

type mamResponse struct {
	Data []mamTorrent `json:"data"`
}

type mamTorrent struct {
	ID           flexInt  `json:"id"`
	Title        string   `json:"title"`
	AuthorInfo   string   `json:"author_info"`
	NarratorInfo string   `json:"narrator_info"`
	SeriesInfo   string   `json:"series_info"`
	Filetype     string   `json:"filetype"`
	Tags         string   `json:"tags"`
	Size         flexSize `json:"size"`
	Added        string   `json:"added"`
	Catname      string   `json:"catname"`
	MainCat      flexInt  `json:"main_cat"`
	Mediatype    flexInt  `json:"mediatype"`
	Seeders      flexInt  `json:"seeders"`
	Leechers     flexInt  `json:"leechers"`
	LangCode     flexInt  `json:"lang_code"`
	Language     string   `json:"language"`
}

// flexInt tolerates MAM's habit of quoting numbers.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// flexSize accepts raw byte counts or display strings like "850.5 MiB".
type flexSize int64

func (f *flexSize) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	*f = flexSize(parseSize(s))
	return nil
}

// ParseSearchResults parses the MAM data array, dropping ebook and
// non-torrent entries.
func (m *MyAnonamouse) ParseSearchResults(payload []byte) ([]types.Result, error) {
	var resp mamResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("search response: %w", err)
	}
	allow := m.mainCatAllowList()
	base := strings.TrimRight(m.cfg.BaseURL, "/")

	results := make([]types.Result, 0, len(resp.Data))
	for _, t := range resp.Data {
		if t.Title == "" || t.ID == 0 {
			continue
		}
		if t.Mediatype == 2 {
			continue
		}
		if int(t.MainCat) == mamMainCatEbooks {
			continue
		}
		if len(allow) > 0 && t.MainCat != 0 && !allow[int(t.MainCat)] {
			continue
		}
		format, audio := mamFormat(t.Filetype)
		if !audio && mamEbookOnly(t.Filetype) {
			continue
		}
		if !audio && hasEbookIndicator(t.Title, t.Tags) {
			continue
		}

		series, sequence := parseSeriesInfo(t.SeriesInfo)
		r := types.Result{
			IndexerID:   strconv.Itoa(int(t.ID)),
			Title:       t.Title,
			Author:      joinNameMap(t.AuthorInfo),
			Narrator:    joinNameMap(t.NarratorInfo),
			Series:      series,
			Sequence:    sequence,
			Language:    mamLanguage(t.Language, int(t.LangCode)),
			Format:      format,
			Bitrate:     mamBitrate(t.Tags),
			Size:        int64(t.Size),
			Seeders:     int(t.Seeders),
			Peers:       int(t.Leechers),
			Protocol:    types.ProtocolTorrent,
			Category:    t.Catname,
			PublishDate: parseDate(t.Added),
			DownloadURL: fmt.Sprintf("%s/tor/download.php?tid=%d", base, int(t.ID)),
			InfoURL:     fmt.Sprintf("%s/t/%d", base, int(t.ID)),
		}
		results = append(results, r)
	}
	return results, nil
}

// joinNameMap decodes MAM's JSON-in-string maps ({"123":"Name", ...}) into a
// comma-joined name list with stable ordering.
func joinNameMap(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ""
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return ""
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name := strings.TrimSpace(m[id]); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// parseSeriesInfo decodes {"123":["Series Name","3"]} into a name and a
// sequence. When a release belongs to several series, the first (by id) wins.
func parseSeriesInfo(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return "", ""
	}
	var m map[string][]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return "", ""
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		entry := m[id]
		if len(entry) == 0 || strings.TrimSpace(entry[0]) == "" {
			continue
		}
		name := strings.TrimSpace(entry[0])
		seq := ""
		if len(entry) > 1 {
			seq = strings.TrimSpace(entry[1])
		}
		return name, seq
	}
	return "", ""
}

// mamFormat inspects the filetype list, returning the best audio format and
// whether any audio type is present.
func mamFormat(filetype string) (types.Format, bool) {
	best := types.FormatUnknown
	audio := false
	for _, ft := range splitFiletypes(filetype) {
		if !mamAudioFiletypes[ft] {
			continue
		}
		audio = true
		f := types.ParseFormat(ft)
		if best == types.FormatUnknown || f == types.FormatM4B {
			best = f
		}
	}
	return best, audio
}

// mamEbookOnly reports whether every listed filetype is an ebook format.
func mamEbookOnly(filetype string) bool {
	fts := splitFiletypes(filetype)
	if len(fts) == 0 {
		return false
	}
	for _, ft := range fts {
		if !mamEbookFiletypes[ft] {
			return false
		}
	}
	return true
}

func splitFiletypes(filetype string) []string {
	var out []string
	for _, ft := range strings.FieldsFunc(filetype, func(r rune) bool {
		return r == ' ' || r == ',' || r == '/' || r == ';'
	}) {
		ft = strings.ToLower(strings.TrimSpace(ft))
		if ft != "" {
			out = append(out, ft)
		}
	}
	return out
}

func hasEbookIndicator(title, tags string) bool {
	hay := strings.ToLower(title + " " + tags)
	for _, ind := range mamEbookIndicators {
		if strings.Contains(hay, ind) {
			return true
		}
	}
	return false
}

func mamBitrate(tags string) int {
	m := mamBitrateRe.FindStringSubmatch(tags)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func mamLanguage(language string, langCode int) string {
	if language != "" {
		return language
	}
	if langCode == 1 {
		return "English"
	}
	if langCode > 0 {
		return strconv.Itoa(langCode)
	}
	return ""
}
