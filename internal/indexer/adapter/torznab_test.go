package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

const capsXML = `<?xml version="1.0" encoding="UTF-8"?>
<caps>
  <server title="Jackett" version="0.22.1"/>
  <limits max="1000" default="100"/>
  <searching>
    <search available="yes" supportedParams="q"/>
    <book-search available="yes" supportedParams="q,author,title"/>
  </searching>
  <categories>
    <category id="3000" name="Audio">
      <subcat id="3030" name="Audio/Audiobook"/>
    </category>
    <category id="7000" name="Books"/>
  </categories>
</caps>`

func TestTorznabParseHealthResponse(t *testing.T) {
	tz := NewTorznab(types.IndexerConfig{BaseURL: "http://jackett:9117"})

	caps, version, err := tz.ParseHealthResponse([]byte(capsXML))
	require.NoError(t, err)
	assert.Equal(t, "0.22.1", version)
	assert.True(t, caps.SupportsSearch)
	assert.True(t, caps.SupportsBookSearch)
	assert.True(t, caps.SupportsAuthorSearch)
	assert.Equal(t, []int{3000, 3030, 7000}, caps.Categories)
	assert.Equal(t, 1000, caps.MaxLimit)
	assert.Equal(t, 100, caps.DefaultLimit)
}

func TestTorznabBuildSearchRequests(t *testing.T) {
	tz := NewTorznab(types.IndexerConfig{
		BaseURL:    "http://jackett:9117",
		APIKey:     "secret",
		Categories: []int{3030, 3000},
	})

	t.Run("book search when author and title present", func(t *testing.T) {
		specs, err := tz.BuildSearchRequests(types.SearchParams{
			Query:  "mistborn brandon sanderson",
			Author: "Brandon Sanderson",
			Title:  "Mistborn",
			Limit:  50,
		})
		require.NoError(t, err)
		require.Len(t, specs, 1)
		assert.Equal(t, "/api", specs[0].Path)
		assert.Equal(t, "book", specs[0].Params.Get("t"))
		assert.Equal(t, "Brandon Sanderson", specs[0].Params.Get("author"))
		assert.Equal(t, "Mistborn", specs[0].Params.Get("title"))
		assert.Equal(t, "secret", specs[0].Params.Get("apikey"))
		assert.Equal(t, "3030,3000", specs[0].Params.Get("cat"))
		assert.Equal(t, "50", specs[0].Params.Get("limit"))
	})

	t.Run("free text search without author or title", func(t *testing.T) {
		specs, err := tz.BuildSearchRequests(types.SearchParams{Query: "project hail mary"})
		require.NoError(t, err)
		require.Len(t, specs, 1)
		assert.Equal(t, "search", specs[0].Params.Get("t"))
		assert.Equal(t, "project hail mary", specs[0].Params.Get("q"))
	})
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
<channel>
  <item>
    <title>Project Hail Mary [M4B 128]</title>
    <guid>http://tracker.example/details/1</guid>
    <link>http://tracker.example/dl/1.torrent</link>
    <comments>http://tracker.example/details/1</comments>
    <pubDate>Mon, 02 Jun 2025 10:30:00 +0000</pubDate>
    <size>734003200</size>
    <category>3030</category>
    <enclosure url="http://tracker.example/dl/1.torrent" length="734003200" type="application/x-bittorrent"/>
    <torznab:attr name="seeders" value="42"/>
    <torznab:attr name="peers" value="7"/>
    <torznab:attr name="author" value="Andy Weir"/>
    <torznab:attr name="infohash" value="AABBCCDDEEFF00112233445566778899AABBCCDD"/>
  </item>
  <item>
    <title>Dungeon Crawler Carl [MP3 64 kbps]</title>
    <torznab:attr name="infohash" value="0123456789abcdef0123456789abcdef01234567"/>
    <torznab:attr name="tracker" value="udp://t1.example:1337/announce"/>
    <torznab:attr name="tracker" value="udp://t2.example:80/announce"/>
  </item>
  <item>
    <title>No Handles At All</title>
  </item>
  <item>
    <link>http://tracker.example/dl/4.torrent</link>
  </item>
</channel>
</rss>`

func TestTorznabParseSearchResults(t *testing.T) {
	tz := NewTorznab(types.IndexerConfig{BaseURL: "http://jackett:9117"})

	results, err := tz.ParseSearchResults([]byte(feedXML))
	require.NoError(t, err)
	// Items lacking both a download URL and an info hash, or lacking a
	// title, are dropped.
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "Project Hail Mary [M4B 128]", first.Title)
	assert.Equal(t, "Andy Weir", first.Author)
	assert.Equal(t, "http://tracker.example/dl/1.torrent", first.DownloadURL)
	assert.Equal(t, "http://tracker.example/details/1", first.InfoURL)
	assert.Equal(t, "aabbccddeeff00112233445566778899aabbccdd", first.InfoHash)
	assert.Equal(t, int64(734003200), first.Size)
	assert.Equal(t, 42, first.Seeders)
	assert.Equal(t, 7, first.Peers)
	assert.Equal(t, types.FormatM4B, first.Format)
	assert.Equal(t, 128, first.Bitrate)
	assert.Equal(t, types.ProtocolTorrent, first.Protocol)
	assert.Equal(t, "3030", first.Category)
	assert.Equal(t, 2025, first.PublishDate.Year())

	second := results[1]
	assert.Equal(t, types.FormatMP3, second.Format)
	assert.Equal(t, 64, second.Bitrate)
	// Magnet built from the info hash and the feed's trackers.
	assert.True(t, strings.HasPrefix(second.DownloadURL, "magnet:?xt=urn:btih:0123456789abcdef"))
	assert.Contains(t, second.DownloadURL, "t1.example")
	assert.Contains(t, second.DownloadURL, "t2.example")
	// Seeders unknown without the attr.
	assert.Equal(t, -1, second.Seeders)
	assert.Equal(t, -1, second.Peers)
}

func TestExtractTitleTokens(t *testing.T) {
	tests := []struct {
		title   string
		format  types.Format
		bitrate int
	}{
		{"Book Title [M4B]", types.FormatM4B, 0},
		{"Book Title [128 kbps]", types.FormatUnknown, 128},
		{"Book Title [M4B 64]", types.FormatM4B, 64},
		{"Book Title [FLAC] [320]", types.FormatFLAC, 320},
		{"Plain Title", types.FormatUnknown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			f, b := extractTitleTokens(tt.title)
			assert.Equal(t, tt.format, f)
			assert.Equal(t, tt.bitrate, b)
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"734003200", 734003200},
		{"850 MB", 850 << 20},
		{"1.5 GiB", 1610612736},
		{"512 KiB", 512 << 10},
		{"", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSize(tt.in), tt.in)
	}
}
