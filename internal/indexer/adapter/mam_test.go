package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

func TestMyAnonamouseBuildSearchRequests(t *testing.T) {
	mam := NewMyAnonamouse(types.IndexerConfig{
		BaseURL:    "https://www.myanonamouse.net",
		Categories: []int{39, 3030, 13},
		Languages:  []string{"english"},
	})

	t.Run("full text search", func(t *testing.T) {
		specs, err := mam.BuildSearchRequests(types.SearchParams{Query: "mistborn", Limit: 25, Offset: 50})
		require.NoError(t, err)
		require.Len(t, specs, 1)
		spec := specs[0]
		assert.Equal(t, "/tor/js/loadSearchJSONbasic.php", spec.Path)
		assert.True(t, spec.ExpectsJSON)
		assert.True(t, spec.AllowMissing)
		assert.Equal(t, "mistborn", spec.Params.Get("tor[text]"))
		assert.Equal(t, "true", spec.Params.Get("tor[srchIn][title]"))
		assert.Equal(t, "true", spec.Params.Get("tor[srchIn][author]"))
		assert.Equal(t, "true", spec.Params.Get("tor[srchIn][narrator]"))
		assert.Equal(t, "true", spec.Params.Get("tor[srchIn][series]"))
		assert.Equal(t, "true", spec.Params.Get("tor[srchIn][description]"))
		assert.Equal(t, "true", spec.Params.Get("tor[srchIn][filenames]"))
		// Only tracker-native category IDs (< 1000) reach the request.
		assert.Equal(t, "13", spec.Params.Get("tor[cat][0]"))
		assert.Equal(t, "39", spec.Params.Get("tor[cat][1]"))
		assert.Empty(t, spec.Params.Get("tor[cat][2]"))
		assert.Equal(t, "1", spec.Params.Get("tor[browse_lang][0]"))
		assert.Equal(t, "25", spec.Params.Get("tor[perpage]"))
		assert.Equal(t, "50", spec.Params.Get("tor[startNumber]"))
	})

	t.Run("empty query becomes wildcard", func(t *testing.T) {
		specs, err := mam.BuildSearchRequests(types.SearchParams{})
		require.NoError(t, err)
		assert.Equal(t, "*", specs[0].Params.Get("tor[text]"))
	})
}

const mamPayload = `{
  "data": [
    {
      "id": 101,
      "title": "The Final Empire",
      "author_info": "{\"11\":\"Brandon Sanderson\"}",
      "narrator_info": "{\"21\":\"Michael Kramer\"}",
      "series_info": "{\"31\":[\"Mistborn\",\"1\"]}",
      "filetype": "m4b",
      "tags": "64 kbps unabridged",
      "size": "850.5 MiB",
      "added": "2025-05-01 12:00:00",
      "catname": "Audiobooks - Fantasy",
      "main_cat": "13",
      "seeders": "12",
      "leechers": "3",
      "lang_code": 1
    },
    {
      "id": 102,
      "title": "The Final Empire",
      "filetype": "epub pdf",
      "main_cat": "13"
    },
    {
      "id": 103,
      "title": "Some Ebook Release",
      "filetype": "mp3",
      "main_cat": "14"
    },
    {
      "id": 104,
      "title": "Radio Drama",
      "filetype": "mp3",
      "main_cat": "13",
      "mediatype": 2
    },
    {
      "id": 105,
      "title": "Plain EBOOK in title",
      "filetype": "",
      "main_cat": "13"
    }
  ]
}`

func TestMyAnonamouseParseSearchResults(t *testing.T) {
	mam := NewMyAnonamouse(types.IndexerConfig{BaseURL: "https://www.myanonamouse.net/"})

	results, err := mam.ParseSearchResults([]byte(mamPayload))
	require.NoError(t, err)
	// 102 is ebook-only filetypes, 103 is the ebook main category, 104 is a
	// non-book mediatype, 105 carries an ebook indicator with no audio type.
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "101", r.IndexerID)
	assert.Equal(t, "The Final Empire", r.Title)
	assert.Equal(t, "Brandon Sanderson", r.Author)
	assert.Equal(t, "Michael Kramer", r.Narrator)
	assert.Equal(t, "Mistborn", r.Series)
	assert.Equal(t, "1", r.Sequence)
	assert.Equal(t, types.FormatM4B, r.Format)
	assert.Equal(t, 64, r.Bitrate)
	assert.Equal(t, int64(891813888), r.Size)
	assert.Equal(t, 12, r.Seeders)
	assert.Equal(t, 3, r.Peers)
	assert.Equal(t, "English", r.Language)
	assert.Equal(t, "Audiobooks - Fantasy", r.Category)
	assert.Equal(t, "https://www.myanonamouse.net/tor/download.php?tid=101", r.DownloadURL)
	assert.Equal(t, "https://www.myanonamouse.net/t/101", r.InfoURL)
	assert.Equal(t, types.ProtocolTorrent, r.Protocol)
	assert.Equal(t, 2025, r.PublishDate.Year())
}

func TestMyAnonamouseMainCatAllowList(t *testing.T) {
	mam := NewMyAnonamouse(types.IndexerConfig{
		BaseURL:    "https://www.myanonamouse.net",
		Categories: []int{3030},
	})

	payload := `{"data":[
	  {"id":1,"title":"Audio Release","filetype":"mp3","main_cat":"13"},
	  {"id":2,"title":"Music Release","filetype":"mp3","main_cat":"15"}
	]}`
	results, err := mam.ParseSearchResults([]byte(payload))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Audio Release", results[0].Title)
}

func TestJoinNameMap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single", `{"11":"Brandon Sanderson"}`, "Brandon Sanderson"},
		{"multiple sorted by id", `{"2":"B Author","1":"A Author"}`, "A Author, B Author"},
		{"empty", "", ""},
		{"null", "null", ""},
		{"garbage", "not json", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinNameMap(tt.in))
		})
	}
}
