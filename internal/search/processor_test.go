package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/testutil"
)

func scored(title string, confidence int) types.Result {
	return types.Result{
		Title:       title,
		Author:      "Some Author",
		DownloadURL: "http://x/" + title + ".torrent",
		Size:        850 << 20,
		Quality:     &types.QualityScore{Confidence: confidence},
	}
}

func TestProcessManual(t *testing.T) {
	p := NewProcessor(testutil.NewTestLogger(t))

	results := []types.Result{
		scored("First", 95),
		{Title: "No Download URL", Author: "A"},
		{Title: "", Author: "A", DownloadURL: "http://x/2"},
		{Title: "No Author", DownloadURL: "http://x/3"},
		scored("Second", 80),
	}
	display := p.ProcessManual(results)

	require.Len(t, display, 2)
	assert.Equal(t, 1, display[0].ID)
	assert.Equal(t, "First", display[0].Title)
	assert.Equal(t, "850 MiB", display[0].SizeDisplay)
	assert.Equal(t, 95, display[0].Quality.Confidence)
	assert.Equal(t, 2, display[1].ID)
	assert.Equal(t, "Second", display[1].Title)
}

func TestProcessManualCap(t *testing.T) {
	p := NewProcessor(testutil.NewTestLogger(t))
	var results []types.Result
	for i := 0; i < 30; i++ {
		results = append(results, scored(fmt.Sprintf("Book %d", i), 50))
	}
	display := p.ProcessManual(results)
	require.Len(t, display, maxManualResults)
	assert.Equal(t, "Book 0", display[0].Title)
	assert.Equal(t, 20, display[19].ID)
}

func TestProcessAutomatic(t *testing.T) {
	p := NewProcessor(testutil.NewTestLogger(t))

	t.Run("picks the top-ranked acceptable result", func(t *testing.T) {
		results := []types.Result{
			{Title: "Broken", Author: "A"}, // no download URL
			scored("Winner", 88),
			scored("Runner Up", 70),
		}
		sel := p.ProcessAutomatic("book-42", results)
		require.NotNil(t, sel)
		assert.Equal(t, "book-42", sel.BookID)
		assert.Equal(t, "Winner", sel.SelectedResult.Title)
		assert.Equal(t, 88, sel.ConfidenceScore)
		assert.False(t, sel.SelectionTimestamp.IsZero())
	})

	t.Run("nil when nothing qualifies", func(t *testing.T) {
		sel := p.ProcessAutomatic("book-42", []types.Result{{Title: "x"}})
		assert.Nil(t, sel)
	})
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "unknown", HumanSize(0))
	assert.Equal(t, "850 MiB", HumanSize(850<<20))
	assert.Equal(t, "1.5 GiB", HumanSize(3<<29))
}
