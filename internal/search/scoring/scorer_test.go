package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/testutil"
)

func newAssessor(t *testing.T) *Assessor {
	return NewAssessor(testutil.NewTestLogger(t))
}

func TestAssessExactMatchWithBookNumber(t *testing.T) {
	a := newAssessor(t)
	r := &types.Result{
		Title:   "Mark of the Fool 8 [M4B 128]",
		Author:  "J.M. Clarke",
		Format:  types.FormatM4B,
		Bitrate: 128,
		Size:    734003200,
		Seeders: -1,
	}
	qs := a.Assess(r, "Mark of the Fool 8", "JM Clarke")

	assert.Equal(t, 6.0, qs.Breakdown.Author.Score)
	assert.Equal(t, types.MatchStatusMatch, qs.Breakdown.Author.Status)
	assert.Equal(t, 2.5, qs.Breakdown.Title.Score)
	assert.Equal(t, types.MatchStatusMatch, qs.Breakdown.BookNumberStatus)
	assert.Equal(t, types.MatchStatusMatch, qs.Breakdown.Series.Status)
	assert.GreaterOrEqual(t, qs.Total, 8.5)
	assert.GreaterOrEqual(t, qs.Confidence, 90)
}

func TestAssessBookNumberMismatch(t *testing.T) {
	a := newAssessor(t)
	match := &types.Result{Title: "Mark of the Fool 8 [M4B]", Author: "J.M. Clarke", Format: types.FormatM4B, Seeders: 10}
	mismatch := &types.Result{Title: "Mark of the Fool 7 [M4B]", Author: "J.M. Clarke", Format: types.FormatM4B, Seeders: 10}

	good := a.Assess(match, "Mark of the Fool 8", "JM Clarke")
	bad := a.Assess(mismatch, "Mark of the Fool 8", "JM Clarke")

	assert.Equal(t, types.MatchStatusMismatch, bad.Breakdown.BookNumberStatus)
	assert.Equal(t, types.MatchStatusMismatch, bad.Breakdown.Title.Status)
	assert.Zero(t, bad.Breakdown.Title.Score)
	assert.GreaterOrEqual(t, good.Confidence-bad.Confidence, 45)
	assert.Greater(t, good.Total, bad.Total)
}

func TestAssessBookNumberResultMissing(t *testing.T) {
	a := newAssessor(t)
	r := &types.Result{Title: "Mark of the Fool", Author: "J.M. Clarke"}
	qs := a.Assess(r, "Mark of the Fool 8", "JM Clarke")
	assert.Equal(t, types.MatchStatusResultMissing, qs.Breakdown.BookNumberStatus)
	assert.Less(t, qs.Breakdown.Title.Score, 1.0)
}

func TestAssessNeutralInputs(t *testing.T) {
	a := newAssessor(t)

	t.Run("no search author", func(t *testing.T) {
		qs := a.Assess(&types.Result{Title: "The Hobbit", Author: "J.R.R. Tolkien"}, "The Hobbit", "")
		assert.Equal(t, 3.0, qs.Breakdown.Author.Score)
		assert.Equal(t, types.MatchStatusNeutral, qs.Breakdown.Author.Status)
	})

	t.Run("no search title", func(t *testing.T) {
		qs := a.Assess(&types.Result{Title: "Whatever Release", Author: "J.R.R. Tolkien"}, "", "J.R.R. Tolkien")
		assert.Equal(t, 1.25, qs.Breakdown.Title.Score)
		assert.Empty(t, qs.Breakdown.BookNumberStatus)
	})

	t.Run("result missing author", func(t *testing.T) {
		qs := a.Assess(&types.Result{Title: "The Hobbit"}, "The Hobbit", "J.R.R. Tolkien")
		assert.Zero(t, qs.Breakdown.Author.Score)
		assert.Equal(t, types.MatchStatusNoMatch, qs.Breakdown.Author.Status)
	})
}

func TestAvailabilityScore(t *testing.T) {
	tests := []struct {
		seeders int
		want    float64
	}{
		{-1, 0}, {0, 0}, {1, 2}, {2, 4}, {4, 4}, {5, 6}, {9, 6}, {10, 8}, {49, 8}, {50, 10},
	}
	for _, tt := range tests {
		got := availabilityScore(&types.Result{Seeders: tt.seeders})
		assert.Equal(t, tt.want, got, "seeders=%d", tt.seeders)
	}
}

func TestAvailabilityAudiobookBayFloor(t *testing.T) {
	byName := &types.Result{IndexerName: "AudiobookBay", Seeders: 1}
	assert.Equal(t, 8.0, availabilityScore(byName))

	bySource := &types.Result{Seeders: 0, RawAttributes: map[string]string{"_source": "direct-audiobookbay"}}
	assert.Equal(t, 8.0, availabilityScore(bySource))

	// With real swarm numbers the normal table applies.
	healthy := &types.Result{IndexerName: "AudiobookBay", Seeders: 50}
	assert.Equal(t, 10.0, availabilityScore(healthy))
}

func TestBitrateScore(t *testing.T) {
	assert.Equal(t, 0.0, bitrateScore(0))
	assert.Equal(t, 1.0, bitrateScore(32))
	assert.Equal(t, 3.0, bitrateScore(64))
	assert.Equal(t, 8.0, bitrateScore(128))
	assert.Equal(t, 10.0, bitrateScore(320))
	assert.Equal(t, 10.0, bitrateScore(500))
}

func TestDetectSeries(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		series string
		number string
		found  bool
	}{
		{"comma book", "Mistborn, Book 1", "Mistborn", "1", true},
		{"hash", "The Final Empire, #3", "The Final Empire", "3", true},
		{"parenthesized", "The Final Empire (Mistborn 1)", "Mistborn", "1", true},
		{"bracketed", "The Final Empire [Mistborn 1]", "Mistborn", "1", true},
		{"saga colon", "The Cosmere Saga: The Final Empire", "The Cosmere Saga", "", true},
		{"plain colon is not a series", "The Final Empire: A Novel", "", "", false},
		{"trailing number", "The Primal Hunter 12", "The Primal Hunter", "12", true},
		{"single word with number", "Mistborn 1", "", "", false},
		{"no series", "The Final Empire", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := detectSeries(tt.title)
			require.Equal(t, tt.found, ok)
			if ok {
				assert.Equal(t, tt.series, ref.name)
				assert.Equal(t, tt.number, ref.number)
			}
		})
	}
}

func TestScoreSeries(t *testing.T) {
	t.Run("both sides match with number bonus", func(t *testing.T) {
		cm := scoreSeries("The Primal Hunter 12", "Primal Hunter, Book 12")
		assert.Equal(t, types.MatchStatusMatch, cm.Status)
		assert.Equal(t, 1.5, cm.Score)
	})

	t.Run("only search has series", func(t *testing.T) {
		cm := scoreSeries("The Primal Hunter 12", "Some Other Audiobook")
		assert.Equal(t, types.MatchStatusNoMatch, cm.Status)
		assert.Zero(t, cm.Score)
	})

	t.Run("only result has series appearing in search", func(t *testing.T) {
		cm := scoreSeries("The Final Empire Mistborn", "The Final Empire (Mistborn 1)")
		assert.Equal(t, types.MatchStatusMatch, cm.Status)
		assert.Equal(t, 1.0, cm.Score)
	})

	t.Run("neither side has a series", func(t *testing.T) {
		cm := scoreSeries("The Final Empire", "Final Empire Unabridged")
		assert.Equal(t, types.MatchStatusNeutral, cm.Status)
		assert.Equal(t, 0.75, cm.Score)
	})
}

func TestRankOrdersByTotal(t *testing.T) {
	a := newAssessor(t)
	results := []types.Result{
		{Title: "Mark of the Fool 7 [M4B]", Author: "J.M. Clarke", Format: types.FormatM4B, Seeders: 40},
		{Title: "Mark of the Fool 8 [M4B 128]", Author: "J.M. Clarke", Format: types.FormatM4B, Bitrate: 128, Size: 1 << 30, Seeders: 12},
		{Title: "Unrelated Cooking Show", Author: "Someone Else", Seeders: 100},
	}
	ranked := a.Rank(results, "Mark of the Fool 8", "JM Clarke")

	require.Len(t, ranked, 3)
	assert.Equal(t, "Mark of the Fool 8 [M4B 128]", ranked[0].Title)
	for _, r := range ranked {
		require.NotNil(t, r.Quality)
		assert.GreaterOrEqual(t, r.Quality.Total, 0.0)
		assert.LessOrEqual(t, r.Quality.Total, 10.0)
		assert.GreaterOrEqual(t, r.Quality.Confidence, 0)
		assert.LessOrEqual(t, r.Quality.Confidence, 100)
	}
	assert.GreaterOrEqual(t, ranked[0].Quality.Total, ranked[1].Quality.Total)
	assert.GreaterOrEqual(t, ranked[1].Quality.Total, ranked[2].Quality.Total)
}
