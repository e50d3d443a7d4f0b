package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/search/matcher"
)

// Assessor produces QualityScores and quality-ranked result lists.
type Assessor struct {
	weights Weights
	logger  zerolog.Logger
}

// NewAssessor builds an assessor with the default weights.
func NewAssessor(logger zerolog.Logger) *Assessor {
	return &Assessor{
		weights: DefaultWeights(),
		logger:  logger.With().Str("component", "quality-assessor").Logger(),
	}
}

// Assess scores one result against the original search title and author.
func (a *Assessor) Assess(r *types.Result, searchTitle, searchAuthor string) *types.QualityScore {
	qs := &types.QualityScore{}

	author := scoreAuthor(searchAuthor, r.Author)
	title, bookNumber := scoreTitle(searchTitle, r.Title)
	series := scoreSeries(searchTitle, r.Title)

	qs.Breakdown = types.ScoreBreakdown{
		BookNumberStatus: bookNumber,
		Author:           author,
		Title:            title,
		Series:           series,
	}
	qs.Relevance = clamp(author.Score+title.Score+series.Score, 0, 10)
	qs.Format = formatScore(r.Format)
	qs.Bitrate = bitrateScore(r.Bitrate)
	qs.Source = sourceScore(r.Protocol)
	qs.Metadata = metadataScore(r)
	qs.Availability = availabilityScore(r)

	qs.Total = clamp(
		qs.Relevance*a.weights.Relevance+
			qs.Format*a.weights.Format+
			qs.Bitrate*a.weights.Bitrate+
			qs.Source*a.weights.Source+
			qs.Metadata*a.weights.Metadata+
			qs.Availability*a.weights.Availability,
		0, 10)
	qs.Confidence = confidence(qs)
	return qs
}

// Rank attaches a QualityScore to every result and sorts best-first. Ties
// keep their insertion order.
func (a *Assessor) Rank(results []types.Result, searchTitle, searchAuthor string) []types.Result {
	for i := range results {
		results[i].Quality = a.Assess(&results[i], searchTitle, searchAuthor)
	}
	sort.SliceStable(results, func(x, y int) bool {
		return results[x].Quality.Total > results[y].Quality.Total
	})
	if len(results) > 0 {
		a.logger.Debug().
			Str("title", searchTitle).
			Int("results", len(results)).
			Float64("best_total", results[0].Quality.Total).
			Msg("Results ranked")
	}
	return results
}

// --- author ---

func scoreAuthor(searchAuthor, resultAuthor string) types.ComponentMatch {
	if strings.TrimSpace(searchAuthor) == "" {
		return types.ComponentMatch{Score: neutralAuthorScore, Status: types.MatchStatusNeutral}
	}
	if strings.TrimSpace(resultAuthor) == "" {
		return types.ComponentMatch{Score: 0, Status: types.MatchStatusNoMatch}
	}
	ns, nr := matcher.NormalizeAuthor(searchAuthor), matcher.NormalizeAuthor(resultAuthor)
	if ns != "" && nr != "" && (strings.Contains(nr, ns) || strings.Contains(ns, nr)) {
		return types.ComponentMatch{Score: maxAuthorScore, Status: types.MatchStatusMatch}
	}
	ts := matcher.Tokenize(matcher.NormalizeTitle(searchAuthor))
	tr := matcher.Tokenize(matcher.NormalizeTitle(resultAuthor))
	if overlap := matcher.TokenSetOverlap(ts, tr); overlap >= 0.5 {
		return types.ComponentMatch{Score: maxAuthorScore * overlap, Status: types.MatchStatusPartial}
	}
	if m := matcher.FuzzyMatch(searchAuthor, resultAuthor); m.Score >= 0.7 {
		return types.ComponentMatch{Score: maxAuthorScore * m.Score, Status: types.MatchStatusPartial}
	}
	return types.ComponentMatch{Score: 0, Status: types.MatchStatusNoMatch}
}

// --- title ---

func scoreTitle(searchTitle, resultTitle string) (types.ComponentMatch, string) {
	if strings.TrimSpace(searchTitle) == "" {
		return types.ComponentMatch{Score: neutralTitleScore, Status: types.MatchStatusNeutral}, ""
	}

	cleanSearch := stripReleaseTags(searchTitle)
	cleanResult := stripReleaseTags(resultTitle)
	ns := matcher.NormalizeTitle(stripSeriesSpan(cleanSearch))
	nr := matcher.NormalizeTitle(stripSeriesSpan(cleanResult))
	ts, tr := matcher.Tokenize(ns), matcher.Tokenize(nr)

	cm := types.ComponentMatch{Status: types.MatchStatusNoMatch}
	overlap := matcher.TokenSetOverlap(ts, tr)
	switch {
	case allTokensIn(ts, tr):
		cm = types.ComponentMatch{Score: maxTitleScore, Status: types.MatchStatusMatch}
	case overlap >= 0.7:
		cm = types.ComponentMatch{Score: maxTitleScore * overlap, Status: types.MatchStatusMatch}
	case ns != "" && nr != "" && (strings.Contains(nr, ns) || strings.Contains(ns, nr)):
		cm = types.ComponentMatch{Score: maxTitleScore, Status: types.MatchStatusMatch}
	default:
		if m := matcher.FuzzyMatch(searchTitle, resultTitle); m.Score >= 0.7 {
			cm = types.ComponentMatch{Score: maxTitleScore * m.Score, Status: types.MatchStatusMatch}
		}
	}

	searchNums := extractNumbers(cleanSearch)
	if len(searchNums) == 0 {
		return cm, ""
	}
	resultNums := extractNumbers(cleanResult)
	switch {
	case sharesNumber(searchNums, resultNums):
		cm.Score = math.Min(cm.Score+bookNumberBonus, maxTitleScore)
		return cm, types.MatchStatusMatch
	case len(resultNums) == 0:
		cm.Score *= 0.2
		return cm, types.MatchStatusResultMissing
	default:
		cm.Score = 0
		cm.Status = types.MatchStatusMismatch
		return cm, types.MatchStatusMismatch
	}
}

// --- series ---

func scoreSeries(searchTitle, resultTitle string) types.ComponentMatch {
	search, sok := detectSeries(stripReleaseTags(searchTitle))
	result, rok := detectSeries(stripReleaseTags(resultTitle))

	switch {
	case sok && rok:
		m := matcher.FuzzyMatch(search.name, result.name)
		var score float64
		switch {
		case m.Exact || m.Normalized || m.Score >= 0.8:
			score = maxSeriesScore
		case m.Score >= 0.7:
			score = 1.2
		case m.Score >= 0.6:
			score = 0.9
		case m.Score >= 0.5:
			score = 0.6
		}
		if score == 0 {
			return types.ComponentMatch{Status: types.MatchStatusNoMatch}
		}
		if search.number != "" && search.number == result.number {
			score = math.Min(score+seriesNumberBonus, maxSeriesScore)
		}
		return types.ComponentMatch{Score: score, Status: types.MatchStatusMatch}
	case sok:
		return types.ComponentMatch{Status: types.MatchStatusNoMatch}
	case rok:
		if n := matcher.NormalizeTitle(result.name); n != "" &&
			strings.Contains(matcher.NormalizeTitle(searchTitle), n) {
			return types.ComponentMatch{Score: 1.0, Status: types.MatchStatusMatch}
		}
		return types.ComponentMatch{Score: neutralSeriesScore, Status: types.MatchStatusNeutral}
	default:
		return types.ComponentMatch{Score: neutralSeriesScore, Status: types.MatchStatusNeutral}
	}
}

type seriesRef struct {
	name   string
	number string
}

var (
	// Bracketed release decorations like [M4B], [128 kbps], [M4B 64] that
	// would otherwise read as series or book-number spans.
	releaseTagRe = regexp.MustCompile(`(?i)\[\s*(?:(?:m4b|m4a|mp3|flac|aac|ogg|opus|unabridged|\d{2,4})\s*(?:kbps)?\s*)+\]`)

	numberTokenRe = regexp.MustCompile(`\b\d+\b`)

	seriesCommaBookRe  = regexp.MustCompile(`(?i)^(?:.*?:\s*)?(.+?),\s*(?:book|#)\s*(\d+)`)
	seriesParenRe      = regexp.MustCompile(`\(([^)]*?)[\s#]+(\d+)\)`)
	seriesBracketRe    = regexp.MustCompile(`\[([^\]]*?)\s+(\d+)\]`)
	seriesColonRe      = regexp.MustCompile(`(?i)^([^:]*(?:series|saga|chronicles|trilogy)[^:]*):\s+`)
	seriesTrailingRe   = regexp.MustCompile(`(?i)^((?:\S+\s+)+\S+?)\s+(?:book\s+)?(\d+)\s*$`)
	seriesSpanPatterns = []*regexp.Regexp{
		seriesCommaBookRe, seriesParenRe, seriesBracketRe, seriesColonRe, seriesTrailingRe,
	}
)

func stripReleaseTags(title string) string {
	return strings.TrimSpace(releaseTagRe.ReplaceAllString(title, " "))
}

// detectSeries finds a series name and book number in a title.
func detectSeries(title string) (seriesRef, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return seriesRef{}, false
	}
	if m := seriesCommaBookRe.FindStringSubmatch(title); m != nil {
		return seriesRef{name: strings.TrimSpace(m[1]), number: m[2]}, true
	}
	if m := seriesParenRe.FindStringSubmatch(title); m != nil && strings.TrimSpace(m[1]) != "" {
		return seriesRef{name: strings.TrimSpace(m[1]), number: m[2]}, true
	}
	if m := seriesBracketRe.FindStringSubmatch(title); m != nil && strings.TrimSpace(m[1]) != "" {
		return seriesRef{name: strings.TrimSpace(m[1]), number: m[2]}, true
	}
	if m := seriesColonRe.FindStringSubmatch(title); m != nil {
		return seriesRef{name: strings.TrimSpace(m[1])}, true
	}
	if m := seriesTrailingRe.FindStringSubmatch(title); m != nil {
		return seriesRef{name: strings.TrimSpace(m[1]), number: m[2]}, true
	}
	return seriesRef{}, false
}

// stripSeriesSpan removes the detected series span so the remaining text
// compares as a bare title.
func stripSeriesSpan(title string) string {
	for _, re := range seriesSpanPatterns {
		if loc := re.FindStringIndex(title); loc != nil {
			return strings.TrimSpace(title[:loc[0]] + " " + title[loc[1]:])
		}
	}
	return title
}

func allTokensIn(sub, super map[string]struct{}) bool {
	for tok := range sub {
		if _, ok := super[tok]; !ok {
			return false
		}
	}
	return true
}

func extractNumbers(title string) map[string]struct{} {
	nums := make(map[string]struct{})
	for _, n := range numberTokenRe.FindAllString(title, -1) {
		nums[strings.TrimLeft(n, "0")] = struct{}{}
	}
	return nums
}

func sharesNumber(a, b map[string]struct{}) bool {
	for n := range a {
		if _, ok := b[n]; ok {
			return true
		}
	}
	return false
}

// --- non-relevance components ---

func formatScore(f types.Format) float64 {
	switch f {
	case types.FormatM4B:
		return 10
	case types.FormatM4A:
		return 8
	case types.FormatFLAC:
		return 7
	case types.FormatMP3:
		return 6
	case types.FormatAAC:
		return 5
	case types.FormatOGG:
		return 4
	default:
		return 1
	}
}

func bitrateScore(kbps int) float64 {
	switch {
	case kbps <= 0:
		return 0
	case kbps < 64:
		return 1
	case kbps <= 128:
		return 3 + 5*float64(kbps-64)/64
	case kbps <= 320:
		return 8 + 2*float64(kbps-128)/192
	default:
		return 10
	}
}

func sourceScore(p types.Protocol) float64 {
	if p == types.ProtocolDirect {
		return 8
	}
	return 6
}

func metadataScore(r *types.Result) float64 {
	score := 0.0
	if strings.TrimSpace(r.Title) != "" {
		score += 4
	}
	if strings.TrimSpace(r.Author) != "" {
		score += 4
	}
	if r.Size > 0 {
		score += 2
	}
	return score
}

func availabilityScore(r *types.Result) float64 {
	if isAudiobookBay(r) && r.Seeders <= 1 {
		return 8
	}
	switch {
	case r.Seeders >= 50:
		return 10
	case r.Seeders >= 10:
		return 8
	case r.Seeders >= 5:
		return 6
	case r.Seeders >= 2:
		return 4
	case r.Seeders >= 1:
		return 2
	default:
		return 0
	}
}

func isAudiobookBay(r *types.Result) bool {
	if strings.Contains(strings.ToLower(r.IndexerName), "audiobookbay") {
		return true
	}
	return r.RawAttributes["_source"] == "direct-audiobookbay"
}

// confidence converts the total to 0..100 and adjusts it with the raw
// component signals and the relevance breakdown.
func confidence(qs *types.QualityScore) int {
	c := qs.Total * 10

	switch {
	case qs.Format < 5:
		c -= 15
	case qs.Format < 7:
		c -= 5
	}
	switch {
	case qs.Bitrate == 0:
		c -= 10
	case qs.Bitrate < 3:
		c -= 10
	case qs.Bitrate < 6:
		c -= 5
	}
	switch {
	case qs.Metadata < 5:
		c -= 10
	case qs.Metadata < 8:
		c -= 5
	}
	switch {
	case qs.Availability == 0:
		c -= 20
	case qs.Availability < 4:
		c -= 10
	case qs.Availability < 6:
		c -= 5
	}
	if qs.Format >= 9 {
		c += 5
	}
	if qs.Bitrate >= 9 {
		c += 3
	}
	if qs.Metadata >= 9 {
		c += 2
	}
	if qs.Availability >= 9 {
		c += 5
	}

	b := qs.Breakdown
	switch b.BookNumberStatus {
	case types.MatchStatusMismatch:
		c -= 45
	case types.MatchStatusResultMissing:
		c -= 20
	case types.MatchStatusMatch:
		c += 5
	}
	if b.Title.Status == types.MatchStatusNoMatch {
		c -= 35
	}
	if b.Title.Status == types.MatchStatusMatch && b.Title.Score >= 2.0 {
		c += 5
	}
	if b.Series.Status == types.MatchStatusNoMatch {
		c -= 15
	}
	if b.Series.Status == types.MatchStatusMatch && b.Series.Score >= 1.2 {
		c += 5
	}

	return int(math.Round(clamp(c, 0, 100)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
