// Package matcher provides the text normalization and fuzzy comparison used
// to judge how well a release matches a requested book.
package matcher

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var (
	bracketedRe      = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	trailingDashRe   = regexp.MustCompile(`\s[-–—]\s.*$|[–—].*$`)
	leadingArticleRe = regexp.MustCompile(`^(?:the|a|an)\s+`)
	punctuationRe    = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
	nonAlnumRe       = regexp.MustCompile(`[^a-z0-9]`)
)

// NormalizeAuthor lowercases and strips everything but letters and digits,
// so "J.R.R. Tolkien" and "jrr tolkien" compare equal.
func NormalizeAuthor(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

// NormalizeTitle lowercases, removes bracketed/parenthesized release tags,
// cuts trailing dash-separated decoration, drops a leading article, and
// collapses punctuation and whitespace.
func NormalizeTitle(s string) string {
	s = strings.ToLower(s)
	s = bracketedRe.ReplaceAllString(s, " ")
	s = trailingDashRe.ReplaceAllString(s, " ")
	s = leadingArticleRe.ReplaceAllString(s, "")
	s = punctuationRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits a normalized string into its unique word set.
func Tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		tokens[f] = struct{}{}
	}
	return tokens
}

// TokenSetOverlap computes the Jaccard similarity of two token sets.
func TokenSetOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// Match describes the outcome of a fuzzy comparison.
type Match struct {
	Score        float64
	Matched      bool
	Exact        bool
	Normalized   bool
	WordBoundary bool
	Algorithm    string
	TokenOverlap float64
}

const (
	tokenOverlapThreshold = 0.7
	matchThreshold        = 0.6
	wordBoundaryBonus     = 0.2
)

// FuzzyMatch compares two strings through an escalating ladder: exact match,
// normalized match, token-set overlap, then a windowed edit-distance scan.
// The comparison is symmetric in its arguments.
func FuzzyMatch(a, b string) Match {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return Match{Algorithm: "none"}
	}
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return Match{Score: 1, Matched: true, Exact: true, Algorithm: "exact"}
	}

	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na != "" && na == nb {
		return Match{Score: 1, Matched: true, Normalized: true, Algorithm: "normalized"}
	}

	ta, tb := Tokenize(na), Tokenize(nb)
	overlap := TokenSetOverlap(ta, tb)
	if overlap >= tokenOverlapThreshold {
		return Match{Score: overlap, Matched: true, Algorithm: "token_set", TokenOverlap: overlap}
	}

	score := windowedDistanceScore(na, nb)
	m := Match{Score: score, Algorithm: "bitap", TokenOverlap: overlap}
	if wordOverlapRatio(ta, tb) >= 0.5 {
		m.WordBoundary = true
		m.Score += wordBoundaryBonus
		if m.Score > 1 {
			m.Score = 1
		}
	}
	m.Matched = m.Score >= matchThreshold
	return m
}

// windowedDistanceScore slides the shorter string across the longer one and
// keeps the best edit-distance similarity of any window.
func windowedDistanceScore(a, b string) float64 {
	pattern, text := a, b
	if len(b) < len(a) {
		pattern, text = b, a
	}
	if len(pattern) == 0 {
		return 0
	}
	best := 0.0
	for i := 0; i+len(pattern) <= len(text); i++ {
		window := text[i : i+len(pattern)]
		dist := fuzzy.LevenshteinDistance(pattern, window)
		score := 1 - float64(dist)/float64(len(pattern))
		if score > best {
			best = score
		}
	}
	return best
}

// wordOverlapRatio is the fraction of the smaller token set present in the
// larger one.
func wordOverlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
