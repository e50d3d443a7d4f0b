package search

import (
	"regexp"
	"strings"
)

var (
	// "The Primal Hunter 12" / "The Primal Hunter Book 12".
	trailingNumberRe = regexp.MustCompile(`(?i)^(.+?\S)\s+(?:book\s+)?(\d+)\s*$`)

	// "Primal Hunter, Book 12".
	commaBookRe = regexp.MustCompile(`(?i)^(.+?),\s*book\s+(\d+)\s*$`)
)

// GenerateTitleVariants rewrites a title into the alternate phrasings
// providers tend to index: the canonical title always comes first, followed
// by the subtitle-stripped form and "<series> <n>" extractions. Duplicates
// are removed case-insensitively, preserving order.
func GenerateTitleVariants(title string) []string {
	canonical := strings.TrimSpace(title)
	if canonical == "" {
		return nil
	}
	candidates := []string{canonical}

	if idx := strings.Index(canonical, ":"); idx > 0 {
		candidates = append(candidates, strings.TrimSpace(canonical[:idx]))
	}
	if m := commaBookRe.FindStringSubmatch(canonical); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1])+" "+m[2])
	}
	if m := trailingNumberRe.FindStringSubmatch(canonical); m != nil {
		name := strings.TrimRight(strings.TrimSpace(m[1]), ",")
		candidates = append(candidates, name+" "+m[2])
	}

	seen := make(map[string]bool, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, c)
	}
	return variants
}
