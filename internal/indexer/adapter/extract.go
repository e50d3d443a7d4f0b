package adapter

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// Public trackers appended when constructing magnet links for results that
// only expose an info hash.
var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://exodus.desync.com:6969/announce",
}

var (
	infoHashRe = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	sizeRe     = regexp.MustCompile(`(?i)^([\d.,]+)\s*([KMGT]i?B|B)$`)

	// Bracketed release tokens like [M4B], [128 kbps], [M4B 64].
	bracketTokenRe = regexp.MustCompile(`\[([^\[\]]+)\]`)
	bitrateTokenRe = regexp.MustCompile(`(?i)\b(\d{2,4})\s*(?:kbps|kb/s|k)?\b`)
	formatTokenRe  = regexp.MustCompile(`(?i)\b(m4b|m4a|mp3|flac|aac|ogg|opus)\b`)
)

// validInfoHash reports whether s is a 40-char hex BitTorrent info hash.
func validInfoHash(s string) bool {
	return infoHashRe.MatchString(strings.TrimSpace(s))
}

// buildMagnet constructs a magnet URI from an info hash, display name, and
// tracker list. Falls back to defaultTrackers when none are supplied.
func buildMagnet(infoHash, name string, trackers []string) string {
	if !validInfoHash(infoHash) {
		return ""
	}
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(strings.ToLower(strings.TrimSpace(infoHash)))
	if name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(name))
	}
	if len(trackers) == 0 {
		trackers = defaultTrackers
	}
	for _, tr := range trackers {
		tr = strings.TrimSpace(tr)
		if tr == "" {
			continue
		}
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String()
}

// parseSize parses a size string: either raw bytes ("734003200") or a number
// with a unit ("850 MB", "1.2 GiB"). Units use binary multipliers.
func parseSize(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	mult := float64(1)
	switch strings.ToLower(m[2])[0] {
	case 'k':
		mult = 1 << 10
	case 'm':
		mult = 1 << 20
	case 'g':
		mult = 1 << 30
	case 't':
		mult = 1 << 40
	}
	return int64(math.Round(num * mult))
}

// extractTitleTokens pulls format and bitrate hints from bracketed tokens in
// a release title, e.g. "Dungeon Crawler Carl [M4B 64]".
func extractTitleTokens(title string) (types.Format, int) {
	format := types.FormatUnknown
	bitrate := 0
	for _, m := range bracketTokenRe.FindAllStringSubmatch(title, -1) {
		token := m[1]
		if format == types.FormatUnknown {
			if fm := formatTokenRe.FindStringSubmatch(token); fm != nil {
				format = types.ParseFormat(fm[1])
			}
		}
		if bitrate == 0 {
			if bm := bitrateTokenRe.FindStringSubmatch(token); bm != nil {
				if v, err := strconv.Atoi(bm[1]); err == nil && v >= 16 && v <= 2000 {
					bitrate = v
				}
			}
		}
	}
	return format, bitrate
}

// parseDate tries the date layouts seen across provider feeds.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// absolutePath normalizes an href (absolute or relative) to a server-relative
// path suitable for a RequestSpec.
func absolutePath(href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("href %q has no path", href)
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p, nil
}
