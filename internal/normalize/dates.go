package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date tokens in orders arrive as DD.MM.YYYY, DD/MM/YYYY or DD-MM-YYYY,
// day-first per the domain. Canonical form is DD-MM-YYYY.
var reDateToken = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{2,4})\b`)

// NormalizeDates rewrites every date token on a line into the
// canonical separator form. Impossible calendar values are left
// untouched so the timeline extractor can flag them.
func NormalizeDates(s string) string {
	return reDateToken.ReplaceAllString(s, "$1-$2-$3")
}

// MaskDates blanks every date token on a line with spaces, keeping
// offsets stable. The schedule parser uses this so period dates inside
// a table row are not mistaken for amounts.
func MaskDates(s string) string {
	return reDateToken.ReplaceAllStringFunc(s, func(tok string) string {
		return strings.Repeat(" ", len(tok))
	})
}

// DateMatch is one date token found on a line. Parsed is false when
// the token looks like a date but is not a possible calendar value.
type DateMatch struct {
	Raw    string
	Start  int
	Time   time.Time
	Parsed bool
}

// FindDates scans a line for date tokens, day-first.
func FindDates(s string) []DateMatch {
	var out []DateMatch
	for _, idx := range reDateToken.FindAllStringSubmatchIndex(s, -1) {
		raw := s[idx[0]:idx[1]]
		t, ok := ParseDate(raw)
		out = append(out, DateMatch{Raw: raw, Start: idx[0], Time: t, Parsed: ok})
	}
	return out
}

// ParseDate parses a canonical or raw date token, day-first.
// Two-digit years are pivoted at 50 (21 -> 2021, 97 -> 1997).
func ParseDate(raw string) (time.Time, bool) {
	clean := strings.NewReplacer("/", "-", ".", "-").Replace(strings.TrimSpace(raw))
	parts := strings.Split(clean, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31-02 -> 03-03); reject that.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
