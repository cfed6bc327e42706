package article

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

const DateLayout = "2006-01-02"

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|\D)(\d{4})-(\d{1,2})-(\d{1,2})(?:\D|$)`),
	regexp.MustCompile(`(?:^|\D)(\d{4})/(\d{1,2})/(\d{1,2})(?:\D|$)`),
	regexp.MustCompile(`(?:^|\D)(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`),
}

// NormalizeDate converts a scraped date string into YYYY-MM-DD.
// It returns "" when the string has none of the supported shapes or the
// matched parts do not form a real calendar date.
func NormalizeDate(raw string) string {
	text := strings.TrimSpace(width.Fold.String(raw))
	if text == "" {
		return ""
	}

	for _, pattern := range datePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		iso := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		if _, err := time.Parse(DateLayout, iso); err != nil {
			return ""
		}
		return iso
	}

	return ""
}

// ParseDate parses a stored normalized date. Longer ISO timestamps are
// accepted and cut to their date part.
func ParseDate(value string) (time.Time, bool) {
	text := strings.TrimSpace(value)
	if len(text) >= 10 && text[4] == '-' && text[7] == '-' {
		text = text[:10]
	}

	t, err := time.Parse(DateLayout, text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ISOWeek returns the ISO-8601 week number of t.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// YearBounds returns the half-open [start, end) date strings of a calendar year.
func YearBounds(year int) (string, string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-01-01", year+1)
}
