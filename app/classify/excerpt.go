package classify

import (
	"strings"
	"unicode/utf8"
)

const DefaultExcerptChars = 2800

// BuildExcerpt folds line breaks and whitespace runs into single spaces and
// cuts the result to at most maxChars characters.
func BuildExcerpt(content string, maxChars int) string {
	excerpt := strings.Join(strings.Fields(content), " ")
	if maxChars <= 0 || utf8.RuneCountInString(excerpt) <= maxChars {
		return excerpt
	}

	return string([]rune(excerpt)[:maxChars])
}
