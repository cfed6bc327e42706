package article

import "strings"

// Effective values follow one precedence rule per field:
// reviewer override, then model output, then fallback.

func ResolveTitle(userTitle, articleTitle string) string {
	if t := NormalizeWhitespace(userTitle); t != "" {
		return t
	}
	return NormalizeWhitespace(articleTitle)
}

func ResolveCategory(userCategory, llmCategory string) Category {
	if strings.TrimSpace(userCategory) != "" {
		return CoerceCategory(userCategory)
	}
	if strings.TrimSpace(llmCategory) != "" {
		return CoerceCategory(llmCategory)
	}
	return CategoryOther
}

func ResolveSummary(userSummary, llmSummary string) string {
	if s := NormalizeWhitespace(userSummary); s != "" {
		return s
	}
	return NormalizeWhitespace(llmSummary)
}

// NormalizeWhitespace collapses all whitespace runs, including NBSP, into single spaces.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
