package classify

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/semi-weekly/app/article"
)

const (
	sentenceTerminators = "。！？"
	maxSummarySentences = 3
)

// Validate checks a parsed reply and returns its canonical category and
// normalized summary. "summary_zh" is accepted when "summary" is absent.
func Validate(obj map[string]any) (article.Category, string, error) {
	rawCategory, _ := obj["category"].(string)
	category, ok := article.ParseCategory(rawCategory)
	if !ok {
		return "", "", fmt.Errorf("%w: unknown category %q", ErrInvalidOutput, rawCategory)
	}

	rawSummary, ok := obj["summary"].(string)
	if !ok {
		rawSummary, _ = obj["summary_zh"].(string)
	}

	summary := article.NormalizeWhitespace(rawSummary)
	if summary == "" {
		return "", "", fmt.Errorf("%w: empty summary", ErrInvalidOutput)
	}

	return category, TruncateSentences(summary, maxSummarySentences), nil
}

// TruncateSentences cuts text right after its n-th sentence terminator.
func TruncateSentences(text string, n int) string {
	count := 0
	for i, r := range text {
		if !strings.ContainsRune(sentenceTerminators, r) {
			continue
		}
		count++
		if count == n {
			return text[:i+len(string(r))]
		}
	}
	return text
}
