package source

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/microcosm-cc/bluemonday"
)

var _ ArticleExtractor = (*HTMLArticleExtractor)(nil)

// HTMLArticleExtractor recovers title, author and body text from an article page.
// The body comes from the configured content selectors, then readability, then
// the sanitized page body.
type HTMLArticleExtractor struct {
	config *Config
	policy *bluemonday.Policy
}

func NewHTMLArticleExtractor(config *Config) *HTMLArticleExtractor {
	return &HTMLArticleExtractor{
		config: config,
		policy: bluemonday.StrictPolicy(),
	}
}

func (e *HTMLArticleExtractor) Run(data []byte) (*ArticleContent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	content := &ArticleContent{
		Title:  e.firstText(doc, e.config.Selectors.Title),
		Author: e.firstText(doc, e.config.Selectors.Author),
		Body:   e.selectorBody(doc),
	}

	if content.Body == "" {
		content.Body = e.readabilityBody(data)
	}
	if content.Body == "" {
		content.Body = e.sanitizedBody(doc)
	}
	if content.Body == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully", "title", content.Title, "content_length", len(content.Body))

	return content, nil
}

func (e *HTMLArticleExtractor) firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := article.NormalizeWhitespace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func (e *HTMLArticleExtractor) selectorBody(doc *goquery.Document) string {
	for _, selector := range e.config.Selectors.Content {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}

		node = node.Clone()
		node.Find("script, style").Remove()

		var parts []string
		node.Find("p, h2, h3, li").Each(func(i int, s *goquery.Selection) {
			if text := article.NormalizeWhitespace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) == 0 {
			parts = nonEmptyLines(node.Text())
		}

		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return ""
}

func (e *HTMLArticleExtractor) readabilityBody(data []byte) string {
	parsed, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		slog.Debug("Readability extraction failed", "error", err)
		return ""
	}

	var buf strings.Builder
	if err := parsed.RenderText(&buf); err != nil {
		return ""
	}

	return strings.Join(nonEmptyLines(buf.String()), "\n")
}

func (e *HTMLArticleExtractor) sanitizedBody(doc *goquery.Document) string {
	body := doc.Find("body").First().Clone()
	if body.Length() == 0 {
		return ""
	}
	body.Find("script, style, header, footer, nav").Remove()

	markup, err := body.Html()
	if err != nil {
		return ""
	}

	return article.NormalizeWhitespace(html.UnescapeString(e.policy.Sanitize(markup)))
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = article.NormalizeWhitespace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
