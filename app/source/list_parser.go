package source

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/semi-weekly/app/article"
)

var _ ListParser = (*HTMLListParser)(nil)

// HTMLListParser extracts article references from a news list page.
type HTMLListParser struct {
	config *Config
	base   *url.URL
}

func NewHTMLListParser(config *Config) (*HTMLListParser, error) {
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}
	return &HTMLListParser{config: config, base: base}, nil
}

func (p *HTMLListParser) Run(data []byte) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	items := make([]Item, 0)
	seen := map[string]struct{}{}

	doc.Find(strings.Join(p.config.Selectors.Items, ", ")).Each(func(i int, card *goquery.Selection) {
		link := p.findLink(card)
		if link == nil {
			return
		}

		title := article.NormalizeWhitespace(link.Text())
		if title == "" {
			title = article.NormalizeWhitespace(link.AttrOr("title", ""))
		}
		if title == "" {
			return
		}

		href, err := p.resolve(link.AttrOr("href", ""))
		if err != nil {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}

		items = append(items, Item{Title: title, URL: href, DateRaw: p.findDate(card)})
	})

	return items, nil
}

func (p *HTMLListParser) findLink(card *goquery.Selection) *goquery.Selection {
	for _, selector := range p.config.Selectors.Link {
		if link := card.Find(selector).First(); link.Length() > 0 {
			return link
		}
	}

	var found *goquery.Selection
	card.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != "" {
			found = a
			return false
		}
		return true
	})

	return found
}

func (p *HTMLListParser) findDate(card *goquery.Selection) string {
	if tag := card.Find("time").First(); tag.Length() > 0 {
		if value := strings.TrimSpace(tag.AttrOr("datetime", "")); value != "" {
			return value
		}
		if value := strings.TrimSpace(tag.Text()); value != "" {
			return value
		}
	}

	for _, selector := range p.config.Selectors.Date {
		if value := strings.TrimSpace(card.Find(selector).First().Text()); value != "" {
			return value
		}
	}

	return ""
}

func (p *HTMLListParser) resolve(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") {
		return "", fmt.Errorf("unusable link %q", href)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}

	return p.base.ResolveReference(ref).String(), nil
}
