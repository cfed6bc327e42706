package source

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

var _ ListParser = (*FeedListParser)(nil)

// FeedListParser reads article references from an RSS or Atom feed.
type FeedListParser struct {
	gofeedParser *gofeed.Parser
	policy       *bluemonday.Policy
}

func NewFeedListParser() *FeedListParser {
	return &FeedListParser{
		gofeedParser: gofeed.NewParser(),
		policy:       bluemonday.StrictPolicy(),
	}
}

func (p *FeedListParser) Run(data []byte) ([]Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	seen := map[string]struct{}{}

	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		link := strings.TrimSpace(entry.Link)
		title := p.plainText(entry.Title)
		if link == "" || title == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}

		items = append(items, Item{Title: title, URL: link, DateRaw: p.dateRaw(entry)})
	}

	return items, nil
}

func (p *FeedListParser) plainText(value string) string {
	return article.NormalizeWhitespace(html.UnescapeString(p.policy.Sanitize(value)))
}

func (p *FeedListParser) dateRaw(entry *gofeed.Item) string {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.In(time.Local).Format("2006-01-02 15:04")
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.In(time.Local).Format("2006-01-02 15:04")
	case entry.Published != "":
		return entry.Published
	default:
		return entry.Updated
	}
}
