package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/source"
)

type DiscoverArticlesTask struct {
	Task
	SourceConfig *source.Config
	fetcher      source.PageFetcher
	parser       source.ListParser
	filterer     *source.Filterer
	articles     DiscoveryStore
	pages        int

	Result database.UpsertResult
}

func NewDiscoverArticlesTask(sourceConfig *source.Config, fetcher source.PageFetcher, parser source.ListParser, filterer *source.Filterer, articles DiscoveryStore, pages int) *DiscoverArticlesTask {
	if pages < 1 {
		pages = 1
	}

	return &DiscoverArticlesTask{
		Task:         NewTask(TaskTypeDiscover, sourceConfig.Name),
		SourceConfig: sourceConfig,
		fetcher:      fetcher,
		parser:       parser,
		filterer:     filterer,
		articles:     articles,
		pages:        pages,
	}
}

func (t *DiscoverArticlesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, duplicateCount, err := t.collect(ctx)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}

	ignored, err := t.articles.FilterIgnored(ctx, urls)
	if err != nil {
		return fmt.Errorf("failed to check ignored urls: %w", err)
	}

	ignoredCount := 0
	filteredCount := 0
	refs := make([]database.ArticleRef, 0, len(items))

	for _, item := range t.filterer.Run(items) {
		if ignored[item.URL] {
			ignoredCount++
			continue
		}
		if item.IsFiltered {
			filteredCount++
			slog.Debug("Item filtered", "url", item.URL, "reason", item.FilterReason)
			continue
		}
		refs = append(refs, database.ArticleRef{Title: item.Title, URL: item.URL, DateRaw: item.DateRaw})
	}

	if maxItems := t.SourceConfig.Settings.MaxItems; maxItems > 0 && len(refs) > maxItems {
		refs = refs[:maxItems]
	}

	if len(refs) > 0 {
		t.Result, err = t.articles.UpsertArticles(ctx, t.Source, refs)
		if err != nil {
			return fmt.Errorf("failed to store articles: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.Source,
		"duration", t.GetDuration(),
		"total", len(items),
		"duplicates", duplicateCount,
		"ignored", ignoredCount,
		"filtered", filteredCount,
		"new", t.Result.New,
		"updated", t.Result.Updated)

	return nil
}

// collect walks the list pages and returns the unique items in page order.
// Page 1 must succeed; later pages end the walk on failure or when they
// bring nothing new.
func (t *DiscoverArticlesTask) collect(ctx context.Context) ([]source.Item, int, error) {
	var items []source.Item
	seen := map[string]struct{}{}
	duplicateCount := 0

	for page := 1; page <= t.pages; page++ {
		pageURL := t.SourceConfig.PageURLFor(page)
		if pageURL == "" {
			break
		}

		if page > 1 {
			if err := sleepContext(ctx, time.Duration(t.SourceConfig.Settings.DelayMS)*time.Millisecond); err != nil {
				return nil, 0, err
			}
		}

		pageItems, err := t.fetchPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, 0, err
			}
			slog.Warn("Failed to fetch list page, stopping pagination", "source", t.Source, "page", page, "error", err)
			break
		}

		fresh := 0
		for _, item := range pageItems {
			if _, ok := seen[item.URL]; ok {
				duplicateCount++
				continue
			}
			seen[item.URL] = struct{}{}
			items = append(items, item)
			fresh++
		}

		slog.Debug("List page parsed", "source", t.Source, "page", page, "items", len(pageItems), "new", fresh)

		if page > 1 && fresh == 0 {
			break
		}
	}

	return items, duplicateCount, nil
}

func (t *DiscoverArticlesTask) fetchPage(ctx context.Context, pageURL string) ([]source.Item, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.SourceConfig.FetchTimeout())
	defer cancel()

	data, err := t.fetcher.Fetch(fetchCtx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch list page %s: %w", pageURL, err)
	}

	items, err := t.parser.Run(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse list page %s: %w", pageURL, err)
	}

	return items, nil
}
