package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/source"
)

type BackfillContentTask struct {
	Task
	SourceConfig *source.Config
	fetcher      source.PageFetcher
	extractor    source.ArticleExtractor
	articles     ContentStore
	limit        int
	timeout      time.Duration

	Processed int
	Failed    int
}

// NewBackfillContentTask fills body text for up to limit stored articles.
// A zero timeout falls back to the source's fetch timeout.
func NewBackfillContentTask(sourceConfig *source.Config, fetcher source.PageFetcher, extractor source.ArticleExtractor, articles ContentStore, limit int, timeout time.Duration) *BackfillContentTask {
	if timeout <= 0 {
		timeout = sourceConfig.FetchTimeout()
	}

	return &BackfillContentTask{
		Task:         NewTask(TaskTypeBackfill, sourceConfig.Name),
		SourceConfig: sourceConfig,
		fetcher:      fetcher,
		extractor:    extractor,
		articles:     articles,
		limit:        limitOrDefault(limit),
		timeout:      timeout,
	}
}

func (t *BackfillContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.articles.GetArticlesMissingContent(ctx, t.limit)
	if err != nil {
		return fmt.Errorf("failed to get articles for content backfill: %w", err)
	}

	if len(items) == 0 {
		slog.Debug("No articles need content", "source", t.Source)
		return nil
	}

	delay := time.Duration(t.SourceConfig.Settings.DelayMS) * time.Millisecond

	for i, item := range items {
		if i > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		itemCtx, cancel := context.WithTimeout(ctx, t.timeout)
		err := t.backfillArticle(itemCtx, item)
		cancel()

		if err != nil {
			slog.Error("Failed to backfill content", "article_id", item.ID, "url", item.URL, "error", err)
			t.Failed++
			continue
		}
		t.Processed++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.Source,
		"duration", t.GetDuration(),
		"success", t.Processed,
		"errors", t.Failed)

	return nil
}

func (t *BackfillContentTask) backfillArticle(ctx context.Context, item database.Article) error {
	data, err := t.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch article: %w", err)
	}

	content, err := t.extractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}
	if strings.TrimSpace(content.Body) == "" {
		return fmt.Errorf("extracted body is empty")
	}

	err = t.articles.UpdateArticleContent(ctx, item.ID, database.ContentUpdate{
		Title:   content.Title,
		Author:  content.Author,
		Content: content.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to store content: %w", err)
	}

	slog.Debug("Content backfilled", "article_id", item.ID, "url", item.URL, "content_length", len(content.Body))
	return nil
}
