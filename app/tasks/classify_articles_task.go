package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/semi-weekly/app/classify"
	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/llm"
)

type ClassifyArticlesTask struct {
	Task
	llmConfig    llm.Config
	retrier      llm.Retrier
	excerptChars int
	limit        int
	articles     ClassificationSource
	results      LLMResultStore

	Processed int
	Skipped   int
}

func NewClassifyArticlesTask(sourceName string, llmConfig llm.Config, retrier llm.Retrier, excerptChars, limit int, articles ClassificationSource, results LLMResultStore) *ClassifyArticlesTask {
	task := &ClassifyArticlesTask{
		Task:         NewTask(TaskTypeClassify, sourceName),
		llmConfig:    llmConfig,
		retrier:      retrier,
		excerptChars: excerptChars,
		limit:        limitOrDefault(limit),
		articles:     articles,
		results:      results,
	}
	task.MaxRetries = 0
	return task
}

func (t *ClassifyArticlesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	client, err := llm.NewClient(t.llmConfig)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	classifier := classify.NewClassifier(client, t.retrier, t.excerptChars)

	items, err := t.articles.GetArticlesForClassification(ctx, t.limit)
	if err != nil {
		return fmt.Errorf("failed to get articles for classification: %w", err)
	}

	if len(items) == 0 {
		slog.Debug("No articles need classification", "source", t.Source)
		return nil
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := classifier.Classify(ctx, inputFor(item))
		if err != nil {
			slog.Error("Failed to classify article", "article_id", item.ID, "url", item.URL, "error", err)
			t.Skipped++
			continue
		}

		err = t.results.SaveLLMResult(ctx, database.LLMResult{
			ArticleID: item.ID,
			Model:     client.Model(),
			BaseURL:   client.BaseURL(),
			Category:  string(result.Category),
			Summary:   result.Summary,
			RawJSON:   result.RawJSON,
		})
		if err != nil {
			slog.Error("Failed to store LLM result", "article_id", item.ID, "error", err)
			t.Skipped++
			continue
		}

		slog.Debug("Article classified", "article_id", item.ID, "category", result.Category)
		t.Processed++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.Source,
		"duration", t.GetDuration(),
		"model", client.Model(),
		"processed", t.Processed,
		"skipped", t.Skipped)

	return nil
}

func inputFor(item database.Article) classify.Input {
	date := item.PublishedDate
	if date == "" {
		date = item.DateRaw
	}

	return classify.Input{
		Title:   item.Title,
		URL:     item.URL,
		Date:    date,
		Author:  item.Author,
		Content: item.Content,
	}
}
