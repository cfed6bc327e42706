package tasks

import (
	"context"

	"github.com/lysyi3m/semi-weekly/app/database"
)

// TaskSchedulerInterface runs pipeline tasks in the background for the serve command.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type DiscoveryStore interface {
	UpsertArticles(ctx context.Context, source string, refs []database.ArticleRef) (database.UpsertResult, error)
	FilterIgnored(ctx context.Context, urls []string) (map[string]bool, error)
}

type ContentStore interface {
	GetArticlesMissingContent(ctx context.Context, limit int) ([]database.Article, error)
	UpdateArticleContent(ctx context.Context, id int64, update database.ContentUpdate) error
}

type ClassificationSource interface {
	GetArticlesForClassification(ctx context.Context, limit int) ([]database.Article, error)
}

type LLMResultStore interface {
	SaveLLMResult(ctx context.Context, result database.LLMResult) error
}
