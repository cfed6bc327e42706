package review

import (
	"context"

	"github.com/lysyi3m/semi-weekly/app/database"
)

// ReviewStore is the part of the article store the review workflow mutates.
// Each method runs in its own transaction.
type ReviewStore interface {
	SaveReview(ctx context.Context, articleID int64, overrides database.ReviewOverrides) error
	ApproveReview(ctx context.Context, articleID int64) error
	SaveAndApproveReview(ctx context.Context, articleID int64, overrides database.ReviewOverrides) error
	DeleteArticle(ctx context.Context, articleID int64) error
	ListReviewRecords(ctx context.Context, year int) ([]database.ReviewRecord, error)
}

type LinkStore interface {
	AddLink(ctx context.Context, link database.ArticleLink) (int64, error)
	RemoveLink(ctx context.Context, fromID, toID int64, relation string) error
	GetLinks(ctx context.Context, fromID int64) ([]database.ArticleLink, error)
}
