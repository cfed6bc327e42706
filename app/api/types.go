package api

import (
	"context"
	"time"

	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/report"
	"github.com/lysyi3m/semi-weekly/app/review"
)

type ReviewServiceInterface interface {
	Save(ctx context.Context, articleID int64, edit review.Edit) error
	Approve(ctx context.Context, articleID int64) error
	SaveAndApprove(ctx context.Context, articleID int64, edit review.Edit) error
	Delete(ctx context.Context, articleID int64) error
	Link(ctx context.Context, fromID, toID int64, relation, note string) (int64, error)
	Unlink(ctx context.Context, fromID, toID int64, relation string) error
	Links(ctx context.Context, fromID int64) ([]database.ArticleLink, error)
	ListItems(ctx context.Context, year int) ([]review.Item, error)
}

type ReportBuilderInterface interface {
	Build(ctx context.Context, year int) (*report.Report, error)
}

type GeneratorInterface interface {
	Run(report *report.Report) (string, error)
}

type ArticleCounter interface {
	GetArticleCount(ctx context.Context) (int, error)
}

var (
	_ ReviewServiceInterface = (*review.Service)(nil)
	_ ReportBuilderInterface = (*report.Builder)(nil)
	_ GeneratorInterface     = (*report.Generator)(nil)
)

type Handler struct {
	reviews     ReviewServiceInterface
	builder     ReportBuilderInterface
	generator   GeneratorInterface
	articles    ArticleCounter
	defaultYear int
}

const (
	actionSave        = "save"
	actionSaveApprove = "save_approve"
)

// itemRequest is accepted as JSON or as a form post.
type itemRequest struct {
	Action   string `json:"action" form:"action"`
	Title    string `json:"title" form:"title"`
	Category string `json:"category" form:"category"`
	Summary  string `json:"summary" form:"summary"`
	Notes    string `json:"notes" form:"notes"`
}

type linkRequest struct {
	FromID   int64  `json:"from_id" form:"from_id" binding:"required"`
	ToID     int64  `json:"to_id" form:"to_id" binding:"required"`
	Relation string `json:"relation" form:"relation"`
	Note     string `json:"note" form:"note"`
}

type linkResponse struct {
	ID        int64     `json:"id"`
	FromID    int64     `json:"from_id"`
	ToID      int64     `json:"to_id"`
	Relation  string    `json:"relation"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
