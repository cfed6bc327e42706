package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/lysyi3m/semi-weekly/app/database"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrSelfLink        = errors.New("article cannot link to itself")
)

// Edit carries the reviewer's overrides. Blank title, summary and notes
// clear the override so the model output shows through again. The category
// is always stored, with anything outside the set saved as "other".
type Edit struct {
	Title    string
	Category string
	Summary  string
	Notes    string
}

// Item is one row of the review list with its effective values resolved.
type Item struct {
	ArticleID    int64                `json:"id"`
	URL          string               `json:"url"`
	Title        string               `json:"title"`
	Date         string               `json:"date"`
	Week         *int                 `json:"week"`
	Status       article.ReviewStatus `json:"status"`
	Category     article.Category     `json:"category"`
	CategoryName string               `json:"category_name"`
	Summary      string               `json:"summary"`
	Notes        string               `json:"notes"`
	Edited       bool                 `json:"edited"`
}

type Service struct {
	reviews ReviewStore
	links   LinkStore
}

func NewService(reviews ReviewStore, links LinkStore) *Service {
	return &Service{reviews: reviews, links: links}
}

func (s *Service) Save(ctx context.Context, articleID int64, edit Edit) error {
	if err := s.reviews.SaveReview(ctx, articleID, edit.overrides()); err != nil {
		return wrapNotFound(articleID, err)
	}

	slog.Debug("Review saved", "article_id", articleID)
	return nil
}

// Approve moves the review to reviewed. Approving twice keeps the first
// reviewed-at timestamp.
func (s *Service) Approve(ctx context.Context, articleID int64) error {
	if err := s.reviews.ApproveReview(ctx, articleID); err != nil {
		return wrapNotFound(articleID, err)
	}

	slog.Info("Review approved", "article_id", articleID)
	return nil
}

func (s *Service) SaveAndApprove(ctx context.Context, articleID int64, edit Edit) error {
	if err := s.reviews.SaveAndApproveReview(ctx, articleID, edit.overrides()); err != nil {
		return wrapNotFound(articleID, err)
	}

	slog.Info("Review saved and approved", "article_id", articleID)
	return nil
}

// Delete removes the article with everything hanging off it and ignore-lists
// its URL for future discovery passes.
func (s *Service) Delete(ctx context.Context, articleID int64) error {
	if err := s.reviews.DeleteArticle(ctx, articleID); err != nil {
		return wrapNotFound(articleID, err)
	}

	slog.Info("Article deleted", "article_id", articleID)
	return nil
}

func (s *Service) Link(ctx context.Context, fromID, toID int64, relation, note string) (int64, error) {
	if fromID == toID {
		return 0, ErrSelfLink
	}

	id, err := s.links.AddLink(ctx, database.ArticleLink{
		FromArticleID: fromID,
		ToArticleID:   toID,
		Relation:      relation,
		Note:          note,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, fmt.Errorf("link %d -> %d: %w", fromID, toID, ErrArticleNotFound)
		}
		return 0, err
	}

	return id, nil
}

func (s *Service) Unlink(ctx context.Context, fromID, toID int64, relation string) error {
	if err := s.links.RemoveLink(ctx, fromID, toID, relation); err != nil {
		return fmt.Errorf("link %d -> %d: %w", fromID, toID, err)
	}
	return nil
}

func (s *Service) Links(ctx context.Context, fromID int64) ([]database.ArticleLink, error) {
	return s.links.GetLinks(ctx, fromID)
}

// ListItems returns every article of the year for the review screen,
// newest first.
func (s *Service) ListItems(ctx context.Context, year int) ([]Item, error) {
	records, err := s.reviews.ListReviewRecords(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list review records: %w", err)
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		category := article.ResolveCategory(rec.UserCategory, rec.LLMCategory)

		item := Item{
			ArticleID:    rec.ArticleID,
			URL:          rec.URL,
			Title:        article.ResolveTitle(rec.UserTitle, rec.Title),
			Date:         rec.PublishedDate,
			Status:       rec.Status,
			Category:     category,
			CategoryName: category.DisplayName(),
			Summary:      article.ResolveSummary(rec.UserSummary, rec.LLMSummary),
			Notes:        rec.UserNotes,
			Edited:       rec.UserTitle != "" || rec.UserCategory != "" || rec.UserSummary != "",
		}
		if date, ok := article.ParseDate(rec.PublishedDate); ok {
			week := article.ISOWeek(date)
			item.Week = &week
		}

		items = append(items, item)
	}

	return items, nil
}

func (e Edit) overrides() database.ReviewOverrides {
	return database.ReviewOverrides{
		Title:    e.Title,
		Category: string(article.CoerceCategory(e.Category)),
		Summary:  e.Summary,
		Notes:    e.Notes,
	}
}

func wrapNotFound(articleID int64, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("article %d: %w", articleID, ErrArticleNotFound)
	}
	return err
}
