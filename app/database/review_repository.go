package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lysyi3m/semi-weekly/app/article"
)

type ReviewRepository struct {
	db *DB
}

func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) GetReview(ctx context.Context, articleID int64) (*Review, error) {
	var rev Review
	var status string
	var title, category, summary, notes, reviewedAt, updatedAt sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT article_id, review_status, user_title, user_category, user_summary, user_notes, reviewed_at, updated_at
		FROM reviews
		WHERE article_id = ?
	`, articleID).Scan(&rev.ArticleID, &status, &title, &category, &summary, &notes, &reviewedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	rev.Status = article.ReviewStatus(status)
	rev.UserTitle = title.String
	rev.UserCategory = category.String
	rev.UserSummary = summary.String
	rev.UserNotes = notes.String
	rev.ReviewedAt = parseTime(reviewedAt)
	if t := parseTime(updatedAt); t != nil {
		rev.UpdatedAt = *t
	}

	return &rev, nil
}

// SaveReview overwrites the reviewer overrides without touching the status.
func (r *ReviewRepository) SaveReview(ctx context.Context, articleID int64, overrides ReviewOverrides) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return saveOverrides(ctx, tx, articleID, overrides)
	})
}

// ApproveReview marks the review as reviewed. reviewed_at keeps its first value.
func (r *ReviewRepository) ApproveReview(ctx context.Context, articleID int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return approve(ctx, tx, articleID)
	})
}

func (r *ReviewRepository) SaveAndApproveReview(ctx context.Context, articleID int64, overrides ReviewOverrides) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := saveOverrides(ctx, tx, articleID, overrides); err != nil {
			return err
		}
		return approve(ctx, tx, articleID)
	})
}

// DeleteArticle removes the article, cascading to its review, LLM result and
// links, and puts its URL on the ignore-list.
func (r *ReviewRepository) DeleteArticle(ctx context.Context, articleID int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var url string
		err := tx.QueryRowContext(ctx, "SELECT url FROM articles WHERE id = ?", articleID).Scan(&url)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to look up article: %w", err)
		}

		now := formatTime(time.Now())
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO ignored_urls (url, created_at) VALUES (?, ?)", url, now); err != nil {
			return fmt.Errorf("failed to ignore url: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE id = ?", articleID); err != nil {
			return fmt.Errorf("failed to delete article: %w", err)
		}

		return nil
	})
}

func saveOverrides(ctx context.Context, tx *sql.Tx, articleID int64, o ReviewOverrides) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE reviews
		SET user_title = ?, user_category = ?, user_summary = ?, user_notes = ?, updated_at = ?
		WHERE article_id = ?
	`, nullString(strings.TrimSpace(o.Title)), nullString(strings.TrimSpace(o.Category)),
		nullString(strings.TrimSpace(o.Summary)), nullString(strings.TrimSpace(o.Notes)),
		formatTime(time.Now()), articleID)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	return requireAffected(res)
}

func approve(ctx context.Context, tx *sql.Tx, articleID int64) error {
	var status string
	err := tx.QueryRowContext(ctx, "SELECT review_status FROM reviews WHERE article_id = ?", articleID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read review status: %w", err)
	}

	if current := article.ReviewStatus(status); !current.CanTransition(article.ReviewStatusReviewed) {
		return fmt.Errorf("review %d cannot move from %q to %q: %w", articleID, current, article.ReviewStatusReviewed, ErrInvariant)
	}

	now := formatTime(time.Now())

	res, err := tx.ExecContext(ctx, `
		UPDATE reviews
		SET review_status = ?, reviewed_at = COALESCE(reviewed_at, ?), updated_at = ?
		WHERE article_id = ?
	`, article.ReviewStatusReviewed, now, now, articleID)
	if err != nil {
		return fmt.Errorf("failed to approve review: %w", err)
	}

	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func reviewRecordQuery(year int) sq.SelectBuilder {
	start, end := article.YearBounds(year)

	return sq.Select(
		"a.id",
		"a.url",
		"a.title",
		"COALESCE(a.published_date, '')",
		"r.review_status",
		"COALESCE(r.user_title, '')",
		"COALESCE(r.user_category, '')",
		"COALESCE(r.user_summary, '')",
		"COALESCE(r.user_notes, '')",
		"COALESCE(l.category, '')",
		"COALESCE(l.summary, '')",
	).
		From("reviews r").
		Join("articles a ON a.id = r.article_id").
		LeftJoin("llm_results l ON l.article_id = a.id").
		Where(sq.GtOrEq{"a.published_date": start}).
		Where(sq.Lt{"a.published_date": end}).
		OrderBy("a.published_date DESC", "a.id DESC")
}

func (r *ReviewRepository) queryReviewRecords(ctx context.Context, query sq.SelectBuilder) ([]ReviewRecord, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query review records: %w", err)
	}
	defer rows.Close()

	var records []ReviewRecord
	for rows.Next() {
		var rec ReviewRecord
		var status string
		err := rows.Scan(
			&rec.ArticleID, &rec.URL, &rec.Title, &rec.PublishedDate, &status,
			&rec.UserTitle, &rec.UserCategory, &rec.UserSummary, &rec.UserNotes,
			&rec.LLMCategory, &rec.LLMSummary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review record: %w", err)
		}
		rec.Status = article.ReviewStatus(status)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review records: %w", err)
	}

	return records, nil
}

// ListReviewRecords returns every article of the year regardless of review status
func (r *ReviewRepository) ListReviewRecords(ctx context.Context, year int) ([]ReviewRecord, error) {
	return r.queryReviewRecords(ctx, reviewRecordQuery(year))
}

// GetReviewedRecords returns the approved articles of the year
func (r *ReviewRepository) GetReviewedRecords(ctx context.Context, year int) ([]ReviewRecord, error) {
	query := reviewRecordQuery(year).Where(sq.Eq{"r.review_status": string(article.ReviewStatusReviewed)})
	return r.queryReviewRecords(ctx, query)
}
