package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type LLMResultRepository struct {
	db *DB
}

func NewLLMResultRepository(db *DB) *LLMResultRepository {
	return &LLMResultRepository{db: db}
}

func (r *LLMResultRepository) GetLLMResult(ctx context.Context, articleID int64) (*LLMResult, error) {
	var res LLMResult
	var createdAt sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT article_id, model, base_url, category, summary, raw_json, created_at
		FROM llm_results
		WHERE article_id = ?
	`, articleID).Scan(&res.ArticleID, &res.Model, &res.BaseURL, &res.Category, &res.Summary, &res.RawJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get llm result: %w", err)
	}

	if t := parseTime(createdAt); t != nil {
		res.CreatedAt = *t
	}

	return &res, nil
}

// SaveLLMResult creates or replaces the article's LLM result and bumps the
// article's updated timestamp in one transaction.
func (r *LLMResultRepository) SaveLLMResult(ctx context.Context, result LLMResult) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())

		_, err := tx.ExecContext(ctx, `
			INSERT INTO llm_results (article_id, model, base_url, category, summary, raw_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (article_id) DO UPDATE SET
				model = excluded.model,
				base_url = excluded.base_url,
				category = excluded.category,
				summary = excluded.summary,
				raw_json = excluded.raw_json,
				created_at = excluded.created_at
		`, result.ArticleID, result.Model, result.BaseURL, result.Category, result.Summary, result.RawJSON, now)
		if err != nil {
			return fmt.Errorf("failed to save llm result: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "UPDATE articles SET updated_at = ? WHERE id = ?", now, result.ArticleID); err != nil {
			return fmt.Errorf("failed to touch article: %w", err)
		}

		return nil
	})
}
