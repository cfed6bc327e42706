package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lysyi3m/semi-weekly/app/article"
)

const DefaultRelation = "related"

type LinkRepository struct {
	db *DB
}

func NewLinkRepository(db *DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// AddLink links two existing articles. Re-adding an existing
// (from, to, relation) triple updates its note.
func (r *LinkRepository) AddLink(ctx context.Context, link ArticleLink) (int64, error) {
	if link.FromArticleID == link.ToArticleID {
		return 0, fmt.Errorf("article %d cannot link to itself", link.FromArticleID)
	}

	relation := strings.TrimSpace(link.Relation)
	if relation == "" {
		relation = DefaultRelation
	}

	var id int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, articleID := range []int64{link.FromArticleID, link.ToArticleID} {
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles WHERE id = ?", articleID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to look up article %d: %w", articleID, err)
			}
			if exists == 0 {
				return fmt.Errorf("article %d: %w", articleID, ErrNotFound)
			}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO article_links (from_article_id, to_article_id, relation, note, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (from_article_id, to_article_id, relation) DO UPDATE SET note = excluded.note
			RETURNING id
		`, link.FromArticleID, link.ToArticleID, relation, nullString(strings.TrimSpace(link.Note)),
			formatTime(time.Now())).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to add link: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *LinkRepository) RemoveLink(ctx context.Context, fromID, toID int64, relation string) error {
	relation = strings.TrimSpace(relation)
	if relation == "" {
		relation = DefaultRelation
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM article_links
			WHERE from_article_id = ? AND to_article_id = ? AND relation = ?
		`, fromID, toID, relation)
		if err != nil {
			return fmt.Errorf("failed to remove link: %w", err)
		}
		return requireAffected(res)
	})
}

func (r *LinkRepository) GetLinks(ctx context.Context, fromID int64) ([]ArticleLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, from_article_id, to_article_id, relation, COALESCE(note, ''), created_at
		FROM article_links
		WHERE from_article_id = ?
		ORDER BY id
	`, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}
	defer rows.Close()

	var links []ArticleLink
	for rows.Next() {
		var link ArticleLink
		var createdAt sql.NullString
		if err := rows.Scan(&link.ID, &link.FromArticleID, &link.ToArticleID, &link.Relation, &link.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan link row: %w", err)
		}
		if t := parseTime(createdAt); t != nil {
			link.CreatedAt = *t
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link rows: %w", err)
	}

	return links, nil
}

// GetRelatedRecords returns link targets for every link whose source article
// is dated within year, newest target first.
func (r *LinkRepository) GetRelatedRecords(ctx context.Context, year int) ([]RelatedRecord, error) {
	start, end := article.YearBounds(year)

	sqlStr, args, err := sq.Select(
		"al.from_article_id",
		"a_to.id",
		"al.relation",
		"a_to.url",
		"a_to.title",
		"COALESCE(a_to.published_date, '')",
		"COALESCE(r.user_title, '')",
		"COALESCE(r.user_summary, '')",
		"COALESCE(l.summary, '')",
	).
		From("article_links al").
		Join("articles a_from ON a_from.id = al.from_article_id").
		Join("articles a_to ON a_to.id = al.to_article_id").
		LeftJoin("reviews r ON r.article_id = a_to.id").
		LeftJoin("llm_results l ON l.article_id = a_to.id").
		Where(sq.GtOrEq{"a_from.published_date": start}).
		Where(sq.Lt{"a_from.published_date": end}).
		OrderBy("a_to.published_date DESC", "a_to.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query related records: %w", err)
	}
	defer rows.Close()

	var records []RelatedRecord
	for rows.Next() {
		var rec RelatedRecord
		err := rows.Scan(
			&rec.FromArticleID, &rec.ToArticleID, &rec.Relation, &rec.URL, &rec.Title,
			&rec.PublishedDate, &rec.UserTitle, &rec.UserSummary, &rec.LLMSummary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan related record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating related records: %w", err)
	}

	return records, nil
}
