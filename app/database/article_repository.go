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

// ArticleRepository handles database operations for articles and the ignore-list
type ArticleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func articleColumns(prefix string) []string {
	return []string{
		prefix + "id",
		prefix + "source",
		prefix + "url",
		prefix + "title",
		"COALESCE(" + prefix + "date_raw, '')",
		"COALESCE(" + prefix + "published_date, '')",
		"COALESCE(" + prefix + "author, '')",
		"COALESCE(" + prefix + "content, '')",
		prefix + "content_fetched_at",
		prefix + "created_at",
		prefix + "updated_at",
		prefix + "last_seen_at",
	}
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	var fetchedAt, createdAt, updatedAt, lastSeenAt sql.NullString

	err := row.Scan(
		&a.ID, &a.Source, &a.URL, &a.Title, &a.DateRaw, &a.PublishedDate,
		&a.Author, &a.Content, &fetchedAt, &createdAt, &updatedAt, &lastSeenAt,
	)
	if err != nil {
		return nil, err
	}

	a.ContentFetchedAt = parseTime(fetchedAt)
	if t := parseTime(createdAt); t != nil {
		a.CreatedAt = *t
	}
	if t := parseTime(updatedAt); t != nil {
		a.UpdatedAt = *t
	}
	if t := parseTime(lastSeenAt); t != nil {
		a.LastSeenAt = *t
	}

	return &a, nil
}

func (r *ArticleRepository) queryArticles(ctx context.Context, query sq.SelectBuilder) ([]Article, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepository) getArticleWhere(ctx context.Context, pred sq.Eq) (*Article, error) {
	sqlStr, args, err := sq.Select(articleColumns("")...).From("articles").Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	a, err := scanArticle(r.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return a, nil
}

func (r *ArticleRepository) GetArticle(ctx context.Context, id int64) (*Article, error) {
	return r.getArticleWhere(ctx, sq.Eq{"id": id})
}

func (r *ArticleRepository) GetArticleByURL(ctx context.Context, url string) (*Article, error) {
	return r.getArticleWhere(ctx, sq.Eq{"url": url})
}

func (r *ArticleRepository) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

// UpsertArticles merges discovered references into the store in a single transaction.
// Existing rows get a fresh title, raw date and timestamps; the normalized date only
// changes when the new raw date normalizes, and content fields are never touched.
func (r *ArticleRepository) UpsertArticles(ctx context.Context, source string, refs []ArticleRef) (UpsertResult, error) {
	var result UpsertResult

	for i, ref := range refs {
		if strings.TrimSpace(ref.URL) == "" {
			return result, fmt.Errorf("article reference %d has no url", i)
		}
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())

		for _, ref := range refs {
			url := strings.TrimSpace(ref.URL)

			var existingID int64
			err := tx.QueryRowContext(ctx, "SELECT id FROM articles WHERE url = ?", url).Scan(&existingID)
			exists := err == nil
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to look up article %s: %w", url, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO articles (source, url, title, date_raw, published_date, created_at, updated_at, last_seen_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (url) DO UPDATE SET
					title = COALESCE(NULLIF(excluded.title, ''), articles.title),
					date_raw = excluded.date_raw,
					published_date = COALESCE(excluded.published_date, articles.published_date),
					updated_at = excluded.updated_at,
					last_seen_at = excluded.last_seen_at
			`, source, url, article.NormalizeWhitespace(ref.Title), nullString(strings.TrimSpace(ref.DateRaw)),
				nullString(article.NormalizeDate(ref.DateRaw)), now, now, now)
			if err != nil {
				return fmt.Errorf("failed to upsert article %s: %w", url, err)
			}

			var articleID int64
			err = tx.QueryRowContext(ctx, "SELECT id FROM articles WHERE url = ?", url).Scan(&articleID)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("article %s missing after upsert: %w", url, ErrInvariant)
			}
			if err != nil {
				return fmt.Errorf("failed to re-read article %s: %w", url, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO reviews (article_id, review_status, updated_at)
				VALUES (?, ?, ?)
			`, articleID, article.ReviewStatusPending, now)
			if err != nil {
				return fmt.Errorf("failed to create review for article %d: %w", articleID, err)
			}

			if exists {
				result.Updated++
			} else {
				result.New++
			}
		}

		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	return result, nil
}

// GetArticlesMissingContent returns articles without body text, newest first
func (r *ArticleRepository) GetArticlesMissingContent(ctx context.Context, limit int) ([]Article, error) {
	query := sq.Select(articleColumns("")...).
		From("articles").
		Where("TRIM(COALESCE(content, '')) = ''").
		OrderBy("published_date DESC", "id DESC").
		Limit(uint64(limit))

	return r.queryArticles(ctx, query)
}

func (r *ArticleRepository) UpdateArticleContent(ctx context.Context, id int64, update ContentUpdate) error {
	now := formatTime(time.Now())

	res, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET title = COALESCE(NULLIF(?, ''), title),
		    author = ?,
		    content = ?,
		    content_fetched_at = ?,
		    updated_at = ?
		WHERE id = ?
	`, article.NormalizeWhitespace(update.Title), nullString(strings.TrimSpace(update.Author)), update.Content, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetArticlesForClassification returns articles with content and no LLM result, newest first
func (r *ArticleRepository) GetArticlesForClassification(ctx context.Context, limit int) ([]Article, error) {
	query := sq.Select(articleColumns("a.")...).
		From("articles a").
		LeftJoin("llm_results l ON l.article_id = a.id").
		Where("TRIM(COALESCE(a.content, '')) <> ''").
		Where(sq.Eq{"l.article_id": nil}).
		OrderBy("a.published_date DESC", "a.id DESC").
		Limit(uint64(limit))

	return r.queryArticles(ctx, query)
}

// FilterIgnored reports which of urls are on the ignore-list
func (r *ArticleRepository) FilterIgnored(ctx context.Context, urls []string) (map[string]bool, error) {
	ignored := make(map[string]bool)
	if len(urls) == 0 {
		return ignored, nil
	}

	sqlStr, args, err := sq.Select("url").From("ignored_urls").Where(sq.Eq{"url": urls}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignored urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan ignored url: %w", err)
		}
		ignored[url] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ignored urls: %w", err)
	}

	return ignored, nil
}
