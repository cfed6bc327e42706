package report

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/lysyi3m/semi-weekly/app/database"
)

// Record is a reviewed article with its effective values already resolved.
type Record struct {
	ArticleID int64
	Date      string
	Title     string
	Category  string
	Summary   string
	URL       string
}

type Related struct {
	ArticleID int64
	URL       string
	Date      string
	Week      *int // nil when the related article has no usable date
	Title     string
	Summary   string
}

type Item struct {
	ArticleID int64
	Title     string
	URL       string
	Date      string
	Summary   string
	Related   []Related
}

type Week struct {
	Week  int
	Items []Item
}

type CategoryGroup struct {
	Category article.Category
	Weeks    []Week
}

type Report struct {
	Year       int
	Total      int
	Categories []CategoryGroup
}

type ReviewedSource interface {
	GetReviewedRecords(ctx context.Context, year int) ([]database.ReviewRecord, error)
}

type RelatedSource interface {
	GetRelatedRecords(ctx context.Context, year int) ([]database.RelatedRecord, error)
}

// Builder loads approved records from the store and groups them for a year.
type Builder struct {
	reviews ReviewedSource
	links   RelatedSource
}

func NewBuilder(reviews ReviewedSource, links RelatedSource) *Builder {
	return &Builder{reviews: reviews, links: links}
}

func (b *Builder) Build(ctx context.Context, year int) (*Report, error) {
	reviewed, err := b.reviews.GetReviewedRecords(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviewed records: %w", err)
	}

	links, err := b.links.GetRelatedRecords(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load related records: %w", err)
	}

	report := BuildIndex(RecordsFromReviews(reviewed), RelatedFromLinks(links), year)

	slog.Debug("Report built", "year", year, "total", report.Total, "categories", len(report.Categories))

	return report, nil
}

// RecordsFromReviews resolves effective values for approved review rows.
// Rows that are not reviewed are skipped.
func RecordsFromReviews(rows []database.ReviewRecord) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if row.Status != article.ReviewStatusReviewed {
			continue
		}
		records = append(records, Record{
			ArticleID: row.ArticleID,
			Date:      row.PublishedDate,
			Title:     article.ResolveTitle(row.UserTitle, row.Title),
			Category:  string(article.ResolveCategory(row.UserCategory, row.LLMCategory)),
			Summary:   article.ResolveSummary(row.UserSummary, row.LLMSummary),
			URL:       row.URL,
		})
	}
	return records
}

// RelatedFromLinks groups link targets by source article, keeping the
// store's newest-first order. Targets with neither summary nor title are dropped.
func RelatedFromLinks(rows []database.RelatedRecord) map[int64][]Related {
	related := make(map[int64][]Related)
	for _, row := range rows {
		entry := Related{
			ArticleID: row.ToArticleID,
			URL:       strings.TrimSpace(row.URL),
			Date:      row.PublishedDate,
			Title:     article.ResolveTitle(row.UserTitle, row.Title),
			Summary:   article.ResolveSummary(row.UserSummary, row.LLMSummary),
		}
		if entry.Title == "" && entry.Summary == "" {
			continue
		}
		if date, ok := article.ParseDate(row.PublishedDate); ok {
			week := article.ISOWeek(date)
			entry.Week = &week
		}
		related[row.FromArticleID] = append(related[row.FromArticleID], entry)
	}
	return related
}

// BuildIndex buckets records of the given year by category and ISO week.
// Records outside the year or without a summary are left out.
func BuildIndex(records []Record, related map[int64][]Related, year int) *Report {
	grouped := make(map[article.Category]map[int][]Item)
	total := 0

	for _, rec := range records {
		date, ok := article.ParseDate(rec.Date)
		if !ok || date.Year() != year {
			continue
		}

		summary := article.NormalizeWhitespace(rec.Summary)
		if summary == "" {
			continue
		}

		category := article.CoerceCategory(rec.Category)
		week := article.ISOWeek(date)

		if grouped[category] == nil {
			grouped[category] = make(map[int][]Item)
		}
		grouped[category][week] = append(grouped[category][week], Item{
			ArticleID: rec.ArticleID,
			Title:     article.NormalizeWhitespace(rec.Title),
			URL:       strings.TrimSpace(rec.URL),
			Date:      date.Format(article.DateLayout),
			Summary:   summary,
			Related:   related[rec.ArticleID],
		})
		total++
	}

	report := &Report{Year: year, Total: total}

	for _, category := range article.Categories {
		weeks, ok := grouped[category]
		if !ok {
			continue
		}

		group := CategoryGroup{Category: category}
		for week, items := range weeks {
			slices.SortFunc(items, func(a, b Item) int {
				return cmp.Or(cmp.Compare(b.Date, a.Date), cmp.Compare(b.ArticleID, a.ArticleID))
			})
			group.Weeks = append(group.Weeks, Week{Week: week, Items: items})
		}
		slices.SortFunc(group.Weeks, func(a, b Week) int {
			return cmp.Compare(b.Week, a.Week)
		})

		report.Categories = append(report.Categories, group)
	}

	return report
}

func (w Week) Badge() string {
	return WeekBadge(w.Week)
}

func (w Week) Label() string {
	return WeekLabel(w.Week)
}

func (r Related) Badge() string {
	if r.Week == nil {
		return "W??"
	}
	return WeekBadge(*r.Week)
}

// Text is what a related entry shows: its summary, else its title.
func (r Related) Text() string {
	if r.Summary != "" {
		return r.Summary
	}
	return r.Title
}
