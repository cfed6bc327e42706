package database

import (
	"time"

	"github.com/lysyi3m/semi-weekly/app/article"
)

// Article represents an article record in the database
type Article struct {
	ID               int64
	Source           string
	URL              string
	Title            string
	DateRaw          string
	PublishedDate    string // YYYY-MM-DD, empty when the raw date could not be normalized
	Author           string
	Content          string
	ContentFetchedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastSeenAt       time.Time
}

type LLMResult struct {
	ArticleID int64
	Model     string
	BaseURL   string
	Category  string
	Summary   string
	RawJSON   string
	CreatedAt time.Time
}

type Review struct {
	ArticleID    int64
	Status       article.ReviewStatus
	UserTitle    string
	UserCategory string
	UserSummary  string
	UserNotes    string
	ReviewedAt   *time.Time // set on first approval, never cleared
	UpdatedAt    time.Time
}

type ArticleLink struct {
	ID            int64
	FromArticleID int64
	ToArticleID   int64
	Relation      string
	Note          string
	CreatedAt     time.Time
}

// ReviewRecord joins an article with its review and LLM result.
// Fields are raw column values; effective values are resolved by callers.
type ReviewRecord struct {
	ArticleID     int64
	URL           string
	Title         string
	PublishedDate string
	Status        article.ReviewStatus
	UserTitle     string
	UserCategory  string
	UserSummary   string
	UserNotes     string
	LLMCategory   string
	LLMSummary    string
}

// RelatedRecord is the target side of an article link.
type RelatedRecord struct {
	FromArticleID int64
	ToArticleID   int64
	Relation      string
	URL           string
	Title         string
	PublishedDate string
	UserTitle     string
	UserSummary   string
	LLMSummary    string
}
