package source

import (
	"context"
)

// Item is one article reference found on a list page.
type Item struct {
	Title   string
	URL     string
	DateRaw string

	IsFiltered   bool
	FilterReason string
}

// ArticleContent is what an extractor recovers from an article page.
type ArticleContent struct {
	Title  string
	Author string
	Body   string
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type ListParser interface {
	Run(data []byte) ([]Item, error)
}

type ArticleExtractor interface {
	Run(data []byte) (*ArticleContent, error)
}

// Configuration types

const (
	FormatHTML = "html"
	FormatFeed = "feed"
)

type Config struct {
	Name      string          `yaml:"name"`
	BaseURL   string          `yaml:"base_url"`
	ListURL   string          `yaml:"list_url"`
	PageURL   string          `yaml:"page_url"` // "{page}" is replaced with the page number
	Format    string          `yaml:"format"`
	Selectors ConfigSelectors `yaml:"selectors"`
	Settings  ConfigSettings  `yaml:"settings"`
	Filters   []ConfigFilter  `yaml:"filters"`
}

type ConfigSelectors struct {
	Items   []string `yaml:"items"`
	Link    []string `yaml:"link"`
	Date    []string `yaml:"date"`
	Title   []string `yaml:"title"`
	Author  []string `yaml:"author"`
	Content []string `yaml:"content"`
}

type ConfigSettings struct {
	Timeout  int `yaml:"timeout"`   // seconds
	MaxItems int `yaml:"max_items"` // per discovery pass, 0 means unlimited
	DelayMS  int `yaml:"delay_ms"`  // pause between article fetches
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
