package source

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultTimeout = 20

// DefaultConfig describes the EET-China news list.
func DefaultConfig() *Config {
	return &Config{
		Name:    "EET-China",
		BaseURL: "https://www.eet-china.com",
		ListURL: "https://www.eet-china.com/news/",
		PageURL: "https://www.eet-china.com/news/?page={page}",
		Format:  FormatHTML,
		Selectors: ConfigSelectors{
			Items: []string{
				"div.news-list li",
				"ul.news-list li",
				"div.article-list li",
				"div.news-item",
				"div.article-item",
				"ul.art-l-ul li",
				"li.art-l-li",
				"article",
			},
			Link:    []string{"h4 a[href]", "a.m_title[href]"},
			Date:    []string{"span.date", "div.date", "p.date", "span.time", "div.time", "span.m_newstime"},
			Title:   []string{"h1", "h1.m_title", "h1.title", "div.title h1", ".article-title"},
			Author:  []string{"span.author", "span.m_auth", "p.author", "div.author", "span.m_newsauthor"},
			Content: []string{"div.m_text", "div.article-content", "div.content", "article", "div.article-body", "div#content"},
		},
		Settings: ConfigSettings{
			Timeout: DefaultTimeout,
		},
	}
}

// LoadConfig reads the source YAML at path on top of DefaultConfig.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Source configuration not found, using defaults", "path", path, "source", config.Name)
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Format == "" {
		config.Format = FormatHTML
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = DefaultTimeout
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	slog.Debug("Source configuration loaded", "path", path, "source", config.Name, "format", config.Format)

	return config, nil
}

// PageURLFor returns the list URL of the given 1-based page, or "" when the
// source has no pagination.
func (c *Config) PageURLFor(page int) string {
	if page <= 1 {
		return c.ListURL
	}
	if c.PageURL == "" {
		return ""
	}
	return strings.ReplaceAll(c.PageURL, "{page}", strconv.Itoa(page))
}

// FetchTimeout bounds a single page request.
func (c *Config) FetchTimeout() time.Duration {
	if c.Settings.Timeout <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.Settings.Timeout) * time.Second
}

func validateConfig(config *Config) error {
	requiredFields := map[string]string{
		"source name": config.Name,
		"list URL":    config.ListURL,
	}

	for fieldName, fieldValue := range requiredFields {
		if strings.TrimSpace(fieldValue) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if config.Format != FormatHTML && config.Format != FormatFeed {
		return fmt.Errorf("unsupported format: %s", config.Format)
	}

	if config.Format == FormatHTML && len(config.Selectors.Items) == 0 {
		return fmt.Errorf("item selectors are required for html sources")
	}

	if config.PageURL != "" && !strings.Contains(config.PageURL, "{page}") {
		return fmt.Errorf("page URL must contain {page}")
	}

	nonNegativeFields := map[string]int{
		"timeout":   config.Settings.Timeout,
		"max items": config.Settings.MaxItems,
		"delay":     config.Settings.DelayMS,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	validFields := map[string]bool{
		"title": true,
		"link":  true,
	}

	for i, filter := range config.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
