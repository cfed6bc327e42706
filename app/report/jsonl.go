package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type jsonlRecord struct {
	ArticleID *int64 `json:"article_id"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
	SummaryZh string `json:"summary_zh"`
	URL       string `json:"url"`
}

// ReadJSONL reads exported records, one JSON object per line. Malformed
// lines are logged and skipped.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			slog.Warn("Invalid JSONL line", "line", lineNo, "error", err)
			continue
		}

		summary := rec.Summary
		if strings.TrimSpace(summary) == "" {
			summary = rec.SummaryZh
		}

		record := Record{
			Date:     rec.Date,
			Title:    rec.Title,
			Category: rec.Category,
			Summary:  summary,
			URL:      rec.URL,
		}
		if rec.ArticleID != nil {
			record.ArticleID = *rec.ArticleID
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}

	return records, nil
}
