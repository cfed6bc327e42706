package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func Title(year int) string {
	return fmt.Sprintf("%d 半导体产业周报", year)
}

// Run renders the report as a standalone HTML document.
func (g *Generator) Run(report *Report) (string, error) {
	var buf bytes.Buffer
	if err := g.Write(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (g *Generator) Write(w io.Writer, report *Report) error {
	data := struct {
		Title  string
		Report *Report
	}{
		Title:  Title(report.Year),
		Report: report,
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteFile renders the report to path, creating parent directories.
func (g *Generator) WriteFile(path string, report *Report) error {
	html, err := g.Run(report)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
