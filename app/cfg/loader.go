package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

// ErrHelp is returned by Load when usage was printed.
var ErrHelp = errors.New("help requested")

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage and source
	DBPath     string `long:"db-path" env:"DB_PATH" default:"data/semi_weekly.db" description:"SQLite database path"`
	SourceFile string `long:"source-file" env:"SOURCE_FILE" default:"./source.yml" description:"Source configuration YAML (defaults apply when missing)"`

	// LLM configuration
	LLMAPIKey     string        `long:"llm-api-key" env:"LLM_API_KEY" description:"API key of the OpenAI-compatible endpoint"`
	LLMBaseURL    string        `long:"llm-base-url" env:"LLM_BASE_URL" default:"https://dashscope.aliyuncs.com/compatible-mode/v1" description:"Base URL of the OpenAI-compatible endpoint"`
	LLMModel      string        `long:"llm-model" env:"LLM_MODEL" default:"qwen-plus" description:"Chat model name"`
	LLMMaxRetries int           `long:"llm-max-retries" env:"LLM_MAX_RETRIES" default:"3" description:"Retries per chat request after the first attempt"`
	LLMTimeout    time.Duration `long:"llm-timeout" env:"LLM_TIMEOUT" default:"60s" description:"Timeout of a single chat request"`
	ExcerptChars  int           `long:"excerpt-chars" env:"EXCERPT_CHARS" default:"2800" description:"Maximum article excerpt length sent to the model"`

	// Pipeline configuration
	BatchLimit   int           `long:"batch-limit" env:"BATCH_LIMIT" default:"20" description:"Articles per backfill or classification pass"`
	FetchTimeout time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20s" description:"Timeout of a single article fetch"`
	Pages        int           `long:"pages" env:"PAGES" default:"1" description:"List pages to walk per discovery pass"`
	UserAgent    string        `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`

	// Report configuration
	Year   int    `long:"year" env:"REPORT_YEAR" description:"Report and review year (default: current year)"`
	Out    string `long:"out" env:"REPORT_OUT" default:"report.html" description:"Report output path"`
	InPath string `long:"in" env:"REPORT_IN" description:"Render the report from an exported JSONL file instead of the database"`

	// Server configuration
	Port              string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey      string        `long:"api-key" env:"API_KEY" description:"API access key for the review API (optional)"`
	SchedulerInterval time.Duration `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"0" description:"Pipeline interval for serve, 0 disables the scheduler"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" description:"Timezone for dates and weeks (e.g., Asia/Shanghai)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type command struct{}

var commands = []struct {
	name  Command
	short string
	long  string
}{
	{CommandDiscover, "Discover articles", "Walk the source list pages and upsert new article references"},
	{CommandBackfill, "Backfill content", "Fetch body text for stored articles without content"},
	{CommandClassify, "Classify articles", "Ask the language model for a category and summary of unclassified articles"},
	{CommandRun, "Run the pipeline", "Run discover, backfill and classify once, in that order"},
	{CommandReport, "Render the report", "Render the weekly report of approved articles to an HTML file"},
	{CommandServe, "Serve the review API", "Serve the review API and report, optionally running the pipeline on an interval"},
}

// Load parses args and the environment into a Cfg.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	for _, c := range commands {
		if _, err := parser.AddCommand(string(c.name), c.short, c.long, &command{}); err != nil {
			return nil, fmt.Errorf("failed to register command %s: %w", c.name, err)
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, ErrHelp
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourceFile:        raw.SourceFile,
		LLMAPIKey:         raw.LLMAPIKey,
		LLMBaseURL:        raw.LLMBaseURL,
		LLMModel:          raw.LLMModel,
		LLMMaxRetries:     raw.LLMMaxRetries,
		LLMTimeout:        raw.LLMTimeout,
		ExcerptChars:      raw.ExcerptChars,
		BatchLimit:        raw.BatchLimit,
		FetchTimeout:      raw.FetchTimeout,
		Pages:             raw.Pages,
		UserAgent:         raw.UserAgent,
		Year:              raw.Year,
		Out:               raw.Out,
		InPath:            raw.InPath,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		SchedulerInterval: raw.SchedulerInterval,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if parser.Active != nil {
		cfg.Command = Command(parser.Active.Name)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	if cfg.Year == 0 {
		cfg.Year = time.Now().In(time.Local).Year()
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	nonNegative := map[string]int{
		"llm-max-retries": cfg.LLMMaxRetries,
		"excerpt-chars":   cfg.ExcerptChars,
		"batch-limit":     cfg.BatchLimit,
		"pages":           cfg.Pages,
		"year":            cfg.Year,
	}

	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("--%s must be non-negative", name)
		}
	}

	if cfg.SchedulerInterval < 0 {
		return fmt.Errorf("--scheduler-interval must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	time.Local = loc
	slog.Debug("Timezone configured", "timezone", timezone)
	return nil
}
