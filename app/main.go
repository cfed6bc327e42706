package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/semi-weekly/app/api"
	"github.com/lysyi3m/semi-weekly/app/cfg"
	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/llm"
	"github.com/lysyi3m/semi-weekly/app/report"
	"github.com/lysyi3m/semi-weekly/app/review"
	"github.com/lysyi3m/semi-weekly/app/source"
	"github.com/lysyi3m/semi-weekly/app/tasks"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if errors.Is(err, cfg.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(1)
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Command failed", "command", appCfg.Command, "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

type app struct {
	cfg      *cfg.Cfg
	source   *source.Config
	fetcher  *source.HTTPFetcher
	articles *database.ArticleRepository
	reviews  *database.ReviewRepository
	links    *database.LinkRepository
	results  *database.LLMResultRepository
}

func run(appCfg *cfg.Cfg) error {
	// Report rendering from an export needs neither the database nor the source.
	if appCfg.Command == cfg.CommandReport && appCfg.InPath != "" {
		return renderJSONL(appCfg)
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	sourceConfig, err := source.LoadConfig(appCfg.SourceFile)
	if err != nil {
		return fmt.Errorf("failed to load source configuration: %w", err)
	}

	a := &app{
		cfg:      appCfg,
		source:   sourceConfig,
		fetcher:  source.NewHTTPFetcher(&http.Client{}, appCfg.UserAgent, 0),
		articles: database.NewArticleRepository(db),
		reviews:  database.NewReviewRepository(db),
		links:    database.NewLinkRepository(db),
		results:  database.NewLLMResultRepository(db),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch appCfg.Command {
	case cfg.CommandDiscover, cfg.CommandBackfill, cfg.CommandClassify, cfg.CommandRun:
		pipeline, err := a.pipeline()
		if err != nil {
			return err
		}
		return tasks.Run(ctx, pipeline...)
	case cfg.CommandReport:
		return a.renderReport(ctx)
	case cfg.CommandServe:
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown command %q", appCfg.Command)
	}
}

// pipeline returns the tasks of the active command. The run and serve
// commands get all three stages.
func (a *app) pipeline() ([]tasks.TaskInterface, error) {
	discover, err := a.discoverTask()
	if err != nil {
		return nil, err
	}

	backfill := tasks.NewBackfillContentTask(a.source, a.fetcher, source.NewHTMLArticleExtractor(a.source),
		a.articles, a.cfg.BatchLimit, a.cfg.FetchTimeout)

	classify := tasks.NewClassifyArticlesTask(a.source.Name, llm.Config{
		APIKey:  a.cfg.LLMAPIKey,
		BaseURL: a.cfg.LLMBaseURL,
		Model:   a.cfg.LLMModel,
		Timeout: a.cfg.LLMTimeout,
	}, llm.NewRetrier(a.cfg.LLMMaxRetries), a.cfg.ExcerptChars, a.cfg.BatchLimit, a.articles, a.results)

	switch a.cfg.Command {
	case cfg.CommandDiscover:
		return []tasks.TaskInterface{discover}, nil
	case cfg.CommandBackfill:
		return []tasks.TaskInterface{backfill}, nil
	case cfg.CommandClassify:
		return []tasks.TaskInterface{classify}, nil
	default:
		return []tasks.TaskInterface{discover, backfill, classify}, nil
	}
}

func (a *app) discoverTask() (*tasks.DiscoverArticlesTask, error) {
	var parser source.ListParser
	if a.source.Format == source.FormatFeed {
		parser = source.NewFeedListParser()
	} else {
		htmlParser, err := source.NewHTMLListParser(a.source)
		if err != nil {
			return nil, fmt.Errorf("failed to create list parser: %w", err)
		}
		parser = htmlParser
	}

	return tasks.NewDiscoverArticlesTask(a.source, a.fetcher, parser, source.NewFilterer(a.source.Filters), a.articles, a.cfg.Pages), nil
}

func (a *app) renderReport(ctx context.Context) error {
	rep, err := report.NewBuilder(a.reviews, a.links).Build(ctx, a.cfg.Year)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return writeReport(a.cfg.Out, rep)
}

func renderJSONL(appCfg *cfg.Cfg) error {
	f, err := os.Open(appCfg.InPath)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	records, err := report.ReadJSONL(f)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}

	return writeReport(appCfg.Out, report.BuildIndex(records, nil, appCfg.Year))
}

func writeReport(path string, rep *report.Report) error {
	if err := report.NewGenerator().WriteFile(path, rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	slog.Info("Report written", "path", path, "year", rep.Year, "items", rep.Total)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	slog.Info("Starting Semi-Weekly server", "version", a.cfg.Version, "source", a.source.Name)

	if a.cfg.SchedulerInterval > 0 {
		scheduler := tasks.NewScheduler(func() []tasks.TaskInterface {
			pipeline, err := a.pipeline()
			if err != nil {
				slog.Error("Failed to build pipeline", "error", err)
				return nil
			}
			return pipeline
		}, a.cfg.SchedulerInterval, 0)
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		slog.Info("Scheduler disabled", "hint", "set --scheduler-interval to run the pipeline periodically")
	}

	handler := api.NewHandler(review.NewService(a.reviews, a.links), report.NewBuilder(a.reviews, a.links), a.articles, a.cfg.Year)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      api.NewServer(handler, a.cfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", a.cfg.Port, "report", "/report", "api", "/api/items")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
