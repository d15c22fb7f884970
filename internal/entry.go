// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/bindrune/internal/apperr"
	"github.com/starford/bindrune/internal/assetcache"
	"github.com/starford/bindrune/internal/bundler"
	"github.com/starford/bindrune/internal/convert"
	"github.com/starford/bindrune/internal/history"
	"github.com/starford/bindrune/internal/mcpserver"
	"github.com/starford/bindrune/internal/preview"
	"github.com/starford/bindrune/internal/roamapi"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// newBuilder wires the fetcher, cache, and output directory into a Builder.
func newBuilder(cfg *Config, logger *slog.Logger) (*bundler.Builder, error) {
	endpoint, err := roamapi.NewEndpoint(cfg.API.Port, cfg.API.Graph)
	if err != nil {
		return nil, err
	}
	client := roamapi.NewClient(endpoint, cfg.API.Token)
	cache := assetcache.New(cfg.Bundle.CacheDir)
	return bundler.New(client, cache, cfg.Bundle.OutputDir, logger), nil
}

// RunBundle executes the bundling pipeline once, or repeatedly in watch
// mode. The run result is journaled when a history path is configured.
func RunBundle(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	if app.source == "" {
		return fmt.Errorf("markdown file is required")
	}

	b, err := newBuilder(cfg, logger)
	if err != nil {
		return err
	}

	if app.watch {
		// Watch mode runs until interrupted; results are not journaled.
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return b.Watch(ctx, app.source)
	}

	var journal *history.DB
	if cfg.History.Path != "" {
		journal, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	res, err := b.Run(ctx, app.source)
	if err != nil {
		return err
	}
	if journal != nil {
		if recErr := journal.Record(res); recErr != nil {
			logger.Warn("failed to journal run", slog.String("error", recErr.Error()))
		}
	}
	return nil
}

// RunConvert rewrites a Roam outline export into standard Markdown. An
// empty outputPath defaults to <stem>_converted.md next to the source.
func RunConvert(_ context.Context, sourcePath, outputPath string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config)

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", apperr.ErrFileNotFound, sourcePath)
		}
		return fmt.Errorf("read source: %w", err)
	}

	if outputPath == "" {
		ext := filepath.Ext(sourcePath)
		outputPath = strings.TrimSuffix(sourcePath, ext) + "_converted.md"
	}

	out := convert.Document(sourcePath, string(data))
	if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("converted",
		slog.String("source", sourcePath),
		slog.String("output", outputPath))
	return nil
}

// RunServe starts the preview HTTP server over the bundle output directory.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	r := preview.NewRouter(cfg.Bundle.OutputDir, cfg.Preview.Auth.AuthEnabled(), cfg.Preview.Auth.Token)
	httpServer := &http.Server{
		Addr:    cfg.Preview.Address(),
		Handler: r,
	}

	logger.Info("preview server starting",
		slog.String("address", cfg.Preview.Address()),
		slog.String("output_dir", cfg.Bundle.OutputDir))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("preview server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("preview server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("preview server stopped")
	return nil
}

// RunHistory prints the most recent bundle runs from the journal.
func RunHistory(_ context.Context, limit int, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	if cfg.History.Path == "" {
		return fmt.Errorf("history is not configured (set history.path or --history)")
	}
	journal, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer journal.Close()

	runs, err := journal.List(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, r := range runs {
		status := fmt.Sprintf("%d/%d resolved", r.Resolved, r.Links)
		if r.NoLinks {
			status = "no links"
		}
		fmt.Printf("%s  %-40s  %s\n", r.StartedAt.Format(time.RFC3339), r.Source, status)
	}
	return nil
}

// RunMCP starts the MCP server on stdio.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// MCP owns stdout for the protocol; log to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	b, err := newBuilder(cfg, logger)
	if err != nil {
		return err
	}
	srv := mcpserver.New(b, cfg.Bundle.OutputDir)
	return srv.ServeStdio()
}
