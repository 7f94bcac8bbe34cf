package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/murmur/internal/adapter"
	"github.com/mmcdole/murmur/internal/domain"
	"github.com/mmcdole/murmur/internal/feed"
	"github.com/mmcdole/murmur/internal/metrics"
	"github.com/mmcdole/murmur/internal/service"
	"github.com/mmcdole/murmur/internal/store"
	"github.com/mmcdole/murmur/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion bool
		configPath  string
		reset       bool
		initConfig  bool
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.BoolVar(&reset, "reset", false, "discard the saved list before starting")
	flag.BoolVar(&initConfig, "init-config", false, "write the default config file and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("murmur %s\n", Version)
		return
	}

	if initConfig {
		path, err := adapter.WriteDefaultConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	if err := run(configPath, reset); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, reset bool) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("murmur needs an interactive terminal")
	}

	cfg, err := adapter.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting murmur", "version", Version, "feed", cfg.FeedID())

	snapshots, err := store.Open(cfg.Cache, cfg.FeedID(), logger)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer snapshots.Close()

	rec := metrics.NewRecorder(true)
	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, rec, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	pager := service.NewPager(newFetcher(cfg, logger), snapshots, cfg.List.PageSize, logger,
		service.WithMetrics(rec))

	if reset {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := pager.Reset(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to reset saved list: %w", err)
		}
		logger.Info("saved list discarded")
	}

	model := tui.NewModel(pager, tui.Options{
		Orientation:  domain.ParseOrientation(cfg.List.Orientation),
		Overscan:     cfg.List.Overscan,
		FetchTimeout: cfg.Feed.Timeout,
		Logger:       logger,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// newFetcher builds the configured comment source
func newFetcher(cfg *adapter.Config, logger *slog.Logger) domain.PageFetcher {
	if cfg.Feed.Source == adapter.FeedSourceHTTP {
		return feed.NewHTTPFetcher(cfg.Feed.URL, cfg.Feed.Timeout, logger)
	}
	gen := feed.NewGenerator(cfg.Feed.Total, cfg.Feed.Latency)
	gen.FailEvery = cfg.Feed.FailEvery
	return gen
}

// serveMetrics exposes rec on addr until the returned server is shut down
func serveMetrics(addr string, rec *metrics.Recorder, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
