// Command murmurd serves generated comment pages over HTTP so that murmur
// can be pointed at a real network source (feed.source: http).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mmcdole/murmur/internal/adapter"
	"github.com/mmcdole/murmur/internal/feed"
	"github.com/mmcdole/murmur/internal/metrics"
)

func main() {
	var (
		configPath string
		listen     string
		total      int
		latency    time.Duration
		failEvery  int
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&listen, "listen", "", "http listen address (overrides server.listen)")
	flag.IntVar(&total, "total", -1, "comments available, 0 = unbounded (overrides feed.total)")
	flag.DurationVar(&latency, "latency", -1, "simulated delay per page (overrides feed.latency)")
	flag.IntVar(&failEvery, "fail-every", -1, "fail every Nth request (overrides feed.fail_every)")
	flag.Parse()

	cfg, err := adapter.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if total >= 0 {
		cfg.Feed.Total = total
	}
	if latency >= 0 {
		cfg.Feed.Latency = latency
	}
	if failEvery >= 0 {
		cfg.Feed.FailEvery = failEvery
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: adapter.ParseLogLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("murmurd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *adapter.Config, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	gen := feed.NewGenerator(cfg.Feed.Total, cfg.Feed.Latency)
	gen.FailEvery = cfg.Feed.FailEvery

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           feed.NewServer(gen, metrics.NewRecorder(true), logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("murmurd listening", "addr", cfg.Server.Listen,
			"total", cfg.Feed.Total, "latency", cfg.Feed.Latency)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
