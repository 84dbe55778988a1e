package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velmart/catalog-search/internal/config"
	"github.com/velmart/catalog-search/internal/logger"
	"github.com/velmart/catalog-search/internal/search"
)

// The sweeper applies the retention window out-of-band: a killed rebuild can
// leave a populated but never-aliased generation behind, and this loop
// deletes it once it ages past the newest keep+1.
func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := search.New(cfg.ElasticsearchAddr, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	// Retry connectivity with capped exponential backoff; the sweeper often
	// starts alongside the cluster.
	retryDelay := 2 * time.Second
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = esClient.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt >= 10 {
			log.Error("elasticsearch unreachable after retries", slog.Any("err", err))
			os.Exit(1)
		}
		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", retryDelay),
		)
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			log.Info("shutdown signal received during startup")
			return
		}
		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}

	log.Info("connected to elasticsearch")

	lifecycle := search.NewLifecycle(esClient, log, cfg.IndexAlias, cfg.IndexPrefix, "", cfg.KeepGenerations)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("generation sweeper running",
		slog.Duration("interval", cfg.Interval),
		slog.String("prefix", cfg.IndexPrefix),
		slog.Int("keep", cfg.KeepGenerations),
	)

	runOnce(ctx, log, lifecycle)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, lifecycle)
		}
	}
}

func runOnce(ctx context.Context, log *slog.Logger, lifecycle *search.Lifecycle) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if deleted := lifecycle.Cleanup(subCtx); deleted > 0 {
		log.Info("sweep completed", slog.Int("deleted", deleted))
	} else {
		log.Debug("sweep completed, nothing to delete")
	}
}
