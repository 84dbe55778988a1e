package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velmart/catalog-search/internal/catalog"
	"github.com/velmart/catalog-search/internal/config"
	"github.com/velmart/catalog-search/internal/document"
	"github.com/velmart/catalog-search/internal/logger"
	"github.com/velmart/catalog-search/internal/notify"
	"github.com/velmart/catalog-search/internal/pipeline"
	"github.com/velmart/catalog-search/internal/search"
)

func main() {
	log := logger.New("indexer")
	cfg, err := config.LoadIndexer()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := catalog.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("connect catalog", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	esClient, err := search.New(cfg.ElasticsearchAddr, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = esClient.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Error("elasticsearch unreachable", slog.Any("err", err))
		os.Exit(1)
	}

	if stats, err := store.Analyze(ctx); err != nil {
		log.Warn("catalog analysis failed", slog.Any("err", err))
	} else {
		log.Info("catalog state",
			slog.Int("products", stats.Products),
			slog.Int("brands", stats.Brands),
			slog.Int("series", stats.Series),
			slog.Int("category_links", stats.CategoryLinks),
		)
	}

	lifecycle := search.NewLifecycle(esClient, log, cfg.IndexAlias, cfg.IndexPrefix, cfg.MappingPath, cfg.KeepGenerations)
	p := pipeline.New(log, store, store, document.NewBuilder(), esClient, lifecycle, cfg.IndexAlias, cfg.BatchSize)

	report, err := p.Run(ctx)
	if err != nil {
		log.Error("rebuild failed", slog.Any("err", err))
		os.Exit(1)
	}

	publisher := notify.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer publisher.Close()

	pubCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := publisher.Publish(pubCtx, report.Generation, report); err != nil {
		log.Warn("publish rebuild event", slog.Any("err", err))
	}
}
