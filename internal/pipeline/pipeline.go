package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velmart/catalog-search/internal/document"
	"github.com/velmart/catalog-search/internal/models"
	"github.com/velmart/catalog-search/internal/search"
)

// Source yields the catalog in stable, restartable pages.
type Source interface {
	CountProducts(ctx context.Context) (int, error)
	FetchBatch(ctx context.Context, offset, limit int) ([]models.RawProduct, error)
}

// Enricher completes raw records; it degrades instead of failing.
type Enricher interface {
	EnrichBatch(ctx context.Context, raws []models.RawProduct) []models.Product
}

// Indexer submits one batch of documents to the target generation.
type Indexer interface {
	BulkIndex(ctx context.Context, index string, docs []models.IndexDocument) (search.BulkStats, error)
}

// Lifecycle manages index generations around the populate phase.
type Lifecycle interface {
	Begin(ctx context.Context) (string, error)
	Commit(ctx context.Context, generation string) error
	Abort(ctx context.Context, generation string)
	Cleanup(ctx context.Context) int
}

// Report is the user-visible outcome of one rebuild run.
type Report struct {
	RunID      string        `json:"run_id"`
	Generation string        `json:"generation"`
	Alias      string        `json:"alias"`
	Total      int           `json:"total"`
	Indexed    int           `json:"indexed"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration_ns"`
	PerSecond  float64       `json:"per_second"`
}

// Pipeline orchestrates one full index rebuild: extract, enrich, build,
// bulk-submit, swap, clean up. Strictly sequential; all counters are owned
// here.
type Pipeline struct {
	log       *slog.Logger
	source    Source
	enricher  Enricher
	builder   *document.Builder
	indexer   Indexer
	lifecycle Lifecycle

	Alias     string
	BatchSize int
}

// New wires a pipeline from its collaborators.
func New(log *slog.Logger, source Source, enricher Enricher, builder *document.Builder, indexer Indexer, lifecycle Lifecycle, alias string, batchSize int) *Pipeline {
	return &Pipeline{
		log:       log,
		source:    source,
		enricher:  enricher,
		builder:   builder,
		indexer:   indexer,
		lifecycle: lifecycle,
		Alias:     alias,
		BatchSize: batchSize,
	}
}

// Run executes the rebuild. Only connection and schema errors abort the run;
// batch-level and item-level indexing failures are absorbed into the report
// so a rebuild completes even with a degraded fraction of records. On a
// fatal error the new generation is deleted and the previous one stays
// aliased.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Alias: p.Alias}
	log := p.log.With(slog.String("run_id", report.RunID))

	total, err := p.source.CountProducts(ctx)
	if err != nil {
		return report, fmt.Errorf("count products: %w", err)
	}
	report.Total = total

	generation, err := p.lifecycle.Begin(ctx)
	if err != nil {
		return report, fmt.Errorf("begin generation: %w", err)
	}
	report.Generation = generation

	log.Info("indexing started",
		slog.String("index", generation),
		slog.Int("total", total),
		slog.Int("batch_size", p.BatchSize),
	)

	for offset := 0; ; offset += p.BatchSize {
		raws, err := p.source.FetchBatch(ctx, offset, p.BatchSize)
		if err != nil {
			// The source went away mid-run; a partial index must not go live.
			p.lifecycle.Abort(ctx, generation)
			return report, fmt.Errorf("fetch batch at offset %d: %w", offset, err)
		}
		if len(raws) == 0 {
			break
		}

		products := p.enricher.EnrichBatch(ctx, raws)
		docs := make([]models.IndexDocument, 0, len(products))
		for i := range products {
			docs = append(docs, p.builder.Build(&products[i]))
		}

		stats, err := p.indexer.BulkIndex(ctx, generation, docs)
		if err != nil {
			// A transport-level failure loses the whole batch; the run goes on.
			report.Failed += len(docs)
			log.Error("bulk submission failed",
				slog.Int("offset", offset),
				slog.Int("lost", len(docs)),
				slog.Any("err", err),
			)
			continue
		}
		report.Indexed += stats.Indexed
		report.Failed += stats.Failed

		log.Info("batch indexed",
			slog.Int("offset", offset),
			slog.Int("indexed", report.Indexed),
			slog.Int("failed", report.Failed),
			slog.Int("total", total),
		)
	}

	if err := p.lifecycle.Commit(ctx, generation); err != nil {
		p.lifecycle.Abort(ctx, generation)
		return report, fmt.Errorf("swap alias: %w", err)
	}

	p.lifecycle.Cleanup(ctx)

	report.Duration = time.Since(start)
	if secs := report.Duration.Seconds(); secs > 0 {
		report.PerSecond = float64(report.Indexed) / secs
	}

	log.Info("rebuild finished",
		slog.String("index", report.Generation),
		slog.String("alias", report.Alias),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
		slog.Float64("per_second", report.PerSecond),
	)

	return report, nil
}
