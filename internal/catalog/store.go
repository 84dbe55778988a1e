package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velmart/catalog-search/internal/models"
)

// Store reads the authoritative product catalog from Postgres.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects to the catalog database and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to catalog: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{pool: pool, log: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Stats summarizes the catalog before a rebuild.
type Stats struct {
	Products      int
	Brands        int
	Series        int
	CategoryLinks int
}

// Analyze collects pre-run catalog statistics.
func (s *Store) Analyze(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM products", &st.Products},
		{"SELECT COUNT(DISTINCT brand_id) FROM products WHERE brand_id IS NOT NULL", &st.Brands},
		{"SELECT COUNT(DISTINCT series_id) FROM products WHERE series_id IS NOT NULL", &st.Series},
		{"SELECT COUNT(*) FROM product_categories", &st.CategoryLinks},
	}
	for _, q := range queries {
		if err := s.pool.QueryRow(ctx, q.sql).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("analyze catalog: %w", err)
		}
	}
	return st, nil
}

// CountProducts returns the total number of products to index.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

const fetchBatchSQL = `
SELECT
	p.product_id,
	COALESCE(p.external_id, ''),
	COALESCE(p.sku, ''),
	COALESCE(p.name, ''),
	COALESCE(p.description, ''),
	COALESCE(p.unit, ''),
	p.min_sale,
	p.weight,
	COALESCE(p.dimensions, ''),
	p.brand_id,
	p.series_id,
	COALESCE(b.name, ''),
	COALESCE(s.name, ''),
	COALESCE(p.created_at::text, ''),
	COALESCE(p.updated_at::text, '')
FROM products p
LEFT JOIN brands b ON p.brand_id = b.brand_id
LEFT JOIN series s ON p.series_id = s.series_id
ORDER BY p.product_id
LIMIT $1 OFFSET $2
`

// FetchBatch reads one page of raw products ordered by primary key. The
// order is deterministic against an unchanging catalog, so a run can resume
// at any offset. An empty slice signals exhaustion.
func (s *Store) FetchBatch(ctx context.Context, offset, limit int) ([]models.RawProduct, error) {
	rows, err := s.pool.Query(ctx, fetchBatchSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch product batch at offset %d: %w", offset, err)
	}
	defer rows.Close()

	var out []models.RawProduct
	for rows.Next() {
		var p models.RawProduct
		if err := rows.Scan(
			&p.ProductID, &p.ExternalID, &p.SKU, &p.Name, &p.Description,
			&p.Unit, &p.MinSale, &p.Weight, &p.Dimensions,
			&p.BrandID, &p.SeriesID, &p.BrandName, &p.SeriesName,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product batch: %w", err)
	}

	return out, nil
}
