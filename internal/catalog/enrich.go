package catalog

import (
	"context"
	"log/slog"

	"github.com/velmart/catalog-search/internal/models"
)

// enrichment holds the per-aspect lookups for a batch, keyed by product ID.
type enrichment struct {
	categories map[int][]models.Category
	images     map[int][]string
	attributes map[int][]models.Attribute
	documents  map[int]models.DocumentCounts
	popularity map[int]float64
	stock      map[int]int
	cities     map[int][]int
}

// EnrichBatch completes raw records with categories, images, attributes,
// document counts, popularity and stock. Each aspect is fetched with a
// single query for the whole batch; a failed aspect degrades to its empty
// default for these records instead of aborting the run.
func (s *Store) EnrichBatch(ctx context.Context, raws []models.RawProduct) []models.Product {
	if len(raws) == 0 {
		return nil
	}

	ids := make([]int, 0, len(raws))
	for _, r := range raws {
		ids = append(ids, r.ProductID)
	}

	aux := enrichment{
		categories: s.fetchCategories(ctx, ids),
		images:     s.fetchImages(ctx, ids),
		attributes: s.fetchAttributes(ctx, ids),
		documents:  s.fetchDocumentCounts(ctx, ids),
		popularity: s.fetchPopularity(ctx, ids),
		stock:      s.fetchStockTotals(ctx, ids),
		cities:     s.fetchCitiesWithStock(ctx, ids),
	}

	return mergeBatch(raws, aux)
}

// mergeBatch joins raw records with their enrichment aspects. Missing keys
// fall back to zero values; the stock total is clamped at zero.
func mergeBatch(raws []models.RawProduct, aux enrichment) []models.Product {
	out := make([]models.Product, 0, len(raws))
	for _, raw := range raws {
		stock := aux.stock[raw.ProductID]
		if stock < 0 {
			stock = 0
		}
		out = append(out, models.Product{
			RawProduct:      raw,
			Categories:      aux.categories[raw.ProductID],
			Images:          aux.images[raw.ProductID],
			Attributes:      aux.attributes[raw.ProductID],
			Documents:       aux.documents[raw.ProductID],
			PopularityScore: aux.popularity[raw.ProductID],
			TotalStock:      stock,
			CitiesAvailable: aux.cities[raw.ProductID],
		})
	}
	return out
}

// bucketDocumentCounts maps raw document type rows into the three fixed
// buckets; unrecognized types are dropped.
func bucketDocumentCounts(rows []documentTypeCount) map[int]models.DocumentCounts {
	out := make(map[int]models.DocumentCounts)
	for _, row := range rows {
		counts := out[row.ProductID]
		switch row.Type {
		case "certificate":
			counts.Certificates += row.Count
		case "manual":
			counts.Manuals += row.Count
		case "drawing":
			counts.Drawings += row.Count
		default:
			continue
		}
		out[row.ProductID] = counts
	}
	return out
}

type documentTypeCount struct {
	ProductID int
	Type      string
	Count     int
}

func (s *Store) fetchCategories(ctx context.Context, ids []int) map[int][]models.Category {
	const q = `
		SELECT pc.product_id, c.category_id, c.name
		FROM product_categories pc
		JOIN categories c ON pc.category_id = c.category_id
		WHERE pc.product_id = ANY($1)
		ORDER BY pc.product_id, c.category_id`

	out := make(map[int][]models.Category)
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		s.logDegraded("categories", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var productID int
		var c models.Category
		if err := rows.Scan(&productID, &c.ID, &c.Name); err != nil {
			s.logDegraded("categories", err)
			return map[int][]models.Category{}
		}
		out[productID] = append(out[productID], c)
	}
	if err := rows.Err(); err != nil {
		s.logDegraded("categories", err)
		return map[int][]models.Category{}
	}
	return out
}

func (s *Store) fetchImages(ctx context.Context, ids []int) map[int][]string {
	// Primary image first, then ascending sort order.
	const q = `
		SELECT product_id, url
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_id, is_main DESC, sort_order ASC`

	out := make(map[int][]string)
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		s.logDegraded("images", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var productID int
		var url string
		if err := rows.Scan(&productID, &url); err != nil {
			s.logDegraded("images", err)
			return map[int][]string{}
		}
		out[productID] = append(out[productID], url)
	}
	if err := rows.Err(); err != nil {
		s.logDegraded("images", err)
		return map[int][]string{}
	}
	return out
}

func (s *Store) fetchAttributes(ctx context.Context, ids []int) map[int][]models.Attribute {
	const q = `
		SELECT product_id, name, COALESCE(value, ''), COALESCE(unit, '')
		FROM product_attributes
		WHERE product_id = ANY($1)
		ORDER BY product_id, sort_order`

	out := make(map[int][]models.Attribute)
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		s.logDegraded("attributes", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var productID int
		var a models.Attribute
		if err := rows.Scan(&productID, &a.Name, &a.Value, &a.Unit); err != nil {
			s.logDegraded("attributes", err)
			return map[int][]models.Attribute{}
		}
		out[productID] = append(out[productID], a)
	}
	if err := rows.Err(); err != nil {
		s.logDegraded("attributes", err)
		return map[int][]models.Attribute{}
	}
	return out
}

func (s *Store) fetchDocumentCounts(ctx context.Context, ids []int) map[int]models.DocumentCounts {
	const q = `
		SELECT product_id, type, COUNT(*)
		FROM product_documents
		WHERE product_id = ANY($1)
		GROUP BY product_id, type`

	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		s.logDegraded("documents", err)
		return map[int]models.DocumentCounts{}
	}
	defer rows.Close()

	var counts []documentTypeCount
	for rows.Next() {
		var row documentTypeCount
		if err := rows.Scan(&row.ProductID, &row.Type, &row.Count); err != nil {
			s.logDegraded("documents", err)
			return map[int]models.DocumentCounts{}
		}
		counts = append(counts, row)
	}
	if err := rows.Err(); err != nil {
		s.logDegraded("documents", err)
		return map[int]models.DocumentCounts{}
	}
	return bucketDocumentCounts(counts)
}

func (s *Store) fetchPopularity(ctx context.Context, ids []int) map[int]float64 {
	const q = `
		SELECT product_id, popularity_score
		FROM product_metrics
		WHERE product_id = ANY($1)`

	out := make(map[int]float64)
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		s.logDegraded("popularity", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var productID int
		var score float64
		if err := rows.Scan(&productID, &score); err != nil {
			s.logDegraded("popularity", err)
			return map[int]float64{}
		}
		out[productID] = score
	}
	if err := rows.Err(); err != nil {
		s.logDegraded("popularity", err)
		return map[int]float64{}
	}
	return out
}

func (s *Store) fetchStockTotals(ctx context.Context, ids []int) map[int]int {
	const q = `
		SELECT product_id, COALESCE(SUM(quantity - reserved), 0)
		FROM stock_balances
		WHERE product_id = ANY($1) AND quantity > reserved
		GROUP BY product_id`

	out := make(map[int]int)
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		s.logDegraded("stock", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var productID, total int
		if err := rows.Scan(&productID, &total); err != nil {
			s.logDegraded("stock", err)
			return map[int]int{}
		}
		out[productID] = total
	}
	if err := rows.Err(); err != nil {
		s.logDegraded("stock", err)
		return map[int]int{}
	}
	return out
}

func (s *Store) fetchCitiesWithStock(ctx context.Context, ids []int) map[int][]int {
	const q = `
		SELECT DISTINCT sb.product_id, c.city_id
		FROM stock_balances sb
		JOIN city_warehouse_mapping cwm ON sb.warehouse_id = cwm.warehouse_id
		JOIN cities c ON cwm.city_id = c.city_id
		WHERE sb.product_id = ANY($1) AND sb.quantity > sb.reserved
		ORDER BY sb.product_id, c.city_id`

	out := make(map[int][]int)
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		s.logDegraded("cities", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var productID, cityID int
		if err := rows.Scan(&productID, &cityID); err != nil {
			s.logDegraded("cities", err)
			return map[int][]int{}
		}
		out[productID] = append(out[productID], cityID)
	}
	if err := rows.Err(); err != nil {
		s.logDegraded("cities", err)
		return map[int][]int{}
	}
	return out
}

func (s *Store) logDegraded(aspect string, err error) {
	s.log.Warn("enrichment lookup failed, field degraded to default",
		slog.String("aspect", aspect),
		slog.Any("err", err),
	)
}
