package document

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/velmart/catalog-search/internal/models"
	"github.com/velmart/catalog-search/internal/textvariant"
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	leadingNum  = regexp.MustCompile(`^([\d.,]+)\s*([а-яА-ЯA-Za-z]*)`)
	tsFormats   = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	suggestRank = []struct {
		field  func(*models.Product) string
		weight int
	}{
		{func(p *models.Product) string { return p.Name }, 100},
		{func(p *models.Product) string { return p.ExternalID }, 95},
		{func(p *models.Product) string { return p.SKU }, 90},
		{func(p *models.Product) string { return p.BrandName }, 70},
	}
)

// Builder assembles index documents from enriched products.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using the wall clock for timestamp fallbacks.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderAt returns a Builder with a fixed clock.
func NewBuilderAt(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build converts an enriched product into its emission-ready document.
// A parse failure for any single field degrades that field to absent;
// Build itself never fails.
func (b *Builder) Build(p *models.Product) models.IndexDocument {
	fields := map[string]any{
		"product_id": p.ProductID,
	}

	setString(fields, "external_id", normalize(p.ExternalID))
	setString(fields, "sku", normalize(p.SKU))
	setString(fields, "name", p.Name)
	setString(fields, "description", normalize(p.Description))

	if p.BrandID != nil {
		fields["brand_id"] = *p.BrandID
	}
	setString(fields, "brand_name", normalize(p.BrandName))
	if p.SeriesID != nil {
		fields["series_id"] = *p.SeriesID
	}
	setString(fields, "series_name", normalize(p.SeriesName))

	if len(p.Categories) > 0 {
		ids := make([]int, 0, len(p.Categories))
		names := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			ids = append(ids, c.ID)
			names = append(names, c.Name)
		}
		fields["category_ids"] = ids
		fields["categories"] = names
	}

	if len(p.Images) > 0 {
		fields["images"] = p.Images
	}
	if p.Documents != (models.DocumentCounts{}) {
		fields["documents"] = p.Documents
	}
	if len(p.Attributes) > 0 {
		fields["attributes"] = p.Attributes
	}
	if props := NumericProps(p.Attributes); len(props) > 0 {
		fields["numeric_props"] = props
	}

	setString(fields, "unit", p.Unit)
	if p.MinSale != nil {
		fields["min_sale"] = *p.MinSale
	}
	if p.Weight != nil {
		fields["weight"] = *p.Weight
	}
	setString(fields, "dimensions", p.Dimensions)

	fields["popularity_score"] = p.PopularityScore
	fields["total_stock"] = p.TotalStock
	if len(p.CitiesAvailable) > 0 {
		fields["cities_available"] = p.CitiesAvailable
	}
	fields["has_stock"] = p.TotalStock > 0
	fields["has_images"] = len(p.Images) > 0
	fields["has_description"] = p.Description != ""

	setString(fields, "search_text", b.searchText(p))
	if suggest := suggestEntries(p); len(suggest) > 0 {
		fields["suggest"] = suggest
	}

	fields["created_at"] = b.normalizeTime(p.CreatedAt)
	fields["updated_at"] = b.normalizeTime(p.UpdatedAt)

	return models.IndexDocument{ID: p.ProductID, Fields: fields}
}

// NumericProps extracts faceting numbers from attribute values. Only values
// that textually begin with a decimal number (comma or dot separator)
// produce an entry; the unit comes from the value when present, otherwise
// from the attribute itself.
func NumericProps(attrs []models.Attribute) []models.NumericProp {
	var props []models.NumericProp
	for _, attr := range attrs {
		m := leadingNum.FindStringSubmatch(attr.Value)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		unit := m[2]
		if unit == "" {
			unit = attr.Unit
		}
		props = append(props, models.NumericProp{Name: attr.Name, Value: value, Unit: unit})
	}
	return props
}

func (b *Builder) searchText(p *models.Product) string {
	parts := []string{p.Name, p.ExternalID, p.SKU, p.BrandName, p.SeriesName, p.Description}
	for _, c := range p.Categories {
		parts = append(parts, c.Name)
	}
	for _, attr := range p.Attributes {
		parts = append(parts, attr.Value)
	}

	if p.Name != "" {
		parts = append(parts, textvariant.Variants(p.Name)...)
	}
	if p.ExternalID != "" {
		parts = append(parts, textvariant.Variants(p.ExternalID)...)
	}

	nonEmpty := parts[:0]
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return normalize(strings.Join(nonEmpty, " "))
}

func suggestEntries(p *models.Product) []models.SuggestEntry {
	var entries []models.SuggestEntry
	for _, s := range suggestRank {
		if v := s.field(p); v != "" {
			entries = append(entries, models.SuggestEntry{Input: []string{v}, Weight: s.weight})
		}
	}
	return entries
}

func (b *Builder) normalizeTime(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, f := range tsFormats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
	}
	// Missing or unparseable source timestamps fall back to processing time.
	return b.now().UTC().Format(time.RFC3339)
}

func normalize(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

func setString(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
