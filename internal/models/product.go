package models

// RawProduct is one row of the catalog extraction query, joined with its
// brand and series names. Immutable once read.
type RawProduct struct {
	ProductID   int
	ExternalID  string
	SKU         string
	Name        string
	Description string
	Unit        string
	MinSale     *int
	Weight      *float64
	Dimensions  string
	BrandID     *int
	BrandName   string
	SeriesID    *int
	SeriesName  string
	CreatedAt   string
	UpdatedAt   string
}

// Category is one (id, name) pair a product belongs to.
type Category struct {
	ID   int
	Name string
}

// Attribute is a single product characteristic.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// DocumentCounts buckets attached files by recognized type.
type DocumentCounts struct {
	Certificates int `json:"certificates"`
	Manuals      int `json:"manuals"`
	Drawings     int `json:"drawings"`
}

// Product is a RawProduct completed with enrichment lookups.
type Product struct {
	RawProduct

	Categories      []Category
	Images          []string
	Attributes      []Attribute
	Documents       DocumentCounts
	PopularityScore float64
	TotalStock      int
	CitiesAvailable []int
}

// NumericProp is an attribute value parsed into a faceting-friendly number.
type NumericProp struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// SuggestEntry is one weighted completion candidate.
type SuggestEntry struct {
	Input  []string `json:"input"`
	Weight int      `json:"weight"`
}

// IndexDocument is the emission-ready form of a product. Fields holds the
// final document body with empty values already pruned; ID doubles as the
// bulk-request document identifier.
type IndexDocument struct {
	ID     int
	Fields map[string]any
}
