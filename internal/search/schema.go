package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadMapping reads the index settings+mappings document from path. On first
// run the file does not exist yet: the built-in default is written there and
// reused by every later run. A file that exists but does not parse is a
// configuration error, not something to silently overwrite.
func LoadMapping(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var probe map[string]any
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("mapping file %s is malformed: %w", path, err)
		}
		return raw, nil
	case os.IsNotExist(err):
		raw, err = json.MarshalIndent(defaultMapping(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal default mapping: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create mapping dir: %w", err)
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return nil, fmt.Errorf("write mapping file %s: %w", path, err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("read mapping file %s: %w", path, err)
	}
}

func defaultMapping() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"product_text": map[string]any{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"product_id":  map[string]any{"type": "integer"},
				"external_id": map[string]any{"type": "keyword"},
				"sku":         map[string]any{"type": "keyword"},
				"name":        map[string]any{"type": "text", "analyzer": "product_text"},
				"description": map[string]any{"type": "text", "analyzer": "product_text"},
				"brand_id":    map[string]any{"type": "integer"},
				"brand_name":  map[string]any{"type": "keyword"},
				"series_id":   map[string]any{"type": "integer"},
				"series_name": map[string]any{"type": "keyword"},
				"categories":  map[string]any{"type": "text", "analyzer": "product_text"},
				"category_ids": map[string]any{
					"type": "integer",
				},
				"images": map[string]any{"type": "keyword", "index": false},
				"documents": map[string]any{
					"properties": map[string]any{
						"certificates": map[string]any{"type": "integer"},
						"manuals":      map[string]any{"type": "integer"},
						"drawings":     map[string]any{"type": "integer"},
					},
				},
				"attributes": map[string]any{
					"properties": map[string]any{
						"name":  map[string]any{"type": "keyword"},
						"value": map[string]any{"type": "text"},
						"unit":  map[string]any{"type": "keyword"},
					},
				},
				"numeric_props": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"name":  map[string]any{"type": "keyword"},
						"value": map[string]any{"type": "float"},
						"unit":  map[string]any{"type": "keyword"},
					},
				},
				"unit":             map[string]any{"type": "keyword"},
				"min_sale":         map[string]any{"type": "integer"},
				"weight":           map[string]any{"type": "float"},
				"dimensions":       map[string]any{"type": "keyword"},
				"popularity_score": map[string]any{"type": "float"},
				"total_stock":      map[string]any{"type": "integer"},
				"cities_available": map[string]any{"type": "integer"},
				"has_stock":        map[string]any{"type": "boolean"},
				"has_images":       map[string]any{"type": "boolean"},
				"has_description":  map[string]any{"type": "boolean"},
				"search_text":      map[string]any{"type": "text", "analyzer": "product_text"},
				"suggest":          map[string]any{"type": "completion"},
				"created_at":       map[string]any{"type": "date"},
				"updated_at":       map[string]any{"type": "date"},
			},
		},
	}
}
