package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/velmart/catalog-search/internal/models"
)

// Client wraps go-elasticsearch with the index-rebuild helpers this project
// needs: generation creation, bulk writes, alias swaps and pruning.
type Client struct {
	es  *elasticsearch.Client
	log *slog.Logger
}

// BulkStats tallies the outcome of one bulk submission.
type BulkStats struct {
	Indexed int
	Failed  int
}

// New instantiates the search engine client.
func New(addr string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, log: logger}, nil
}

// Ping checks the engine is reachable.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// CreateIndex creates a new index generation from the given mapping body.
func (c *Client) CreateIndex(ctx context.Context, name string, mapping []byte) error {
	req := esapi.IndicesCreateRequest{
		Index: name,
		Body:  bytes.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create index %s failed: %s", name, strings.TrimSpace(string(body)))
	}

	return nil
}

// DeleteIndex removes an index generation.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	req := esapi.IndicesDeleteRequest{Index: []string{name}}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete index %s failed: %s", name, strings.TrimSpace(string(body)))
	}

	return nil
}

// BulkIndex submits the documents in one bulk request against the target
// index, keyed by product ID. Per-item rejections are logged with their ID
// and engine-reported reason; accepted items in the same request still
// count as indexed.
func (c *Client) BulkIndex(ctx context.Context, index string, docs []models.IndexDocument) (BulkStats, error) {
	if len(docs) == 0 {
		return BulkStats{}, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":"%d"}}`, index, doc.ID)
		buf.WriteString(meta)
		buf.WriteByte('\n')

		payload, err := json.Marshal(doc.Fields)
		if err != nil {
			return BulkStats{}, fmt.Errorf("marshal doc %d: %w", doc.ID, err)
		}
		buf.Write(payload)
		buf.WriteByte('\n')
	}

	req := esapi.BulkRequest{Body: &buf}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return BulkStats{}, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return BulkStats{}, fmt.Errorf("bulk request failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return BulkStats{}, fmt.Errorf("decode bulk response: %w", err)
	}

	stats := BulkStats{}
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Error != nil || result.Status >= 300 {
				stats.Failed++
				reason := ""
				if result.Error != nil {
					reason = result.Error.Type + ": " + result.Error.Reason
				}
				c.log.Error("bulk item rejected",
					slog.String("id", result.ID),
					slog.Int("status", result.Status),
					slog.String("reason", reason),
				)
			} else {
				stats.Indexed++
			}
		}
	}

	return stats, nil
}

// AliasIndices returns the indices currently holding the alias. A missing
// alias yields an empty list (first run).
func (c *Client) AliasIndices(ctx context.Context, alias string) ([]string, error) {
	req := esapi.IndicesGetAliasRequest{Name: []string{alias}}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("get alias %s: %w", alias, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get alias %s failed: %s", alias, strings.TrimSpace(string(body)))
	}

	var parsed map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode alias response: %w", err)
	}

	indices := make([]string, 0, len(parsed))
	for index := range parsed {
		indices = append(indices, index)
	}
	sort.Strings(indices)
	return indices, nil
}

// SwapAlias atomically moves the alias to the new index: every remove and
// the final add travel in one _aliases request, so no intermediate state is
// observable. An unacknowledged response is treated as failure.
func (c *Client) SwapAlias(ctx context.Context, alias, newIndex string) error {
	current, err := c.AliasIndices(ctx, alias)
	if err != nil {
		return err
	}

	type aliasTarget struct {
		Index string `json:"index"`
		Alias string `json:"alias"`
	}
	actions := make([]map[string]aliasTarget, 0, len(current)+1)
	for _, index := range current {
		actions = append(actions, map[string]aliasTarget{"remove": {Index: index, Alias: alias}})
	}
	actions = append(actions, map[string]aliasTarget{"add": {Index: newIndex, Alias: alias}})

	payload, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("marshal alias actions: %w", err)
	}

	req := esapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(payload)}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("update aliases: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("update aliases failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode alias response: %w", err)
	}
	if !parsed.Acknowledged {
		return fmt.Errorf("alias update for %s not acknowledged", alias)
	}

	return nil
}

// ListIndices returns all index names matching the pattern, newest first by
// lexical order (generation names embed a sortable timestamp).
func (c *Client) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	req := esapi.IndicesGetRequest{Index: []string{pattern}}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("list indices %s: %w", pattern, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("list indices %s failed: %s", pattern, strings.TrimSpace(string(body)))
	}

	var parsed map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode indices response: %w", err)
	}

	names := make([]string, 0, len(parsed))
	for name := range parsed {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
