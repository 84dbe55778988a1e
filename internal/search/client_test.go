package search_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/models"
	"github.com/velmart/catalog-search/internal/search"
)

// newFakeEngine starts an HTTP server impersonating the search engine and
// returns a client pointed at it.
func newFakeEngine(t *testing.T, handler http.HandlerFunc) *search.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := search.New(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func TestBulkIndexCountsPartialFailures(t *testing.T) {
	var body []byte
	client := newFakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_bulk", r.URL.Path)
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{
			"errors": true,
			"items": [
				{"index": {"_id": "1", "status": 201}},
				{"index": {"_id": "2", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "failed to parse field"}}},
				{"index": {"_id": "3", "status": 201}}
			]
		}`)
	})

	docs := []models.IndexDocument{
		{ID: 1, Fields: map[string]any{"product_id": 1, "name": "Болт"}},
		{ID: 2, Fields: map[string]any{"product_id": 2, "name": "Гайка"}},
		{ID: 3, Fields: map[string]any{"product_id": 3, "name": "Шайба"}},
	}

	stats, err := client.BulkIndex(context.Background(), "products_2024_06_01_12_00_00", docs)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Indexed)
	require.Equal(t, 1, stats.Failed)

	// Alternating action-metadata/document pairs, one pair per document.
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 6)

	var meta struct {
		Index struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &meta))
	require.Equal(t, "products_2024_06_01_12_00_00", meta.Index.Index)
	require.Equal(t, "1", meta.Index.ID)
}

func TestBulkIndexLogsRejectedItems(t *testing.T) {
	var logBuf bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"errors": true, "items": [{"index": {"_id": "17", "status": 400, "error": {"type": "illegal_argument_exception", "reason": "bad value"}}}]}`)
	}))
	defer srv.Close()

	client, err := search.New(srv.URL, slog.New(slog.NewTextHandler(&logBuf, nil)))
	require.NoError(t, err)

	stats, err := client.BulkIndex(context.Background(), "products_x", []models.IndexDocument{
		{ID: 17, Fields: map[string]any{"product_id": 17}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
	require.Contains(t, logBuf.String(), "17")
	require.Contains(t, logBuf.String(), "illegal_argument_exception")
}

func TestBulkIndexEmptyBatch(t *testing.T) {
	client := newFakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty batch")
	})

	stats, err := client.BulkIndex(context.Background(), "products_x", nil)
	require.NoError(t, err)
	require.Equal(t, search.BulkStats{}, stats)
}

func TestSwapAliasSubmitsSingleAtomicRequest(t *testing.T) {
	var actions []map[string]map[string]string
	client := newFakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/_alias/products_current":
			io.WriteString(w, `{"products_2024_05_01_00_00_00": {"aliases": {"products_current": {}}}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/_aliases":
			var payload struct {
				Actions []map[string]map[string]string `json:"actions"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			actions = payload.Actions
			io.WriteString(w, `{"acknowledged": true}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	err := client.SwapAlias(context.Background(), "products_current", "products_2024_06_01_12_00_00")
	require.NoError(t, err)

	require.Len(t, actions, 2)
	require.Equal(t, "products_2024_05_01_00_00_00", actions[0]["remove"]["index"])
	require.Equal(t, "products_current", actions[0]["remove"]["alias"])
	require.Equal(t, "products_2024_06_01_12_00_00", actions[1]["add"]["index"])
}

func TestSwapAliasFirstRun(t *testing.T) {
	var actions []map[string]map[string]string
	client := newFakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/_alias/"):
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error": "alias missing", "status": 404}`)
		case r.Method == http.MethodPost && r.URL.Path == "/_aliases":
			var payload struct {
				Actions []map[string]map[string]string `json:"actions"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			actions = payload.Actions
			io.WriteString(w, `{"acknowledged": true}`)
		}
	})

	require.NoError(t, client.SwapAlias(context.Background(), "products_current", "products_new"))
	require.Len(t, actions, 1)
	require.Equal(t, "products_new", actions[0]["add"]["index"])
}

func TestSwapAliasNotAcknowledged(t *testing.T) {
	client := newFakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_aliases" {
			io.WriteString(w, `{"acknowledged": false}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{}`)
	})

	err := client.SwapAlias(context.Background(), "products_current", "products_new")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not acknowledged")
}

func TestListIndicesNewestFirst(t *testing.T) {
	client := newFakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"products_2024_05_01_00_00_00": {},
			"products_2024_06_01_12_00_00": {},
			"products_2023_12_31_23_59_59": {}
		}`)
	})

	names, err := client.ListIndices(context.Background(), "products_*")
	require.NoError(t, err)
	require.Equal(t, []string{
		"products_2024_06_01_12_00_00",
		"products_2024_05_01_00_00_00",
		"products_2023_12_31_23_59_59",
	}, names)
}

func TestLifecycleCleanupRetainsWindow(t *testing.T) {
	var deleted []string
	client := newFakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/_alias/"):
			io.WriteString(w, `{"products_2024_06_04_00_00_00": {"aliases": {"products_current": {}}}}`)
		case r.Method == http.MethodGet:
			io.WriteString(w, `{
				"products_2024_06_01_00_00_00": {},
				"products_2024_06_02_00_00_00": {},
				"products_2024_06_03_00_00_00": {},
				"products_2024_06_04_00_00_00": {}
			}`)
		case r.Method == http.MethodDelete:
			deleted = append(deleted, strings.TrimPrefix(r.URL.Path, "/"))
			io.WriteString(w, `{"acknowledged": true}`)
		}
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	lc := search.NewLifecycle(client, log, "products_current", "products", t.TempDir()+"/mapping.json", 1)

	n := lc.Cleanup(context.Background())
	require.Equal(t, 2, n)
	require.Equal(t, []string{"products_2024_06_02_00_00_00", "products_2024_06_01_00_00_00"}, deleted)
}

func TestExpired(t *testing.T) {
	names := []string{"d", "c", "b", "a"}

	require.Equal(t, []string{"b", "a"}, search.Expired(names, 1))
	require.Nil(t, search.Expired(names, 3))
	require.Nil(t, search.Expired(nil, 2))
	require.Equal(t, []string{"c", "b", "a"}, search.Expired(names, 0))
}

func TestGenerationName(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 4, 5, 0, time.UTC)
	require.Equal(t, "products_2024_06_01_12_04_05", search.GenerationName("products", ts))

	earlier := search.GenerationName("products", ts.Add(-time.Hour))
	require.Less(t, earlier, search.GenerationName("products", ts))
}

func TestLoadMappingCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings", "products.json")

	raw, err := search.LoadMapping(path)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))
	require.Contains(t, parsed, "settings")
	require.Contains(t, parsed, "mappings")

	// The generated file is reused verbatim on the next run.
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	again, err := search.LoadMapping(path)
	require.NoError(t, err)
	require.Equal(t, onDisk, again)
}

func TestLoadMappingRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := search.LoadMapping(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed")
}
