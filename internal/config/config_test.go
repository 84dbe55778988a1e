package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/config"
)

func TestLoadIndexerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("INDEX_ALIAS", "")
	t.Setenv("INDEX_PREFIX", "")
	t.Setenv("INDEXER_BATCH_SIZE", "")
	t.Setenv("INDEX_KEEP_GENERATIONS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := config.LoadIndexer()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "products_current", cfg.IndexAlias)
	require.Equal(t, "products", cfg.IndexPrefix)
	require.Equal(t, 1000, cfg.BatchSize)
	require.Equal(t, 2, cfg.KeepGenerations)
	require.Empty(t, cfg.KafkaBrokers)
}

func TestLoadIndexerOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/catalog")
	t.Setenv("INDEX_ALIAS", "goods_live")
	t.Setenv("INDEX_PREFIX", "goods")
	t.Setenv("INDEX_MAPPING_PATH", "/etc/indexer/goods.json")
	t.Setenv("INDEXER_BATCH_SIZE", "250")
	t.Setenv("INDEX_KEEP_GENERATIONS", "4")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "rebuilds")

	cfg, err := config.LoadIndexer()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "postgres://u:p@db:5432/catalog", cfg.DatabaseURL)
	require.Equal(t, "goods_live", cfg.IndexAlias)
	require.Equal(t, "goods", cfg.IndexPrefix)
	require.Equal(t, "/etc/indexer/goods.json", cfg.MappingPath)
	require.Equal(t, 250, cfg.BatchSize)
	require.Equal(t, 4, cfg.KeepGenerations)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "rebuilds", cfg.KafkaTopic)
}

func TestLoadIndexerRejectsBadBatchSize(t *testing.T) {
	t.Setenv("INDEXER_BATCH_SIZE", "-5")

	_, err := config.LoadIndexer()
	require.Error(t, err)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("INDEX_PREFIX", "products")
	t.Setenv("RETENTION_INTERVAL", "12h")
	t.Setenv("INDEX_KEEP_GENERATIONS", "3")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 3, cfg.KeepGenerations)
}

func TestLoadRetentionBadDurationFallsBack(t *testing.T) {
	t.Setenv("RETENTION_INTERVAL", "soon")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.Interval)
}
