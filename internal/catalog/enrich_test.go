package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/models"
)

func TestMergeBatchJoinsAspects(t *testing.T) {
	raws := []models.RawProduct{
		{ProductID: 1, Name: "Дрель"},
		{ProductID: 2, Name: "Болт"},
	}
	aux := enrichment{
		categories: map[int][]models.Category{1: {{ID: 3, Name: "Инструмент"}}},
		images:     map[int][]string{1: {"a.jpg", "b.jpg"}},
		attributes: map[int][]models.Attribute{2: {{Name: "Длина", Value: "40 мм"}}},
		documents:  map[int]models.DocumentCounts{1: {Certificates: 2}},
		popularity: map[int]float64{1: 4.5},
		stock:      map[int]int{1: 7},
		cities:     map[int][]int{1: {1, 5}},
	}

	got := mergeBatch(raws, aux)
	require.Len(t, got, 2)

	require.Equal(t, "Дрель", got[0].Name)
	require.Equal(t, []models.Category{{ID: 3, Name: "Инструмент"}}, got[0].Categories)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, got[0].Images)
	require.Equal(t, 7, got[0].TotalStock)
	require.Equal(t, 4.5, got[0].PopularityScore)
	require.Equal(t, []int{1, 5}, got[0].CitiesAvailable)

	// Missing aspects degrade to zero values.
	require.Empty(t, got[1].Categories)
	require.Empty(t, got[1].Images)
	require.Equal(t, models.DocumentCounts{}, got[1].Documents)
	require.Equal(t, 0.0, got[1].PopularityScore)
	require.Equal(t, 0, got[1].TotalStock)
	require.Equal(t, []models.Attribute{{Name: "Длина", Value: "40 мм"}}, got[1].Attributes)
}

func TestMergeBatchClampsNegativeStock(t *testing.T) {
	raws := []models.RawProduct{{ProductID: 9}}
	aux := enrichment{stock: map[int]int{9: -3}}

	got := mergeBatch(raws, aux)
	require.Equal(t, 0, got[0].TotalStock)
}

func TestBucketDocumentCounts(t *testing.T) {
	rows := []documentTypeCount{
		{ProductID: 1, Type: "certificate", Count: 2},
		{ProductID: 1, Type: "manual", Count: 1},
		{ProductID: 1, Type: "datasheet", Count: 4}, // unrecognized, dropped
		{ProductID: 2, Type: "drawing", Count: 3},
	}

	got := bucketDocumentCounts(rows)
	require.Equal(t, models.DocumentCounts{Certificates: 2, Manuals: 1}, got[1])
	require.Equal(t, models.DocumentCounts{Drawings: 3}, got[2])
}
