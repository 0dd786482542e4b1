package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/resolver/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{
		DataPath: t.TempDir(),
		Logger:   nil,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func testDocs() []*SearchDocument {
	return []*SearchDocument{
		{
			ID:           "gold-aaa111bbb222",
			Manufacturer: "3M",
			PartNumber:   "COMMANDSTRIP17206",
			Title:        "Command Large Picture Hanging Strips",
			Description:  "Damage-free hanging strips for frames up to 16 pounds",
			UNSPSC:       "31201600",
			GTIN:         "00051141358573",
			SourceKeys:   []string{"acme-supply", "mro-direct"},
			Size:         3,
			CreatedAt:    time.Now().UnixMilli(),
		},
		{
			ID:           "gold-ccc333ddd444",
			Manufacturer: "BOSCH",
			PartNumber:   "GBH226",
			Title:        "Bosch Rotary Hammer Drill",
			Description:  "SDS-plus rotary hammer with vibration control",
			UNSPSC:       "27112700",
			SourceKeys:   []string{"acme-supply"},
			Size:         2,
			CreatedAt:    time.Now().UnixMilli(),
		},
		{
			ID:           "gold-eee555fff666",
			Manufacturer: "BOSCH",
			PartNumber:   "GSR18V",
			Title:        "Bosch Cordless Drill Driver",
			UNSPSC:       "27112710",
			SourceKeys:   []string{"tooltown"},
			Size:         1,
			CreatedAt:    time.Now().UnixMilli(),
		},
	}
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_IndexDocument(t *testing.T) {
	index := setupTestIndex(t)

	doc := &SearchDocument{
		ID:           "gold-aaa111bbb222",
		Manufacturer: "3M",
		PartNumber:   "COMMANDSTRIP17206",
		Title:        "Command Large Picture Hanging Strips",
		Size:         3,
	}

	err := index.IndexDocument(doc)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchIndex_IndexDocuments_Batch(t *testing.T) {
	index := setupTestIndex(t)

	err := index.IndexDocuments(testDocs())
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestSearchIndex_Search_Title(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	params.Query = "rotary hammer"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "gold-ccc333ddd444", result.Hits[0].ID)
	assert.Equal(t, "Bosch Rotary Hammer Drill", result.Hits[0].Title)
}

func TestSearchIndex_Search_PartNumber(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	// Formatting differences collapse in the normalized probe.
	params.Query = "gbh-2-26"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "gold-ccc333ddd444", result.Hits[0].ID)
}

func TestSearchIndex_Search_ManufacturerFilter(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	params.Manufacturer = "Bosch GmbH"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
	for _, hit := range result.Hits {
		assert.Equal(t, "BOSCH", hit.Manufacturer)
	}
}

func TestSearchIndex_Search_UNSPSCPrefix(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	params.UNSPSCPrefix = "2711"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestSearchIndex_Search_SourceKey(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	params.SourceKey = "tooltown"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "gold-eee555fff666", result.Hits[0].ID)
}

func TestSearchIndex_Search_SizeRange(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	params.MinSize = 2

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)

	params = DefaultSearchParams()
	params.MinSize = 2
	params.MaxSize = 2

	result, err = index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "gold-ccc333ddd444", result.Hits[0].ID)
}

func TestSearchIndex_Search_Facets(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.NotEmpty(t, result.Facets.Manufacturers)
	counts := map[string]int{}
	for _, f := range result.Facets.Manufacturers {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, 2, counts["BOSCH"])
	assert.Equal(t, 1, counts["3M"])

	require.NotEmpty(t, result.Facets.SourceKeys)
	srcCounts := map[string]int{}
	for _, f := range result.Facets.SourceKeys {
		srcCounts[f.Value] = f.Count
	}
	assert.Equal(t, 2, srcCounts["acme-supply"])
}

func TestSearchIndex_Search_SortBySize(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	params.SortBy = "size"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	assert.Equal(t, 3, result.Hits[0].Size)
	assert.Equal(t, 2, result.Hits[1].Size)
	assert.Equal(t, 1, result.Hits[2].Size)
}

func TestSearchIndex_Search_Pagination(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	params := DefaultSearchParams()
	params.SortBy = "size"
	params.Limit = 2

	first, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), first.Total)
	require.Len(t, first.Hits, 2)

	params.Offset = 2
	second, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, second.Hits, 1)
	assert.NotEqual(t, first.Hits[0].ID, second.Hits[0].ID)
	assert.NotEqual(t, first.Hits[1].ID, second.Hits[0].ID)
}

func TestSearchIndex_ReplaceAll(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	replacement := []*SearchDocument{
		{ID: "gold-new111new111", Manufacturer: "DEWALT", Title: "DeWalt Impact Driver", Size: 2},
	}
	require.NoError(t, index.ReplaceAll(replacement))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	params := DefaultSearchParams()
	params.Query = "rotary hammer"
	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearchIndex_DeleteDocument(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexDocuments(testDocs()))

	require.NoError(t, index.DeleteDocument("gold-aaa111bbb222"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestGoldenToSearchDocument(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	golden := &domain.GoldenRecord{
		ID: "gold-abc123def456",
		Representative: domain.Representative{
			Manufacturer: "3M",
			PartNumber:   "CMD17206",
			Title:        "Command Strips",
			Description:  "Picture hanging strips",
			UNSPSC:       "31201600",
			GTIN:         "00051141358573",
		},
		MemberIDs:  []string{"rec_1", "rec_2"},
		SourceKeys: []string{"acme-supply"},
		Size:       2,
		CreatedAt:  created,
	}

	doc := GoldenToSearchDocument(golden)
	assert.Equal(t, golden.ID, doc.ID)
	assert.Equal(t, "3M", doc.Manufacturer)
	assert.Equal(t, "CMD17206", doc.PartNumber)
	assert.Equal(t, "Command Strips", doc.Title)
	assert.Equal(t, "Picture hanging strips", doc.Description)
	assert.Equal(t, "31201600", doc.UNSPSC)
	assert.Equal(t, "00051141358573", doc.GTIN)
	assert.Equal(t, []string{"acme-supply"}, doc.SourceKeys)
	assert.Equal(t, 2, doc.Size)
	assert.Equal(t, created.UnixMilli(), doc.CreatedAt)
}

func TestSearchDocument_ToMap_OmitsEmpty(t *testing.T) {
	doc := &SearchDocument{ID: "gold-abc123def456", Size: 1}

	m := doc.ToMap()
	assert.Equal(t, "gold-abc123def456", m["id"])
	assert.Equal(t, 1, m["size"])
	assert.NotContains(t, m, "gtin")
	assert.NotContains(t, m, "manufacturer")
	assert.NotContains(t, m, "source_keys")
}

func TestSearchIndex_ReopenKeepsDocuments(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexDocuments(testDocs()))
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
