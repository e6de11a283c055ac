package retrieval

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchResult(contents, fileIDs, sources []string, scores []float32) client.SearchResult {
	return client.SearchResult{
		ResultCount: len(contents),
		Fields: client.ResultSet{
			entity.NewColumnVarChar("content", contents),
			entity.NewColumnVarChar("file_id", fileIDs),
			entity.NewColumnVarChar("source_name", sources),
		},
		Scores: scores,
	}
}

func TestParseResults(t *testing.T) {
	results := []client.SearchResult{searchResult(
		[]string{"Plans start at $29.", "Enterprise is custom quoted."},
		[]string{"doc-1", "doc-2"},
		[]string{"pricing.md", "enterprise.md"},
		[]float32{0.92, 0.81},
	)}

	candidates, err := parseResults(results)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Plans start at $29.", candidates[0].Content)
	assert.Equal(t, "doc-1", candidates[0].OriginID)
	assert.Equal(t, "pricing.md", candidates[0].SourceName)
	assert.InDelta(t, 0.92, candidates[0].Similarity, 1e-6)
}

func TestParseResults_MissingFieldErrors(t *testing.T) {
	results := []client.SearchResult{{
		ResultCount: 1,
		Fields: client.ResultSet{
			entity.NewColumnVarChar("content", []string{"text"}),
		},
		Scores: []float32{0.9},
	}}

	_, err := parseResults(results)
	assert.Error(t, err, "a collection without the output fields must not panic")
}

func TestParseResults_SkipsRowsBeyondColumnLength(t *testing.T) {
	// ResultCount larger than the column data; out-of-range rows skipped.
	sr := searchResult([]string{"only row"}, []string{"doc-1"}, []string{"a.md"}, []float32{0.9, 0.8})
	sr.ResultCount = 2

	candidates, err := parseResults([]client.SearchResult{sr})
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestParseResults_Empty(t *testing.T) {
	candidates, err := parseResults(nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
