package retrieval

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

// Embedder produces the query vector handed to the vector store. The
// embedding model itself is an external collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MilvusSearcher performs ranked similarity search against a Milvus
// collection of knowledge-base chunks.
type MilvusSearcher struct {
	client     client.Client
	collection string
	embedder   Embedder
	logger     *logger.Logger
}

// NewMilvusSearcher connects to Milvus and returns a searcher over the given
// collection. An API key switches to authenticated mode for managed
// deployments.
func NewMilvusSearcher(ctx context.Context, endpoint, apiKey, collection string, embedder Embedder, log *logger.Logger) (*MilvusSearcher, error) {
	var (
		c   client.Client
		err error
	)
	if apiKey != "" {
		c, err = client.NewDefaultGrpcClientWithAuth(ctx, endpoint, "root", apiKey)
	} else {
		c, err = client.NewGrpcClient(ctx, endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to milvus: %w", err)
	}

	log.Info("milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collection),
	)

	return &MilvusSearcher{
		client:     c,
		collection: collection,
		embedder:   embedder,
		logger:     log,
	}, nil
}

// Close releases the underlying gRPC connection.
func (m *MilvusSearcher) Close() error {
	return m.client.Close()
}

// Search embeds the query and runs a top-K vector search scoped to the
// knowledge base, normalizing hits into ranked candidates.
func (m *MilvusSearcher) Search(ctx context.Context, query, kbID string, limit int) ([]model.RetrievalCandidate, error) {
	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)
	expr := fmt.Sprintf(`kb_id == "%s"`, kbID)

	results, err := m.client.Search(
		ctx,
		m.collection,
		[]string{},
		expr,
		[]string{"content", "file_id", "source_name"},
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding",
		entity.IP,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	candidates, err := parseResults(results)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("vector search completed",
		zap.String("kb_id", kbID),
		zap.Int("limit", limit),
		zap.Int("results", len(candidates)),
	)

	return candidates, nil
}

// parseResults normalizes search hits into ranked candidates. A collection
// missing the required output fields is a configuration error; individual
// malformed rows are skipped.
func parseResults(results []client.SearchResult) ([]model.RetrievalCandidate, error) {
	var candidates []model.RetrievalCandidate
	for _, sr := range results {
		contentCol := sr.Fields.GetColumn("content")
		fileIDCol := sr.Fields.GetColumn("file_id")
		sourceCol := sr.Fields.GetColumn("source_name")
		if contentCol == nil || fileIDCol == nil || sourceCol == nil {
			return nil, fmt.Errorf("collection missing required fields content/file_id/source_name")
		}

		// Never trust ResultCount over the actual column lengths.
		rows := sr.ResultCount
		for _, col := range []entity.Column{contentCol, fileIDCol, sourceCol} {
			if col.Len() < rows {
				rows = col.Len()
			}
		}
		if len(sr.Scores) < rows {
			rows = len(sr.Scores)
		}

		for i := 0; i < rows; i++ {
			content, err := contentCol.GetAsString(i)
			if err != nil {
				continue
			}
			fileID, err := fileIDCol.GetAsString(i)
			if err != nil {
				continue
			}
			source, err := sourceCol.GetAsString(i)
			if err != nil {
				continue
			}

			candidates = append(candidates, model.RetrievalCandidate{
				Content:    content,
				Similarity: float64(sr.Scores[i]),
				OriginID:   fileID,
				SourceName: source,
			})
		}
	}
	return candidates, nil
}
