package vectorstore

import (
	"context"

	"bangla-rag-be/pkg/apperror"
)

// MetadataContentType is the metadata key used for type-filtered queries.
const MetadataContentType = "content_type"

// QueryResult holds parallel slices ordered by ascending cosine distance.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]interface{}
	Distances []float64
}

func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.IDs)
}

// Store is a nearest-neighbour index over embedded chunks.
// Add upserts by id so re-indexing identical chunks is safe.
type Store interface {
	Add(ctx context.Context, ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error
	// Query returns at most topK hits. An empty contentType searches all types.
	Query(ctx context.Context, embedding []float32, topK int, contentType string) (*QueryResult, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	CountByType(ctx context.Context) (map[string]int64, error)
}

// CheckBatch verifies that the parallel slices given to Add line up.
func CheckBatch(ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	n := len(ids)
	if len(texts) != n || len(embeddings) != n || (metadatas != nil && len(metadatas) != n) {
		return apperror.Validation("batch size mismatch: ids=%d texts=%d embeddings=%d metadatas=%d",
			len(ids), len(texts), len(embeddings), len(metadatas))
	}
	return nil
}

// Replacer is implemented by stores that can swap their whole contents atomically.
type Replacer interface {
	ReplaceAll(ctx context.Context, ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error
}

// ReplaceAll swaps the store's contents for the given batch, atomically when the store supports it.
func ReplaceAll(ctx context.Context, s Store, ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	if r, ok := s.(Replacer); ok {
		return r.ReplaceAll(ctx, ids, texts, embeddings, metadatas)
	}
	if err := CheckBatch(ids, texts, embeddings, metadatas); err != nil {
		return err
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	return s.Add(ctx, ids, texts, embeddings, metadatas)
}
