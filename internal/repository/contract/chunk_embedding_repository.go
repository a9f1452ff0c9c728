package contract

import (
	"context"

	"bangla-rag-be/internal/entity"
	"bangla-rag-be/internal/repository/specification"
	"bangla-rag-be/pkg/vectorstore"
)

// ChunkEmbeddingRepository is the durable vector store plus plain lookups for tooling.
type ChunkEmbeddingRepository interface {
	vectorstore.Store
	vectorstore.Replacer
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error)
	SearchSimilar(ctx context.Context, embedding []float32, limit int, specs ...specification.Specification) ([]*entity.ScoredChunk, error)
}
