package unitofwork

import (
	"context"

	"bangla-rag-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository
}
