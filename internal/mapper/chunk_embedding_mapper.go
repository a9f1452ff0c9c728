package mapper

import (
	"bangla-rag-be/internal/entity"
	"bangla-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChunkEmbeddingMapper struct{}

func NewChunkEmbeddingMapper() *ChunkEmbeddingMapper {
	return &ChunkEmbeddingMapper{}
}

func (m *ChunkEmbeddingMapper) ToEntity(e *model.ChunkEmbedding) *entity.ChunkEmbedding {
	if e == nil {
		return nil
	}
	return &entity.ChunkEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		ContentType:    e.ContentType,
		SourceFile:     e.SourceFile,
		ChunkIndex:     e.ChunkIndex,
		Metadata:       map[string]interface{}(e.Metadata),
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToModel(e *entity.ChunkEmbedding) *model.ChunkEmbedding {
	if e == nil {
		return nil
	}
	return &model.ChunkEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		ContentType:    e.ContentType,
		SourceFile:     e.SourceFile,
		ChunkIndex:     e.ChunkIndex,
		Metadata:       datatypes.JSONMap(e.Metadata),
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// FromBatch builds entities from the parallel slices handed to a vector store.
func (m *ChunkEmbeddingMapper) FromBatch(ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) []*entity.ChunkEmbedding {
	out := make([]*entity.ChunkEmbedding, len(ids))
	for i := range ids {
		var meta map[string]interface{}
		if metadatas != nil {
			meta = metadatas[i]
		}
		e := &entity.ChunkEmbedding{
			Id:             ids[i],
			Document:       texts[i],
			Metadata:       meta,
			EmbeddingValue: embeddings[i],
		}
		if ct, ok := meta["content_type"].(string); ok {
			e.ContentType = ct
		}
		if src, ok := meta["source_file"].(string); ok {
			e.SourceFile = src
		}
		switch idx := meta["chunk_index"].(type) {
		case int:
			e.ChunkIndex = idx
		case float64:
			e.ChunkIndex = int(idx)
		}
		out[i] = e
	}
	return out
}
