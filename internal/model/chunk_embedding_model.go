package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ChunkEmbedding is one indexed chunk. Id is the deterministic chunk id so re-indexing upserts.
type ChunkEmbedding struct {
	Id             string            `gorm:"type:varchar(128);primaryKey"`
	Document       string            `gorm:"type:text;not null"`
	ContentType    string            `gorm:"type:varchar(16);not null;index"`
	SourceFile     string            `gorm:"type:varchar(255);index"`
	ChunkIndex     int               `gorm:"default:0"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"` // gemini-embedding-001 truncated to 768 dimensions
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}
