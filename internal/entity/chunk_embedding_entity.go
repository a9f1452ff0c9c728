package entity

import "time"

type ChunkEmbedding struct {
	Id             string
	Document       string
	ContentType    string
	SourceFile     string
	ChunkIndex     int
	Metadata       map[string]interface{}
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ScoredChunk is a search hit with its cosine distance to the query.
type ScoredChunk struct {
	Chunk    *ChunkEmbedding
	Distance float64
}
