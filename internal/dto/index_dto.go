package dto

// IndexDocumentRequest ingests one document without rebuilding the whole index.
type IndexDocumentRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,oneof=mcq creative table general"`
	Content     string `json:"content" validate:"required"`
}

// IndexDocumentMessage is the job payload carried on the indexing topic.
type IndexDocumentMessage struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

type IndexAcceptedResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type RebuildRequest struct {
	ManifestPath string `json:"manifest_path" validate:"omitempty,max=512"`
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	Source          string         `json:"source"`
	Documents       int            `json:"documents"`
	Chunks          int            `json:"chunks"`
	ChunksByType    map[string]int `json:"chunks_by_type"`
	FailedEmbedding int            `json:"failed_embeddings"`
	Aborted         bool           `json:"aborted"`
	DurationSeconds float64        `json:"duration_seconds"`
}
