package dto

import "time"

type QueryRequest struct {
	Query     string `json:"query" validate:"required,min=1,max=1000"`
	K         int    `json:"k" validate:"omitempty,min=1,max=20"`
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
}

// ChatResponse is the trimmed result returned by the chat endpoint.
type ChatResponse struct {
	Answer       string  `json:"answer"`
	Language     string  `json:"language"`
	Confidence   float64 `json:"confidence"`
	ResponseTime float64 `json:"response_time"`
	SourcesCount int     `json:"sources_count"`
	SessionID    string  `json:"session_id"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type SystemStatsResponse struct {
	TotalQueries    int64            `json:"total_queries"`
	AvgResponseTime float64          `json:"avg_response_time"`
	PipelineReady   bool             `json:"pipeline_ready"`
	LastQueryTime   *time.Time       `json:"last_query_time"`
	IndexedChunks   int64            `json:"indexed_chunks"`
	ChunksByType    map[string]int64 `json:"chunks_by_type"`
	Memory          interface{}      `json:"memory"`
}
