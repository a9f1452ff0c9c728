package dto

import "time"

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type ChatMessageResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	Language    string    `json:"language"`
	Confidence  float64   `json:"confidence"`
	SourcesUsed []string  `json:"sources_used"`
}

type SessionHistoryResponse struct {
	SessionID string                `json:"session_id"`
	Messages  []ChatMessageResponse `json:"messages"`
}

type DeleteSessionResponse struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}
