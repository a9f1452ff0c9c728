package service

import (
	"context"
	"fmt"

	"bangla-rag-be/internal/dto"
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/rag/session"
)

const defaultHistoryLimit = 10

type ISessionService interface {
	Create(ctx context.Context) *dto.CreateSessionResponse
	History(ctx context.Context, sessionID string, limit int) *dto.SessionHistoryResponse
	Stats(ctx context.Context, sessionID string) (*session.SessionStats, error)
	Delete(ctx context.Context, sessionID string) (*dto.DeleteSessionResponse, error)
}

type sessionService struct {
	memory *session.Manager
}

func NewSessionService(memory *session.Manager) ISessionService {
	return &sessionService{memory: memory}
}

func (s *sessionService) Create(ctx context.Context) *dto.CreateSessionResponse {
	return &dto.CreateSessionResponse{SessionID: s.memory.CreateSession()}
}

// History is empty for unknown sessions.
func (s *sessionService) History(ctx context.Context, sessionID string, limit int) *dto.SessionHistoryResponse {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history := s.memory.History(sessionID, limit)

	messages := make([]dto.ChatMessageResponse, 0, len(history))
	for _, msg := range history {
		messages = append(messages, dto.ChatMessageResponse{
			Timestamp:   msg.Timestamp,
			Query:       msg.Query,
			Response:    msg.Response,
			Language:    msg.Language,
			Confidence:  msg.Confidence,
			SourcesUsed: msg.SourcesUsed,
		})
	}
	return &dto.SessionHistoryResponse{SessionID: sessionID, Messages: messages}
}

func (s *sessionService) Stats(ctx context.Context, sessionID string) (*session.SessionStats, error) {
	stats, ok := s.memory.SessionStats(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperror.ErrNotFound, sessionID)
	}
	return stats, nil
}

func (s *sessionService) Delete(ctx context.Context, sessionID string) (*dto.DeleteSessionResponse, error) {
	if !s.memory.ClearSession(ctx, sessionID) {
		return nil, fmt.Errorf("%w: session %s", apperror.ErrNotFound, sessionID)
	}
	return &dto.DeleteSessionResponse{SessionID: sessionID, Deleted: true}, nil
}
