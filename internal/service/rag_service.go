package service

import (
	"context"
	"sync"
	"time"

	"bangla-rag-be/internal/dto"
	"bangla-rag-be/pkg/rag/executor"
	"bangla-rag-be/pkg/vectorstore"
)

const Version = "1.0.0"

type IRagService interface {
	Query(ctx context.Context, req *dto.QueryRequest) *executor.Result
	Chat(ctx context.Context, req *dto.QueryRequest) *dto.ChatResponse
	Health() *dto.HealthResponse
	SystemStats(ctx context.Context) (*dto.SystemStatsResponse, error)
}

type ragService struct {
	orchestrator *executor.Orchestrator
	store        vectorstore.Store

	mu                sync.Mutex
	totalQueries      int64
	totalResponseTime float64
	lastQueryTime     *time.Time
}

func NewRagService(orchestrator *executor.Orchestrator, store vectorstore.Store) IRagService {
	return &ragService{
		orchestrator: orchestrator,
		store:        store,
	}
}

func (s *ragService) Query(ctx context.Context, req *dto.QueryRequest) *executor.Result {
	res := s.orchestrator.Process(ctx, req.Query, req.K, req.SessionID)

	now := time.Now()
	s.mu.Lock()
	s.totalQueries++
	s.totalResponseTime += res.ResponseTime
	s.lastQueryTime = &now
	s.mu.Unlock()

	return res
}

func (s *ragService) Chat(ctx context.Context, req *dto.QueryRequest) *dto.ChatResponse {
	res := s.Query(ctx, req)
	return &dto.ChatResponse{
		Answer:       res.Answer,
		Language:     res.Language,
		Confidence:   res.Confidence,
		ResponseTime: res.ResponseTime,
		SourcesCount: len(res.Sources),
		SessionID:    res.PipelineInfo.SessionID,
	}
}

func (s *ragService) Health() *dto.HealthResponse {
	return &dto.HealthResponse{
		Status:    "healthy",
		Message:   "RAG pipeline is ready",
		Timestamp: time.Now(),
		Version:   Version,
	}
}

func (s *ragService) SystemStats(ctx context.Context) (*dto.SystemStatsResponse, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.store.CountByType(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	avg := 0.0
	if s.totalQueries > 0 {
		avg = s.totalResponseTime / float64(s.totalQueries)
	}
	return &dto.SystemStatsResponse{
		TotalQueries:    s.totalQueries,
		AvgResponseTime: avg,
		PipelineReady:   s.orchestrator != nil,
		LastQueryTime:   s.lastQueryTime,
		IndexedChunks:   total,
		ChunksByType:    byType,
		Memory:          s.orchestrator.Memory().GlobalStats(),
	}, nil
}
