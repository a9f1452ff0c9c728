package search

import (
	"context"
	"fmt"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/chunker"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/vectorstore"
)

// RetrievalResult is the output of the retrieval stage.
type RetrievalResult struct {
	Candidates    []ScoredCandidate
	RawHits       int
	ContentFilter string
}

// Retriever queries the vector store and reranks the hits.
type Retriever struct {
	store  vectorstore.Store
	config RankConfig
	logger logger.ILogger
}

func NewRetriever(store vectorstore.Store, config RankConfig, log logger.ILogger) *Retriever {
	return &Retriever{
		store:  store,
		config: config,
		logger: log,
	}
}

// ContentFilterFor restricts mcq queries to mcq chunks. Other types search everything.
func ContentFilterFor(qt query.Type) string {
	if qt == query.TypeMCQ {
		return string(chunker.ContentMCQ)
	}
	return ""
}

func (r *Retriever) Retrieve(ctx context.Context, q *query.ClassifiedQuery, embedding []float32, k int) (*RetrievalResult, error) {
	filter := ContentFilterFor(q.Type)

	hits, err := r.store.Query(ctx, embedding, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector store query: %w", err)
	}

	candidates := Rank(hits, q.Type, r.config)

	r.logger.Debug("Ranker", "Ranked retrieval hits", map[string]interface{}{
		"query_type": string(q.Type),
		"filter":     filter,
		"raw_hits":   hits.Len(),
		"kept":       len(candidates),
	})

	return &RetrievalResult{
		Candidates:    candidates,
		RawHits:       hits.Len(),
		ContentFilter: filter,
	}, nil
}
