package executor

import (
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/rag/response"
	"bangla-rag-be/pkg/rag/search"
)

const (
	ReasonNoContext        = "no_context"
	ReasonGenerationFailed = "generation_failed"

	recallConfidence = 1.0
)

// Outcome is how a query was answered. Exactly one of Generated, MemoryRecall, Fallback or Failed.
type Outcome interface {
	Name() string
	Answer() string
	isOutcome()
}

// Generated is an answer produced by the model from retrieved context.
type Generated struct {
	Generation *response.GenerationResult
	Retrieval  *search.RetrievalResult
}

// MemoryRecall is an answer served from the session's own history.
type MemoryRecall struct {
	Text string
}

// Fallback is a canned answer used when nothing relevant was retrieved or generation failed.
type Fallback struct {
	Text   string
	Reason string
	Err    error
}

// Failed means the pipeline itself broke. The query is not recorded.
type Failed struct {
	Text string
	Err  error
}

func (Generated) Name() string    { return "generated" }
func (MemoryRecall) Name() string { return "memory_recall" }
func (Fallback) Name() string     { return "fallback" }
func (Failed) Name() string       { return "failed" }

func (g Generated) Answer() string    { return g.Generation.Answer }
func (m MemoryRecall) Answer() string { return m.Text }
func (f Fallback) Answer() string     { return f.Text }
func (f Failed) Answer() string       { return f.Text }

func (Generated) isOutcome()    {}
func (MemoryRecall) isOutcome() {}
func (Fallback) isOutcome()     {}
func (Failed) isOutcome()       {}

// PipelineInfo records which stages ran.
type PipelineInfo struct {
	QueryProcessed     bool   `json:"query_processed"`
	RetrievalRan       bool   `json:"retrieval_ran"`
	DocumentsRetrieved int    `json:"documents_retrieved"`
	QueryLanguage      string `json:"query_language"`
	QueryType          string `json:"query_type,omitempty"`
	SessionID          string `json:"session_id"`
	ChatContextUsed    bool   `json:"chat_context_used"`
	ErrorOccurred      bool   `json:"error_occurred,omitempty"`
}

// Result is the answer to one query plus its diagnostics.
type Result struct {
	Answer       string       `json:"answer"`
	Query        string       `json:"query"`
	Language     string       `json:"language"`
	ContextUsed  int          `json:"context_used"`
	Sources      []string     `json:"sources"`
	Confidence   float64      `json:"confidence"`
	Fallback     bool         `json:"fallback"`
	MemoryRecall bool         `json:"memory_recall"`
	Error        string       `json:"error,omitempty"`
	ResponseTime float64      `json:"response_time"`
	PipelineInfo PipelineInfo `json:"pipeline_info"`
	Outcome      Outcome      `json:"-"`
}

func (o *Orchestrator) resultFor(q *query.ClassifiedQuery, outcome Outcome, info PipelineInfo) *Result {
	res := &Result{
		Answer:       outcome.Answer(),
		Query:        q.Original,
		Language:     q.Language,
		Sources:      []string{},
		PipelineInfo: info,
		Outcome:      outcome,
	}
	switch v := outcome.(type) {
	case Generated:
		res.ContextUsed = v.Generation.ContextUsed
		res.Confidence = v.Generation.Confidence
		res.Sources = v.Generation.Sources
	case MemoryRecall:
		res.MemoryRecall = true
		res.Confidence = recallConfidence
	case Fallback:
		res.Fallback = true
		if v.Err != nil {
			res.Error = v.Err.Error()
		}
	}
	return res
}
