package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/events"
	"bangla-rag-be/pkg/metrics"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/rag/response"
	"bangla-rag-be/pkg/rag/search"
	"bangla-rag-be/pkg/rag/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// QueryEmbedder produces the query vector. ZeroVector is used when embedding fails.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ZeroVector() []float32
}

type Config struct {
	TopK             int
	ChatContextLimit int
}

func DefaultConfig() Config {
	return Config{TopK: 5, ChatContextLimit: 3}
}

// Orchestrator runs one query through classification, recall, retrieval, generation and recording.
// Turns of the same session are serialized; different sessions run concurrently.
type Orchestrator struct {
	processor *query.Processor
	memory    *session.Manager
	embedder  QueryEmbedder
	retriever *search.Retriever
	generator *response.Generator
	publisher events.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	config    Config
	logger    logger.ILogger
	now       func() time.Time
}

func NewOrchestrator(
	processor *query.Processor,
	memory *session.Manager,
	embedder QueryEmbedder,
	retriever *search.Retriever,
	generator *response.Generator,
	publisher events.Publisher,
	m *metrics.Metrics,
	config Config,
	log logger.ILogger,
) *Orchestrator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	if config.ChatContextLimit <= 0 {
		config.ChatContextLimit = DefaultConfig().ChatContextLimit
	}
	return &Orchestrator{
		processor: processor,
		memory:    memory,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		publisher: publisher,
		metrics:   m,
		tracer:    otel.Tracer("rag-pipeline"),
		config:    config,
		logger:    log,
		now:       time.Now,
	}
}

func (o *Orchestrator) Memory() *session.Manager {
	return o.memory
}

// Process answers one query. It never returns an error: every failure is folded into a
// Failed outcome carrying a fallback answer. k <= 0 uses the configured top-k; an empty
// sessionID creates a new session.
func (o *Orchestrator) Process(ctx context.Context, raw string, k int, sessionID string) (result *Result) {
	start := o.now()
	if k <= 0 {
		k = o.config.TopK
	}
	if sessionID == "" {
		sessionID = o.memory.CreateSession()
	}

	ctx, span := o.tracer.Start(ctx, "rag.process")
	defer span.End()

	info := PipelineInfo{SessionID: sessionID, QueryLanguage: query.LangUnknown}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("pipeline panic: %v", r)
			span.RecordError(err)
			result = o.failed(raw, info, err)
		}
		result.ResponseTime = o.now().Sub(start).Seconds()
		span.SetAttributes(
			attribute.String("rag.outcome", result.Outcome.Name()),
			attribute.String("rag.language", result.Language),
			attribute.Int("rag.context_used", result.ContextUsed),
		)
		o.finish(ctx, result, start)
	}()

	release := o.memory.AcquireTurn(sessionID)
	defer release()

	outcome, q, err := o.run(ctx, raw, k, sessionID, &info)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return o.failed(raw, info, err)
	}
	return o.resultFor(q, outcome, info)
}

func (o *Orchestrator) run(ctx context.Context, raw string, k int, sessionID string, info *PipelineInfo) (Outcome, *query.ClassifiedQuery, error) {
	_, classifySpan := o.tracer.Start(ctx, "rag.classify")
	q := o.processor.Process(raw)
	classifySpan.SetAttributes(
		attribute.String("rag.language", q.Language),
		attribute.String("rag.query_type", string(q.Type)),
	)
	classifySpan.End()

	info.QueryProcessed = true
	info.QueryLanguage = q.Language
	info.QueryType = string(q.Type)

	if answer, ok := o.memory.Recall(sessionID, q.Cleaned, q.Language); ok {
		outcome := MemoryRecall{Text: answer}
		if err := o.record(ctx, sessionID, q, outcome); err != nil {
			return nil, q, err
		}
		return outcome, q, nil
	}

	chatContext := o.memory.ContextForQuery(sessionID, o.config.ChatContextLimit)
	info.ChatContextUsed = chatContext != ""

	vector := o.embed(ctx, q)
	if err := ctx.Err(); err != nil {
		return nil, q, err
	}

	retrieveCtx, retrieveSpan := o.tracer.Start(ctx, "rag.retrieve")
	retrieval, err := o.retriever.Retrieve(retrieveCtx, q, vector, k)
	if err != nil {
		retrieveSpan.RecordError(err)
		retrieveSpan.End()
		return nil, q, err
	}
	retrieveSpan.SetAttributes(
		attribute.Int("rag.raw_hits", retrieval.RawHits),
		attribute.Int("rag.candidates", len(retrieval.Candidates)),
	)
	retrieveSpan.End()

	info.RetrievalRan = true
	info.DocumentsRetrieved = len(retrieval.Candidates)

	var outcome Outcome
	if len(retrieval.Candidates) == 0 {
		outcome = Fallback{Text: session.FallbackAnswer(q.Cleaned, q.Language), Reason: ReasonNoContext}
	} else {
		outcome = o.generate(ctx, q, retrieval, chatContext)
	}

	if err := o.record(ctx, sessionID, q, outcome); err != nil {
		return nil, q, err
	}
	return outcome, q, nil
}

func (o *Orchestrator) embed(ctx context.Context, q *query.ClassifiedQuery) []float32 {
	ctx, span := o.tracer.Start(ctx, "rag.embed")
	defer span.End()

	vector, err := o.embedder.EmbedQuery(ctx, q.Cleaned)
	if err != nil {
		span.RecordError(err)
		o.logger.Warn("Orchestrator", "Query embedding failed, searching with zero vector", map[string]interface{}{
			"language": q.Language,
			"error":    err.Error(),
		})
		return o.embedder.ZeroVector()
	}
	return vector
}

func (o *Orchestrator) generate(ctx context.Context, q *query.ClassifiedQuery, retrieval *search.RetrievalResult, chatContext string) Outcome {
	ctx, span := o.tracer.Start(ctx, "rag.generate")
	defer span.End()

	gen, err := o.generator.Generate(ctx, q, retrieval.Candidates, chatContext)
	if err != nil {
		span.RecordError(err)
		return Fallback{Text: gen.Answer, Reason: ReasonGenerationFailed, Err: err}
	}
	return Generated{Generation: gen, Retrieval: retrieval}
}

// record appends the exchange to session memory. Canceled requests leave memory untouched.
func (o *Orchestrator) record(ctx context.Context, sessionID string, q *query.ClassifiedQuery, outcome Outcome) error {
	answer, confidence, sources := outcome.Answer(), 0.0, []string(nil)
	switch v := outcome.(type) {
	case Generated:
		confidence = v.Generation.Confidence
		sources = v.Generation.Sources
	case MemoryRecall:
		confidence = recallConfidence
	}
	return o.memory.AddMessage(ctx, sessionID, q.Original, answer, q.Language, confidence, sources)
}

func (o *Orchestrator) failed(raw string, info PipelineInfo, err error) *Result {
	info.ErrorOccurred = true
	lang := info.QueryLanguage
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		o.logger.Warn("Orchestrator", "Query abandoned", map[string]interface{}{
			"session_id": info.SessionID,
			"error":      err.Error(),
		})
	} else {
		o.logger.Error("Orchestrator", "Query failed", map[string]interface{}{
			"session_id": info.SessionID,
			"error":      err.Error(),
		})
	}
	answer := session.FallbackAnswer(raw, lang)
	return &Result{
		Answer:       answer,
		Query:        raw,
		Language:     lang,
		Sources:      []string{},
		Fallback:     true,
		Error:        err.Error(),
		Outcome:      Failed{Text: answer, Err: err},
		PipelineInfo: info,
	}
}

func (o *Orchestrator) finish(ctx context.Context, result *Result, start time.Time) {
	elapsed := o.now().Sub(start)
	o.metrics.QueryProcessed(result.Outcome.Name(), result.Language, elapsed)

	o.logger.Info("Orchestrator", "Query processed", map[string]interface{}{
		"session_id":   result.PipelineInfo.SessionID,
		"outcome":      result.Outcome.Name(),
		"language":     result.Language,
		"context_used": result.ContextUsed,
		"confidence":   result.Confidence,
		"elapsed_ms":   elapsed.Milliseconds(),
	})

	if ctx.Err() != nil {
		return
	}
	event := events.NewQueryAnswered(
		result.PipelineInfo.SessionID,
		result.Language,
		result.PipelineInfo.QueryType,
		result.Outcome.Name(),
		result.Confidence,
		result.ContextUsed,
		elapsed,
	)
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("Orchestrator", "Failed to publish query event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
