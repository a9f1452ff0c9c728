package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/events"
	"bangla-rag-be/pkg/llm"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/rag/response"
	"bangla-rag-be/pkg/rag/search"
	"bangla-rag-be/pkg/rag/session"
	"bangla-rag-be/pkg/vectorstore"
	"bangla-rag-be/pkg/vectorstore/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	vector []float32
	err    error
	panics bool
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panics {
		panic("embedder exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) ZeroVector() []float32 { return make([]float32, 3) }

type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	answer  string
	err     error
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

type fixture struct {
	orch      *Orchestrator
	store     vectorstore.Store
	embedder  *fakeEmbedder
	llm       *fakeLLM
	publisher *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	store := memory.NewStore()
	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	gen := &fakeLLM{answer: "Dhaka is the capital."}
	pub := &capturePublisher{}

	orch := NewOrchestrator(
		query.NewProcessor(0.3),
		session.NewManager(session.DefaultConfig(), nil, log),
		emb,
		search.NewRetriever(store, search.DefaultRankConfig(), log),
		response.NewGenerator(gen, response.DefaultConfig(), log),
		pub,
		nil,
		DefaultConfig(),
		log,
	)
	return &fixture{orch: orch, store: store, embedder: emb, llm: gen, publisher: pub}
}

func (f *fixture) index(t *testing.T, id, text, contentType string, vec []float32) {
	t.Helper()
	err := f.store.Add(context.Background(),
		[]string{id}, []string{text}, [][]float32{vec},
		[]map[string]interface{}{{vectorstore.MetadataContentType: contentType}})
	require.NoError(t, err)
}

func TestEmptyIndexFallsBack(t *testing.T) {
	f := newFixture(t)

	res := f.orch.Process(context.Background(), "What is the capital?", 5, "")

	assert.NotEmpty(t, res.Answer)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, 0, res.ContextUsed)
	assert.True(t, res.Fallback)
	assert.Equal(t, "en", res.Language)
	assert.IsType(t, Fallback{}, res.Outcome)
	assert.True(t, res.PipelineInfo.RetrievalRan)
	assert.Zero(t, f.llm.calls)
	assert.NotEmpty(t, res.PipelineInfo.SessionID)
	assert.Len(t, f.orch.Memory().History(res.PipelineInfo.SessionID, 10), 1)
}

func TestRecallSkipsRetrievalAndGeneration(t *testing.T) {
	f := newFixture(t)
	first := f.orch.Process(context.Background(), "What is the capital?", 5, "")
	sid := first.PipelineInfo.SessionID

	res := f.orch.Process(context.Background(), "What was my last question?", 5, sid)

	assert.Contains(t, res.Answer, "What is the capital?")
	assert.True(t, res.MemoryRecall)
	assert.Equal(t, 1.0, res.Confidence)
	assert.IsType(t, MemoryRecall{}, res.Outcome)
	assert.False(t, res.PipelineInfo.RetrievalRan)
	assert.Equal(t, 1, f.embedder.calls)
	assert.Zero(t, f.llm.calls)
}

func TestGeneratedAnswerFromContext(t *testing.T) {
	f := newFixture(t)
	f.index(t, "c1", "ঢাকা বাংলাদেশের রাজধানী।", "general", []float32{1, 0, 0})
	f.index(t, "c2", "Unrelated text", "general", []float32{0, 1, 0})

	res := f.orch.Process(context.Background(), "What is the capital?", 5, "")

	require.IsType(t, Generated{}, res.Outcome)
	assert.Equal(t, "Dhaka is the capital.", res.Answer)
	assert.Equal(t, 1, res.ContextUsed)
	assert.Equal(t, []string{"c1"}, res.Sources)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "ঢাকা বাংলাদেশের রাজধানী।")
	assert.NotContains(t, f.llm.prompts[0], "Unrelated text")
}

func TestSecondTurnCarriesChatContext(t *testing.T) {
	f := newFixture(t)
	f.index(t, "c1", "ঢাকা বাংলাদেশের রাজধানী।", "general", []float32{1, 0, 0})

	first := f.orch.Process(context.Background(), "What is the capital?", 5, "")
	second := f.orch.Process(context.Background(), "How big is it?", 5, first.PipelineInfo.SessionID)

	assert.True(t, second.PipelineInfo.ChatContextUsed)
	require.Len(t, f.llm.prompts, 2)
	assert.Contains(t, f.llm.prompts[1], "Previous Q: What is the capital?")
}

func TestEmbeddingFailureDegradesToZeroVector(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("provider down")
	f.index(t, "c1", "text", "general", []float32{1, 0, 0})

	res := f.orch.Process(context.Background(), "What is the capital?", 5, "")

	assert.IsType(t, Fallback{}, res.Outcome)
	assert.Empty(t, res.Error)
	assert.False(t, res.PipelineInfo.ErrorOccurred)
	assert.Zero(t, f.llm.calls)
}

func TestGenerationFailureReturnsErrorMessage(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errors.New("boom")
	f.index(t, "c1", "ঢাকা বাংলাদেশের রাজধানী।", "general", []float32{1, 0, 0})

	res := f.orch.Process(context.Background(), "রাজধানী কোথায়?", 5, "")

	fb, ok := res.Outcome.(Fallback)
	require.True(t, ok)
	assert.Equal(t, ReasonGenerationFailed, fb.Reason)
	assert.Equal(t, response.GenerationErrorMessage(query.LangBengali), res.Answer)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, "boom", res.Error)
}

func TestPanicIsContained(t *testing.T) {
	f := newFixture(t)
	f.embedder.panics = true

	var res *Result
	require.NotPanics(t, func() {
		res = f.orch.Process(context.Background(), "What is the capital?", 5, "s1")
	})

	assert.IsType(t, Failed{}, res.Outcome)
	assert.NotEmpty(t, res.Answer)
	assert.True(t, res.Fallback)
	assert.True(t, res.PipelineInfo.ErrorOccurred)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Empty(t, f.orch.Memory().History("s1", 10))

	// the turn lock was released
	next := f.orch.Process(context.Background(), "What is the capital?", 5, "s1")
	assert.NotNil(t, next)
}

func TestCanceledQueryIsNotRecorded(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.orch.Process(ctx, "What is the capital?", 5, "s1")

	assert.IsType(t, Failed{}, res.Outcome)
	assert.Empty(t, f.orch.Memory().History("s1", 10))
	assert.Empty(t, f.publisher.events)
}

func TestQueryEventPublished(t *testing.T) {
	f := newFixture(t)

	res := f.orch.Process(context.Background(), "What is the capital?", 5, "")

	require.Len(t, f.publisher.events, 1)
	e := f.publisher.events[0]
	assert.Equal(t, events.TypeQueryAnswered, e.EventType())
	assert.Equal(t, res.PipelineInfo.SessionID, e.Payload()["session_id"])
	assert.Equal(t, "fallback", e.Payload()["outcome"])
}

func TestConcurrentSessionsStayIsolated(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for _, sid := range []string{"a", "b", "c"} {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(sid string) {
				defer wg.Done()
				f.orch.Process(context.Background(), "What is "+sid+"?", 5, sid)
			}(sid)
		}
	}
	wg.Wait()

	for _, sid := range []string{"a", "b", "c"} {
		history := f.orch.Memory().History(sid, 10)
		require.Len(t, history, 4)
		for _, msg := range history {
			assert.True(t, strings.Contains(msg.Query, sid))
		}
	}
}
