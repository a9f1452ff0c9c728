package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSnapshots struct {
	mu    sync.Mutex
	saves int
	last  *store.Snapshot
}

func (r *recordingSnapshots) Load(context.Context) (*store.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, nil
}

func (r *recordingSnapshots) Save(_ context.Context, snap *store.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.last = snap
	return nil
}

func newManager(cfg Config, snaps SnapshotStore) (*Manager, *manualClock) {
	clock := &manualClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	cfg.Clock = clock.Now
	return NewManager(cfg, snaps, logger.NewNopLogger()), clock
}

func addN(t *testing.T, m *Manager, id string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, m.AddMessage(context.Background(), id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), query.LangEnglish, 0.5, nil))
	}
}

func TestAddMessageKeepsNewestWithinCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessionMemory = 5
	m, _ := newManager(cfg, nil)
	id := m.CreateSession()

	addN(t, m, id, 8)

	history := m.History(id, 0)
	require.Len(t, history, 5)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("q%d", i+3), msg.Query)
	}
	stats, ok := m.SessionStats(id)
	require.True(t, ok)
	assert.Equal(t, 8, stats.MessageCount)
}

func TestAddMessageCreatesUnknownSession(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)

	require.NoError(t, m.AddMessage(context.Background(), "adhoc", "q", "a", query.LangBengali, 1, []string{"d1"}))

	assert.True(t, m.Exists("adhoc"))
	last, ok := m.LastMessage("adhoc")
	require.True(t, ok)
	assert.Equal(t, []string{"d1"}, last.SourcesUsed)
}

func TestCanceledAddLeavesSessionUntouched(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)
	id := m.CreateSession()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.AddMessage(ctx, id, "q", "a", query.LangEnglish, 1, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.History(id, 10))
}

func TestHistoryLimitAndUnknown(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)
	id := m.CreateSession()
	addN(t, m, id, 4)

	h := m.History(id, 2)
	require.Len(t, h, 2)
	assert.Equal(t, "q2", h[0].Query)
	assert.Equal(t, "q3", h[1].Query)

	assert.Empty(t, m.History("missing", 5))
	_, ok := m.SessionStats("missing")
	assert.False(t, ok)
}

func TestContextForQuery(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)
	id := m.CreateSession()
	assert.Empty(t, m.ContextForQuery(id, 3))

	addN(t, m, id, 4)
	assert.Equal(t, "Previous Q: q1\nPrevious A: a1\nPrevious Q: q2\nPrevious A: a2\nPrevious Q: q3\nPrevious A: a3", m.ContextForQuery(id, 3))

	long := strings.Repeat("অ", 600)
	require.NoError(t, m.AddMessage(context.Background(), id, long, "a", query.LangBengali, 1, nil))
	digest := m.ContextForQuery(id, 3)
	assert.True(t, strings.HasSuffix(digest, "..."))
	assert.Equal(t, 503, len([]rune(digest)))
}

func TestRecallEchoesPreviousTurn(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)
	id := m.CreateSession()

	_, ok := m.Recall(id, "what was my last question", query.LangEnglish)
	assert.False(t, ok, "no history means no recall")

	require.NoError(t, m.AddMessage(context.Background(), id, "X", "Y", query.LangEnglish, 0.8, nil))

	tests := []struct {
		name  string
		text  string
		lang  string
		want  string
		match bool
	}{
		{"english question", "What was my last question?", query.LangEnglish, `"X"`, true},
		{"english answer", "what was your previous answer", query.LangEnglish, `"Y"`, true},
		{"bengali question", "আমার শেষ প্রশ্ন কী ছিল?", query.LangBengali, `"X"`, true},
		{"bengali answer", "আগের উত্তর কী ছিল?", query.LangBengali, `"Y"`, true},
		{"not a recall query", "Who is Anupam?", query.LangEnglish, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, ok := m.Recall(id, tt.text, tt.lang)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Contains(t, answer, tt.want)
			}
		})
	}
}

func TestFallbackAnswerIsStable(t *testing.T) {
	a := FallbackAnswer("What is the capital?", query.LangEnglish)
	assert.Equal(t, a, FallbackAnswer("What is the capital?", query.LangEnglish))
	assert.Contains(t, fallbackAnswers[query.LangEnglish], a)

	assert.Contains(t, fallbackAnswers[query.LangBengali], FallbackAnswer("রাজধানী কোথায়?", query.LangBengali))
	assert.Contains(t, fallbackAnswers[query.LangEnglish], FallbackAnswer("x", query.LangUnknown))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[FallbackAnswer(fmt.Sprintf("query %d", i), query.LangEnglish)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestEvictIdleSessions(t *testing.T) {
	m, clock := newManager(DefaultConfig(), nil)
	old := m.CreateSession()
	clock.Advance(50 * time.Minute)
	fresh := m.CreateSession()
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, m.EvictIdle())
	assert.False(t, m.Exists(old))
	assert.True(t, m.Exists(fresh))
}

func TestSessionCapEvictsLongestIdle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 3
	m, clock := newManager(cfg, nil)

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = m.CreateSession()
		clock.Advance(time.Minute)
	}
	addN(t, m, ids[0], 1)

	newest := m.CreateSession()

	assert.Equal(t, 3, m.ActiveSessions())
	assert.True(t, m.Exists(newest))
	assert.True(t, m.Exists(ids[0]), "recently active session survives")
	assert.False(t, m.Exists(ids[1]))
}

func TestStatsAreReadOnly(t *testing.T) {
	m, clock := newManager(DefaultConfig(), nil)
	id := m.CreateSession()
	clock.Advance(30 * time.Second)
	require.NoError(t, m.AddMessage(context.Background(), id, "q1", "a1", query.LangEnglish, 0.9, nil))
	require.NoError(t, m.AddMessage(context.Background(), id, "q2", "a2", query.LangBengali, 0.4, nil))
	other := m.CreateSession()
	require.NoError(t, m.AddMessage(context.Background(), other, "q3", "a3", query.LangEnglish, 0.2, nil))

	before := m.History(id, 0)
	stats, ok := m.SessionStats(id)
	require.True(t, ok)
	assert.Equal(t, 2, stats.MessageCount)
	assert.Equal(t, []string{"bn", "en"}, stats.LanguagesUsed)
	assert.InDelta(t, 0.65, stats.AvgConfidence, 1e-9)
	assert.InDelta(t, 30.0, stats.Duration, 1e-9)

	global := m.GlobalStats()
	assert.Equal(t, 2, global.TotalSessions)
	assert.Equal(t, 3, global.TotalMessages)
	assert.InDelta(t, 1.5, global.AvgMessagesPerSession, 1e-9)
	assert.Equal(t, map[string]int{"en": 2, "bn": 1}, global.LanguagesDistribution)
	assert.InDelta(t, 0.5, global.AvgGlobalConfidence, 1e-9)

	assert.Equal(t, before, m.History(id, 0))
	assert.Equal(t, 2, m.ActiveSessions())
}

func TestPersistEveryNthMessage(t *testing.T) {
	snaps := &recordingSnapshots{}
	m, _ := newManager(DefaultConfig(), snaps)
	id := m.CreateSession()

	addN(t, m, id, 4)
	assert.Zero(t, snaps.saves)
	addN(t, m, id, 1)
	assert.Equal(t, 1, snaps.saves)
	require.Len(t, snaps.last.Sessions, 1)
	assert.Len(t, snaps.last.Sessions[0].Messages, 5)
}

func TestConcurrentAppendsToOneSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessionMemory = 1000
	m, _ := newManager(cfg, nil)
	id := m.CreateSession()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release := m.AcquireTurn(id)
			defer release()
			for j := 0; j < 10; j++ {
				_ = m.AddMessage(context.Background(), id, fmt.Sprintf("%d-%d", i, j), "a", query.LangEnglish, 1, nil)
			}
		}(i)
	}
	wg.Wait()

	history := m.History(id, 0)
	require.Len(t, history, 200)
	// each goroutine's turn is contiguous
	for k := 0; k < 200; k += 10 {
		prefix := strings.SplitN(history[k].Query, "-", 2)[0]
		for j := 0; j < 10; j++ {
			assert.Equal(t, fmt.Sprintf("%s-%d", prefix, j), history[k+j].Query)
		}
	}
	assert.Empty(t, m.turns)
}

func TestClearedSessionStaysClearedUnderPendingAppend(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)
	id := m.CreateSession()
	require.NoError(t, m.AddMessage(context.Background(), id, "old", "old-a", query.LangEnglish, 0.5, nil))

	entry, ok := m.sessions.Get(id)
	require.True(t, ok)
	entry.Mu.Lock()

	done := make(chan error, 1)
	go func() {
		done <- m.AddMessage(context.Background(), id, "new", "new-a", query.LangEnglish, 0.5, nil)
	}()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, m.ClearSession(context.Background(), id))
	entry.Mu.Unlock()
	require.NoError(t, <-done)

	history := m.History(id, 0)
	require.Len(t, history, 1, "the append lands in a fresh session")
	assert.Equal(t, "new", history[0].Query)
	assert.Equal(t, 1, m.ActiveSessions())
}

func TestClearedSessionIsNotRefreshed(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)
	id := m.CreateSession()
	entry, ok := m.sessions.Get(id)
	require.True(t, ok)

	require.True(t, m.ClearSession(context.Background(), id))

	assert.True(t, entry.Removed.Load())
	assert.False(t, m.sessions.Refresh(entry))
	assert.False(t, m.Exists(id))
}

func TestTurnsAreGrantedInArrivalOrder(t *testing.T) {
	m, _ := newManager(DefaultConfig(), nil)
	id := m.CreateSession()
	release := m.AcquireTurn(id)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			done := m.AcquireTurn(id)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			done()
		}(i)
		require.Eventually(t, func() bool {
			m.mu.Lock()
			defer m.mu.Unlock()
			return len(m.turns[id].waiters) == i+1
		}, time.Second, time.Millisecond)
	}

	release()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Empty(t, m.turns)
}

func TestLoadKeepsRemainingIdleTime(t *testing.T) {
	now := time.Now()
	snaps := &recordingSnapshots{last: &store.Snapshot{Sessions: []*store.ChatSession{
		{SessionID: "almost-idle", CreatedAt: now.Add(-2 * time.Second), LastActivity: now.Add(-900 * time.Millisecond)},
		{SessionID: "active", CreatedAt: now, LastActivity: now},
	}}}
	m := NewManager(Config{TTL: time.Second}, snaps, logger.NewNopLogger())

	n, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Eventually(t, func() bool { return !m.Exists("almost-idle") }, 500*time.Millisecond, 10*time.Millisecond)
	assert.True(t, m.Exists("active"))
}

func TestFileSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory", "chat_sessions.json")
	files := NewFileSnapshotStore(path)

	m, clock := newManager(DefaultConfig(), files)
	id := m.CreateSession()
	require.NoError(t, m.AddMessage(context.Background(), id, "প্রশ্ন", "উত্তর", query.LangBengali, 0.7, []string{"mcq_1_ab"}))
	m.CreateSession()
	require.NoError(t, m.SaveAndCleanup(context.Background()))

	restored := NewManager(Config{Clock: clock.Now}, files, logger.NewNopLogger())
	n, err := restored.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h := restored.History(id, 0)
	require.Len(t, h, 1)
	assert.Equal(t, "প্রশ্ন", h[0].Query)
	assert.Equal(t, []string{"mcq_1_ab"}, h[0].SourcesUsed)
	assert.True(t, h[0].Timestamp.Equal(clock.Now()))

	clock.Advance(2 * time.Hour)
	late := NewManager(Config{Clock: clock.Now}, files, logger.NewNopLogger())
	n, err = late.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "sessions idle past the TTL are not restored")
}

func TestFileSnapshotMissingFile(t *testing.T) {
	snap, err := NewFileSnapshotStore(filepath.Join(t.TempDir(), "none.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}
