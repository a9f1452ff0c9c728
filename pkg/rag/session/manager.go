package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/internal/repository/memory"
	"bangla-rag-be/pkg/store"

	"github.com/google/uuid"
)

// Config bounds session retention.
type Config struct {
	MaxSessionMemory int
	TTL              time.Duration
	MaxSessions      int
	PersistEvery     int
	ContextBudget    int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func DefaultConfig() Config {
	return Config{
		MaxSessionMemory: 50,
		TTL:              time.Hour,
		MaxSessions:      100,
		PersistEvery:     5,
		ContextBudget:    500,
	}
}

// Manager owns all chat session state.
//
// Lock order is m.mu before any SessionEntry.Mu. m.mu only guards session creation,
// eviction and the turn queues. A removed entry is never stored again.
type Manager struct {
	cfg       Config
	sessions  *memory.SessionRepository
	snapshots SnapshotStore
	logger    logger.ILogger
	now       func() time.Time

	mu        sync.Mutex
	turns     map[string]*turnQueue
	persistMu sync.Mutex
}

// turnQueue hands one session's turn to waiters in arrival order. Guarded by Manager.mu.
type turnQueue struct {
	waiters []chan struct{}
}

// NewManager builds a session store. snapshots may be nil to disable persistence.
func NewManager(cfg Config, snapshots SnapshotStore, log logger.ILogger) *Manager {
	def := DefaultConfig()
	if cfg.MaxSessionMemory <= 0 {
		cfg.MaxSessionMemory = def.MaxSessionMemory
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = def.ContextBudget
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		cfg:       cfg,
		sessions:  memory.NewSessionRepository(cfg.TTL, cfg.TTL/6),
		snapshots: snapshots,
		logger:    log,
		now:       now,
		turns:     make(map[string]*turnQueue),
	}
	m.sessions.OnEvicted(func(id string) {
		m.logger.Debug("SessionMemory", "Session expired", map[string]interface{}{"session_id": id})
	})
	return m
}

func (m *Manager) newSession(id string) *memory.SessionEntry {
	now := m.now()
	return &memory.SessionEntry{Session: &store.ChatSession{
		SessionID:    id,
		CreatedAt:    now,
		LastActivity: now,
		Messages:     []*store.ChatMessage{},
	}}
}

// CreateSession allocates a new empty session and returns its id.
func (m *Manager) CreateSession() string {
	id := uuid.NewString()
	m.ensure(id)
	m.logger.Info("SessionMemory", "Created new session", map[string]interface{}{"session_id": id})
	return id
}

// ensure returns the entry for id, creating it and enforcing the session cap when missing.
func (m *Manager) ensure(id string) *memory.SessionEntry {
	if entry, ok := m.sessions.Get(id); ok {
		return entry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, created := m.sessions.Add(m.newSession(id))
	if created && m.sessions.Count() > m.cfg.MaxSessions {
		m.enforceCapLocked(id)
	}
	return entry
}

// enforceCapLocked drops idle-expired sessions first, then the longest idle ones. Caller holds m.mu.
func (m *Manager) enforceCapLocked(keep string) {
	evicted := m.evictIdle()
	entries := m.sessions.All()
	if len(entries) > m.cfg.MaxSessions {
		type idle struct {
			id   string
			last time.Time
		}
		order := make([]idle, 0, len(entries))
		for _, e := range entries {
			e.Mu.Lock()
			if e.Session.SessionID != keep {
				order = append(order, idle{id: e.Session.SessionID, last: e.Session.LastActivity})
			}
			e.Mu.Unlock()
		}
		sort.Slice(order, func(i, j int) bool { return order[i].last.Before(order[j].last) })
		for i := 0; i < len(entries)-m.cfg.MaxSessions && i < len(order); i++ {
			m.sessions.Delete(order[i].id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Info("SessionMemory", "Evicted sessions over capacity", map[string]interface{}{
			"evicted": evicted,
			"active":  m.sessions.Count(),
		})
	}
}

// EvictIdle removes every session idle for longer than the TTL and returns how many went.
func (m *Manager) EvictIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictIdle()
}

func (m *Manager) evictIdle() int {
	now := m.now()
	evicted := 0
	for _, e := range m.sessions.All() {
		e.Mu.Lock()
		expired := now.Sub(e.Session.LastActivity) > m.cfg.TTL
		id := e.Session.SessionID
		e.Mu.Unlock()
		if expired {
			m.sessions.Delete(id)
			evicted++
		}
	}
	m.sessions.DeleteExpired()
	return evicted
}

// AcquireTurn serializes query processing for one session in arrival order. Call the returned func to release.
func (m *Manager) AcquireTurn(sessionID string) func() {
	m.mu.Lock()
	q, busy := m.turns[sessionID]
	if !busy {
		m.turns[sessionID] = &turnQueue{}
		m.mu.Unlock()
	} else {
		ready := make(chan struct{})
		q.waiters = append(q.waiters, ready)
		m.mu.Unlock()
		<-ready
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			q := m.turns[sessionID]
			if len(q.waiters) == 0 {
				delete(m.turns, sessionID)
				return
			}
			next := q.waiters[0]
			q.waiters = q.waiters[1:]
			close(next)
		})
	}
}

// AddMessage appends one exchange, creating the session if it is unknown. A canceled ctx
// leaves the session untouched.
func (m *Manager) AddMessage(ctx context.Context, sessionID, query, response, language string, confidence float64, sources []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &store.ChatMessage{
		Timestamp:   m.now(),
		Query:       query,
		Response:    response,
		Language:    language,
		Confidence:  confidence,
		SessionID:   sessionID,
		SourcesUsed: append([]string{}, sources...),
	}

	var persist bool
	for {
		entry := m.ensure(sessionID)
		entry.Mu.Lock()
		// A session cleared or evicted after ensure starts over empty.
		if entry.Removed.Load() || !m.sessions.Refresh(entry) {
			entry.Removed.Store(true)
			entry.Mu.Unlock()
			continue
		}
		s := entry.Session
		s.Messages = append(s.Messages, msg)
		s.MessageCount++
		s.LastActivity = msg.Timestamp
		if over := len(s.Messages) - m.cfg.MaxSessionMemory; over > 0 {
			trimmed := make([]*store.ChatMessage, m.cfg.MaxSessionMemory)
			copy(trimmed, s.Messages[over:])
			s.Messages = trimmed
		}
		persist = m.cfg.PersistEvery > 0 && s.MessageCount%m.cfg.PersistEvery == 0
		entry.Mu.Unlock()
		break
	}

	if persist {
		if err := m.Persist(ctx); err != nil {
			m.logger.Error("SessionMemory", "Error saving sessions", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// History returns the newest limit messages in chronological order. Unknown sessions yield nil.
func (m *Manager) History(sessionID string, limit int) []*store.ChatMessage {
	entry, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil
	}
	entry.Mu.Lock()
	defer entry.Mu.Unlock()

	msgs := entry.Session.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*store.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// LastMessage returns the most recent exchange of a session.
func (m *Manager) LastMessage(sessionID string) (*store.ChatMessage, bool) {
	h := m.History(sessionID, 1)
	if len(h) == 0 {
		return nil, false
	}
	return h[0], true
}

// ContextForQuery digests the last limit exchanges, cut to the context budget.
func (m *Manager) ContextForQuery(sessionID string, limit int) string {
	history := m.History(sessionID, limit)
	if len(history) == 0 {
		return ""
	}

	parts := make([]string, 0, 2*len(history))
	for _, msg := range history {
		parts = append(parts, fmt.Sprintf("Previous Q: %s", msg.Query))
		parts = append(parts, fmt.Sprintf("Previous A: %s", msg.Response))
	}
	digest := strings.Join(parts, "\n")

	runes := []rune(digest)
	if len(runes) < m.cfg.ContextBudget {
		return digest
	}
	return string(runes[:m.cfg.ContextBudget]) + "..."
}

func (m *Manager) Exists(sessionID string) bool {
	_, ok := m.sessions.Get(sessionID)
	return ok
}

// ClearSession removes a session immediately. It reports whether the session existed.
func (m *Manager) ClearSession(ctx context.Context, sessionID string) bool {
	m.mu.Lock()
	found := m.sessions.Delete(sessionID)
	m.mu.Unlock()
	if !found {
		return false
	}

	m.logger.Info("SessionMemory", "Cleared session", map[string]interface{}{"session_id": sessionID})
	if err := m.Persist(ctx); err != nil {
		m.logger.Error("SessionMemory", "Error saving sessions", map[string]interface{}{"error": err.Error()})
	}
	return true
}

// ActiveSessions is the number of live sessions.
func (m *Manager) ActiveSessions() int {
	return len(m.sessions.All())
}

// snapshot copies every live session under its own lock.
func (m *Manager) snapshot() *store.Snapshot {
	entries := m.sessions.All()
	snap := &store.Snapshot{Sessions: make([]*store.ChatSession, 0, len(entries)), LastUpdated: m.now()}
	for _, e := range entries {
		e.Mu.Lock()
		snap.Sessions = append(snap.Sessions, e.Session.Clone())
		e.Mu.Unlock()
	}
	sort.Slice(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].CreatedAt.Before(snap.Sessions[j].CreatedAt)
	})
	return snap
}

// Persist writes all live sessions to the snapshot store.
func (m *Manager) Persist(ctx context.Context) error {
	if m.snapshots == nil {
		return nil
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	return m.snapshots.Save(ctx, m.snapshot())
}

// Load restores sessions from the snapshot store, skipping ones already idle past the TTL.
// Restored sessions keep only the idle time they had left.
func (m *Manager) Load(ctx context.Context) (int, error) {
	if m.snapshots == nil {
		return 0, nil
	}
	snap, err := m.snapshots.Load(ctx)
	if err != nil {
		return 0, err
	}
	if snap == nil {
		return 0, nil
	}

	now := m.now()
	loaded := 0
	m.mu.Lock()
	for _, s := range snap.Sessions {
		if s == nil || s.SessionID == "" || now.Sub(s.LastActivity) > m.cfg.TTL {
			continue
		}
		if over := len(s.Messages) - m.cfg.MaxSessionMemory; over > 0 {
			s.Messages = s.Messages[over:]
		}
		if s.Messages == nil {
			s.Messages = []*store.ChatMessage{}
		}
		remaining := m.cfg.TTL - now.Sub(s.LastActivity)
		if remaining <= 0 {
			continue
		}
		m.sessions.SetWithExpiry(&memory.SessionEntry{Session: s}, remaining)
		loaded++
	}
	if m.sessions.Count() > m.cfg.MaxSessions {
		m.enforceCapLocked("")
	}
	m.mu.Unlock()

	m.logger.Info("SessionMemory", "Loaded chat sessions", map[string]interface{}{"sessions": loaded})
	return loaded, nil
}

// SaveAndCleanup evicts idle sessions then persists the rest. Called at shutdown.
func (m *Manager) SaveAndCleanup(ctx context.Context) error {
	m.EvictIdle()
	if err := m.Persist(ctx); err != nil {
		return err
	}
	m.logger.Info("SessionMemory", "Memory saved and cleaned up", nil)
	return nil
}
