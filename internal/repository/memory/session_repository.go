package memory

import (
	"sync"
	"sync/atomic"
	"time"

	"bangla-rag-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionEntry guards one session. Appends and reads of the same session serialize on Mu.
// Removed flips once the entry leaves the table and never flips back.
type SessionEntry struct {
	Mu      sync.Mutex
	Session *store.ChatSession
	Removed atomic.Bool
}

// SessionRepository is the live session table. Entries expire after ttl without a Refresh.
type SessionRepository struct {
	cache *cache.Cache
	// mu makes compare-then-write sequences on the cache atomic.
	mu        sync.Mutex
	onEvicted func(sessionID string)
}

func NewSessionRepository(ttl, cleanupInterval time.Duration) *SessionRepository {
	r := &SessionRepository{
		cache: cache.New(ttl, cleanupInterval),
	}
	r.cache.OnEvicted(func(key string, v interface{}) {
		v.(*SessionEntry).Removed.Store(true)
		if r.onEvicted != nil {
			r.onEvicted(key)
		}
	})
	return r
}

// Add inserts the entry only if the id is free, returning the entry that ends up stored.
func (r *SessionRepository) Add(entry *SessionEntry) (*SessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entry.Session.SessionID
	if existing, found := r.Get(id); found {
		return existing, false
	}
	// An expired item may still occupy the key. Delete fires the eviction hook so holders see Removed.
	r.cache.Delete(id)
	r.cache.Set(id, entry, cache.DefaultExpiration)
	return entry, true
}

// Refresh restarts the expiry clock only while entry is still the stored one for its id.
func (r *SessionRepository) Refresh(entry *SessionEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entry.Session.SessionID
	current, found := r.Get(id)
	if !found || current != entry {
		return false
	}
	r.cache.Set(id, entry, cache.DefaultExpiration)
	return true
}

// SetWithExpiry stores entry with its own lifetime. Used when restoring sessions that were already idle.
func (r *SessionRepository) SetWithExpiry(entry *SessionEntry, d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entry.Session.SessionID
	r.cache.Delete(id)
	r.cache.Set(id, entry, d)
}

func (r *SessionRepository) Get(sessionID string) (*SessionEntry, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*SessionEntry), true
	}
	return nil, false
}

// Delete removes the entry and marks it Removed. It reports whether a live entry was stored.
func (r *SessionRepository) Delete(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.Get(sessionID)
	if found {
		entry.Removed.Store(true)
	}
	r.cache.Delete(sessionID)
	return found
}

// All returns the unexpired entries.
func (r *SessionRepository) All() []*SessionEntry {
	items := r.cache.Items()
	entries := make([]*SessionEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.Object.(*SessionEntry))
	}
	return entries
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) DeleteExpired() {
	r.cache.DeleteExpired()
}

// OnEvicted registers fn for every entry leaving the table. Set it before the repository is shared.
func (r *SessionRepository) OnEvicted(fn func(sessionID string)) {
	r.onEvicted = fn
}
