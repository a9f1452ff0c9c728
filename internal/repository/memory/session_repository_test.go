package memory

import (
	"testing"
	"time"

	"bangla-rag-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryFor(id string) *SessionEntry {
	return &SessionEntry{Session: &store.ChatSession{SessionID: id}}
}

func TestAddKeepsExistingEntry(t *testing.T) {
	repo := NewSessionRepository(time.Minute, time.Minute)
	first, created := repo.Add(entryFor("s1"))
	require.True(t, created)

	got, created := repo.Add(entryFor("s1"))
	assert.False(t, created)
	assert.Same(t, first, got)
	assert.Equal(t, 1, repo.Count())
}

func TestDeleteMarksEntryRemoved(t *testing.T) {
	repo := NewSessionRepository(time.Minute, time.Minute)
	var evicted []string
	repo.OnEvicted(func(id string) { evicted = append(evicted, id) })
	entry, _ := repo.Add(entryFor("s1"))

	assert.True(t, repo.Delete("s1"))
	assert.True(t, entry.Removed.Load())
	assert.False(t, repo.Delete("s1"))
	assert.Equal(t, []string{"s1"}, evicted)
}

func TestRefreshOnlyTouchesStoredEntry(t *testing.T) {
	tests := []struct {
		name  string
		setup func(repo *SessionRepository, entry *SessionEntry)
		want  bool
	}{
		{"stored", func(*SessionRepository, *SessionEntry) {}, true},
		{"deleted", func(repo *SessionRepository, _ *SessionEntry) { repo.Delete("s1") }, false},
		{"replaced", func(repo *SessionRepository, _ *SessionEntry) {
			repo.Delete("s1")
			repo.Add(entryFor("s1"))
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewSessionRepository(time.Minute, time.Minute)
			entry, _ := repo.Add(entryFor("s1"))
			tt.setup(repo, entry)

			assert.Equal(t, tt.want, repo.Refresh(entry))
			if !tt.want {
				got, ok := repo.Get("s1")
				assert.False(t, ok && got == entry, "a removed entry must not come back")
			}
		})
	}
}

func TestSetWithExpiryUsesGivenLifetime(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Hour)
	repo.SetWithExpiry(entryFor("short"), 50*time.Millisecond)
	repo.SetWithExpiry(entryFor("gone"), 0)

	_, ok := repo.Get("gone")
	assert.False(t, ok)
	assert.Eventually(t, func() bool {
		_, ok := repo.Get("short")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestExpiredKeyIsReusedByAdd(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Hour)
	stale := entryFor("s1")
	repo.SetWithExpiry(stale, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	fresh, created := repo.Add(entryFor("s1"))
	assert.True(t, created)
	assert.NotSame(t, stale, fresh)
	assert.True(t, stale.Removed.Load())
}
