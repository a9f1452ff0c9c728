package store

import "time"

// ChatMessage is one completed exchange. It is never mutated after it is appended.
type ChatMessage struct {
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	Language    string    `json:"language"`
	Confidence  float64   `json:"confidence"`
	SessionID   string    `json:"session_id"`
	SourcesUsed []string  `json:"sources_used"`
}

// ChatSession is the retained conversation for one session id.
// MessageCount counts every exchange ever added, including ones trimmed from Messages.
type ChatSession struct {
	SessionID    string         `json:"session_id"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	Messages     []*ChatMessage `json:"messages"`
	MessageCount int            `json:"message_count"`
}

// Clone copies the session and its message list. Messages themselves are shared since they are immutable.
func (s *ChatSession) Clone() *ChatSession {
	c := *s
	c.Messages = make([]*ChatMessage, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// Snapshot is the persisted form of all live sessions.
type Snapshot struct {
	Sessions    []*ChatSession `json:"sessions"`
	LastUpdated time.Time      `json:"last_updated"`
}
