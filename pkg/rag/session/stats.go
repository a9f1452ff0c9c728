package session

import (
	"math"
	"sort"
	"time"
)

type SessionStats struct {
	SessionID     string    `json:"session_id"`
	MessageCount  int       `json:"message_count"`
	LanguagesUsed []string  `json:"languages_used"`
	AvgConfidence float64   `json:"avg_confidence"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	// Duration is LastActivity - CreatedAt in seconds.
	Duration float64 `json:"duration"`
}

type GlobalStats struct {
	TotalSessions         int            `json:"total_sessions"`
	TotalMessages         int            `json:"total_messages"`
	AvgMessagesPerSession float64        `json:"avg_messages_per_session"`
	LanguagesDistribution map[string]int `json:"languages_distribution"`
	AvgGlobalConfidence   float64        `json:"avg_global_confidence"`
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// SessionStats summarizes one session. The second result is false for unknown sessions.
func (m *Manager) SessionStats(sessionID string) (*SessionStats, bool) {
	entry, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	entry.Mu.Lock()
	defer entry.Mu.Unlock()
	s := entry.Session

	langs := make(map[string]struct{})
	var total float64
	for _, msg := range s.Messages {
		langs[msg.Language] = struct{}{}
		total += msg.Confidence
	}
	used := make([]string, 0, len(langs))
	for l := range langs {
		used = append(used, l)
	}
	sort.Strings(used)

	var avg float64
	if len(s.Messages) > 0 {
		avg = total / float64(len(s.Messages))
	}

	return &SessionStats{
		SessionID:     s.SessionID,
		MessageCount:  s.MessageCount,
		LanguagesUsed: used,
		AvgConfidence: round(avg, 3),
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity,
		Duration:      s.LastActivity.Sub(s.CreatedAt).Seconds(),
	}, true
}

// GlobalStats aggregates over the retained messages of every live session.
func (m *Manager) GlobalStats() GlobalStats {
	entries := m.sessions.All()
	stats := GlobalStats{
		TotalSessions:         len(entries),
		LanguagesDistribution: make(map[string]int),
	}

	var confidence float64
	for _, e := range entries {
		e.Mu.Lock()
		for _, msg := range e.Session.Messages {
			stats.TotalMessages++
			stats.LanguagesDistribution[msg.Language]++
			confidence += msg.Confidence
		}
		e.Mu.Unlock()
	}

	if stats.TotalMessages == 0 {
		return stats
	}
	stats.AvgMessagesPerSession = round(float64(stats.TotalMessages)/float64(stats.TotalSessions), 2)
	stats.AvgGlobalConfidence = round(confidence/float64(stats.TotalMessages), 3)
	return stats
}
