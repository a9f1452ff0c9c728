package search

import (
	"math"
	"sort"

	"bangla-rag-be/pkg/chunker"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/vectorstore"
)

// RankConfig holds the relevance threshold and the type-aware boosts.
type RankConfig struct {
	MinRelevance float64
	MCQBoost     float64
	FactualBoost float64
}

func DefaultRankConfig() RankConfig {
	return RankConfig{
		MinRelevance: 0.3,
		MCQBoost:     1.3,
		FactualBoost: 1.1,
	}
}

// ScoredCandidate is a reranked hit. Rank is its 1-based position after sorting and filtering.
type ScoredCandidate struct {
	ID             string                 `json:"document_id"`
	Text           string                 `json:"text"`
	Metadata       map[string]interface{} `json:"metadata"`
	Distance       float64                `json:"distance"`
	RelevanceScore float64                `json:"relevance_score"`
	Rank           int                    `json:"rank"`
}

func (c ScoredCandidate) ContentType() string {
	ct, _ := c.Metadata[vectorstore.MetadataContentType].(string)
	return ct
}

// RelevanceFromDistance maps a cosine distance to [0,1]. Distances past 1 score 0.
func RelevanceFromDistance(distance float64) float64 {
	if distance > 1 || math.IsNaN(distance) {
		return 0
	}
	return math.Min(1, math.Max(0, 1-distance))
}

// Boost applies the query/content type boost and caps the result at 1.
func (cfg RankConfig) Boost(score float64, qt query.Type, contentType string) float64 {
	switch {
	case qt == query.TypeMCQ && contentType == string(chunker.ContentMCQ):
		score *= cfg.MCQBoost
	case qt == query.TypeFactual && contentType == string(chunker.ContentGeneral):
		score *= cfg.FactualBoost
	}
	return math.Min(score, 1)
}

// Rank scores every hit, sorts by score descending and drops hits under MinRelevance.
// An empty result is valid.
func Rank(res *vectorstore.QueryResult, qt query.Type, cfg RankConfig) []ScoredCandidate {
	n := res.Len()
	candidates := make([]ScoredCandidate, 0, n)
	for i := 0; i < n; i++ {
		c := ScoredCandidate{
			ID:       res.IDs[i],
			Text:     res.Documents[i],
			Distance: res.Distances[i],
		}
		if i < len(res.Metadatas) {
			c.Metadata = res.Metadatas[i]
		}
		c.RelevanceScore = cfg.Boost(RelevanceFromDistance(c.Distance), qt, c.ContentType())
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RelevanceScore > candidates[j].RelevanceScore
	})

	kept := candidates[:0]
	for _, c := range candidates {
		if c.RelevanceScore < cfg.MinRelevance {
			continue
		}
		c.Rank = len(kept) + 1
		kept = append(kept, c)
	}
	return kept
}
