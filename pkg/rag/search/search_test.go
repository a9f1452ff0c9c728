package search

import (
	"context"
	"testing"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/vectorstore"
	"bangla-rag-be/pkg/vectorstore/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hits() *vectorstore.QueryResult {
	return &vectorstore.QueryResult{
		IDs:       []string{"g1", "m1", "t1", "g2", "far"},
		Documents: []string{"general one", "mcq one", "table one", "general two", "far away"},
		Metadatas: []map[string]interface{}{
			{"content_type": "general"},
			{"content_type": "mcq"},
			{"content_type": "table"},
			{"content_type": "general"},
			{"content_type": "mcq"},
		},
		Distances: []float64{0.35, 0.4, 0.3, 0.75, 1.4},
	}
}

func TestRelevanceFromDistance(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.2, 0},
		{-0.1, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RelevanceFromDistance(tt.distance), 1e-9)
	}
}

func TestRankBoostsMCQForMCQQuery(t *testing.T) {
	cfg := DefaultRankConfig()

	baseline := Rank(hits(), query.TypeGeneral, cfg)
	boosted := Rank(hits(), query.TypeMCQ, cfg)

	score := func(cs []ScoredCandidate, id string) float64 {
		for _, c := range cs {
			if c.ID == id {
				return c.RelevanceScore
			}
		}
		t.Fatalf("candidate %s missing", id)
		return 0
	}

	assert.Greater(t, score(boosted, "m1"), score(baseline, "m1"))
	assert.InDelta(t, 0.78, score(boosted, "m1"), 1e-9)
	assert.Equal(t, "m1", boosted[0].ID)
	assert.InDelta(t, score(baseline, "g1"), score(boosted, "g1"), 1e-9)
}

func TestRankFactualBoostsGeneralProse(t *testing.T) {
	ranked := Rank(hits(), query.TypeFactual, DefaultRankConfig())

	require.NotEmpty(t, ranked)
	assert.Equal(t, "g1", ranked[0].ID)
	assert.InDelta(t, 0.715, ranked[0].RelevanceScore, 1e-9)
}

func TestRankSortedAndThresholded(t *testing.T) {
	for _, qt := range []query.Type{query.TypeMCQ, query.TypeFactual, query.TypeGeneral} {
		t.Run(string(qt), func(t *testing.T) {
			ranked := Rank(hits(), qt, DefaultRankConfig())
			for i, c := range ranked {
				assert.GreaterOrEqual(t, c.RelevanceScore, 0.3)
				assert.LessOrEqual(t, c.RelevanceScore, 1.0)
				assert.Equal(t, i+1, c.Rank)
				if i > 0 {
					assert.LessOrEqual(t, c.RelevanceScore, ranked[i-1].RelevanceScore)
				}
			}
			for _, c := range ranked {
				assert.NotEqual(t, "g2", c.ID)
				assert.NotEqual(t, "far", c.ID)
			}
		})
	}
}

func TestBoostCapsAtOne(t *testing.T) {
	assert.Equal(t, 1.0, DefaultRankConfig().Boost(0.9, query.TypeMCQ, "mcq"))
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(&vectorstore.QueryResult{}, query.TypeGeneral, DefaultRankConfig()))
	assert.Empty(t, Rank(nil, query.TypeGeneral, DefaultRankConfig()))
}

func TestRetrieverFiltersMCQQueries(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Add(context.Background(),
		[]string{"m", "g"},
		[]string{"mcq text", "general text"},
		[][]float32{{1, 0}, {1, 0}},
		[]map[string]interface{}{{"content_type": "mcq"}, {"content_type": "general"}}))

	r := NewRetriever(store, DefaultRankConfig(), logger.NewNopLogger())

	res, err := r.Retrieve(context.Background(), &query.ClassifiedQuery{Type: query.TypeMCQ}, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, "mcq", res.ContentFilter)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "m", res.Candidates[0].ID)

	res, err = r.Retrieve(context.Background(), &query.ClassifiedQuery{Type: query.TypeGeneral}, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, res.ContentFilter)
	assert.Len(t, res.Candidates, 2)
}
