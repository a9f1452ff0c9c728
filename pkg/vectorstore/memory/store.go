package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"bangla-rag-be/pkg/vectorstore"
)

type record struct {
	id        string
	text      string
	embedding []float32
	metadata  map[string]interface{}
}

// Store is an exact, in-process vector index. Query cost is linear in the number of records.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

var (
	_ vectorstore.Store    = (*Store)(nil)
	_ vectorstore.Replacer = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

func (s *Store) Add(_ context.Context, ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	if err := vectorstore.CheckBatch(ids, texts, embeddings, metadatas); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(ids, texts, embeddings, metadatas)
	return nil
}

// ReplaceAll swaps the whole index under one lock, so queries never see it empty.
func (s *Store) ReplaceAll(_ context.Context, ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	if err := vectorstore.CheckBatch(ids, texts, embeddings, metadatas); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*record, len(ids))
	s.putLocked(ids, texts, embeddings, metadatas)
	return nil
}

func (s *Store) putLocked(ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) {
	for i, id := range ids {
		var meta map[string]interface{}
		if metadatas != nil {
			meta = make(map[string]interface{}, len(metadatas[i]))
			for k, v := range metadatas[i] {
				meta[k] = v
			}
		}
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		s.records[id] = &record{id: id, text: texts[i], embedding: vec, metadata: meta}
	}
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int, contentType string) (*vectorstore.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type hit struct {
		rec  *record
		dist float64
	}

	s.mu.RLock()
	hits := make([]hit, 0, len(s.records))
	for _, rec := range s.records {
		if contentType != "" && rec.metadata[vectorstore.MetadataContentType] != contentType {
			continue
		}
		hits = append(hits, hit{rec: rec, dist: cosineDistance(embedding, rec.embedding)})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist == hits[j].dist {
			return hits[i].rec.id < hits[j].rec.id
		}
		return hits[i].dist < hits[j].dist
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	res := &vectorstore.QueryResult{
		IDs:       make([]string, len(hits)),
		Documents: make([]string, len(hits)),
		Metadatas: make([]map[string]interface{}, len(hits)),
		Distances: make([]float64, len(hits)),
	}
	for i, h := range hits {
		res.IDs[i] = h.rec.id
		res.Documents[i] = h.rec.text
		res.Metadatas[i] = h.rec.metadata
		res.Distances[i] = h.dist
	}
	return res, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	s.records = make(map[string]*record)
	s.mu.Unlock()
	return nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *Store) CountByType(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, rec := range s.records {
		ct, _ := rec.metadata[vectorstore.MetadataContentType].(string)
		if ct == "" {
			ct = "unknown"
		}
		counts[ct]++
	}
	return counts, nil
}

// cosineDistance is 1 - cos(a, b). Zero or mismatched vectors are maximally uninformative (distance 1).
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
