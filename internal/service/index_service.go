package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bangla-rag-be/internal/dto"
	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/chunker"
	"bangla-rag-be/pkg/corpus"
	"bangla-rag-be/pkg/embedding"
	"bangla-rag-be/pkg/events"
	"bangla-rag-be/pkg/metrics"
	"bangla-rag-be/pkg/vectorstore"
)

// DocumentEmbedder is the bulk side of the embedding client.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) (*embedding.BulkResult, error)
}

type IIndexService interface {
	Rebuild(ctx context.Context, manifest *corpus.Manifest) (*dto.IndexReport, error)
	RebuildFromPath(ctx context.Context, manifestPath string) (*dto.IndexReport, error)
	IngestDocument(ctx context.Context, msg dto.IndexDocumentMessage) (*dto.IndexReport, error)
	Stats(ctx context.Context) (int64, map[string]int64, error)
	Clear(ctx context.Context) error
}

type indexService struct {
	chunker   *chunker.Chunker
	embedder  DocumentEmbedder
	store     vectorstore.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    logger.ILogger

	// one indexing run at a time
	mu sync.Mutex
}

func NewIndexService(
	c *chunker.Chunker,
	embedder DocumentEmbedder,
	store vectorstore.Store,
	publisher events.Publisher,
	m *metrics.Metrics,
	log logger.ILogger,
) IIndexService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &indexService{
		chunker:   c,
		embedder:  embedder,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    log,
	}
}

// Rebuild embeds every manifest document and then swaps the store's contents in one step.
// Missing files are skipped. Quota exhaustion aborts the run and leaves the existing index in place.
func (s *indexService) Rebuild(ctx context.Context, manifest *corpus.Manifest) (*dto.IndexReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := &dto.IndexReport{Source: manifest.BaseDir, ChunksByType: map[string]int{}}

	var chunks []chunker.Chunk
	for _, doc := range manifest.Documents {
		text, err := manifest.Read(doc)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				s.logger.Warn("Indexer", "Content file not found, skipping", map[string]interface{}{
					"path": manifest.Resolve(doc),
				})
				continue
			}
			return nil, err
		}
		ct, _ := chunker.ParseContentType(doc.ContentType)
		chunks = append(chunks, s.chunker.Split(text, ct, doc.Path)...)
		report.Documents++
	}

	if len(chunks) == 0 {
		return nil, apperror.Validation("no content found under %s", manifest.BaseDir)
	}

	s.logger.Info("Indexer", "Rebuilding knowledge base", map[string]interface{}{
		"documents": report.Documents,
		"chunks":    len(chunks),
	})

	err := s.index(ctx, chunks, report, true)
	report.DurationSeconds = time.Since(start).Seconds()
	if err != nil {
		return report, err
	}

	if err := s.publisher.Publish(ctx, events.NewIndexRebuilt(report.Source, report.Chunks, report.FailedEmbedding, time.Since(start))); err != nil {
		s.logger.Warn("Indexer", "Failed to publish rebuild event", map[string]interface{}{"error": err.Error()})
	}
	return report, nil
}

func (s *indexService) RebuildFromPath(ctx context.Context, manifestPath string) (*dto.IndexReport, error) {
	manifest, err := corpus.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	return s.Rebuild(ctx, manifest)
}

// IngestDocument chunks and indexes one document on top of the existing index.
func (s *indexService) IngestDocument(ctx context.Context, msg dto.IndexDocumentMessage) (*dto.IndexReport, error) {
	ct, ok := chunker.ParseContentType(msg.ContentType)
	if !ok {
		return nil, apperror.Validation("unknown content type %q", msg.ContentType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := &dto.IndexReport{Source: msg.Name, Documents: 1, ChunksByType: map[string]int{}}

	chunks := s.chunker.Split(msg.Content, ct, msg.Name)
	if len(chunks) == 0 {
		return nil, apperror.Validation("document %s produced no chunks", msg.Name)
	}

	err := s.index(ctx, chunks, report, false)
	report.DurationSeconds = time.Since(start).Seconds()
	return report, err
}

// index embeds chunks and writes them to the store. With replace set, the store's contents are
// swapped only when every chunk was embedded; otherwise the embedded prefix is upserted.
func (s *indexService) index(ctx context.Context, chunks []chunker.Chunk, report *dto.IndexReport, replace bool) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	res, embedErr := s.embedder.EmbedDocuments(ctx, texts)
	if res == nil {
		return embedErr
	}
	report.FailedEmbedding = len(res.Failed)

	if embedErr != nil && replace {
		report.Aborted = true
		s.logger.Error("Indexer", "Rebuild aborted, keeping existing index", map[string]interface{}{
			"embedded": len(res.Vectors),
			"total":    len(chunks),
			"error":    embedErr.Error(),
		})
		return embedErr
	}

	n := len(res.Vectors)
	ids := make([]string, n)
	metadatas := make([]map[string]interface{}, n)
	for i, c := range chunks[:n] {
		ids[i] = c.ID
		metadatas[i] = c.Metadata
		report.ChunksByType[string(c.ContentType)]++
	}

	var err error
	if replace {
		err = vectorstore.ReplaceAll(ctx, s.store, ids, texts[:n], res.Vectors, metadatas)
	} else if n > 0 {
		err = s.store.Add(ctx, ids, texts[:n], res.Vectors, metadatas)
	}
	if err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	report.Chunks = n
	s.metrics.ChunksIndexed(n)

	if embedErr != nil {
		report.Aborted = true
		s.logger.Error("Indexer", "Indexing stopped early", map[string]interface{}{
			"stored": n,
			"total":  len(chunks),
			"error":  embedErr.Error(),
		})
		return embedErr
	}

	s.logger.Info("Indexer", "Chunks indexed", map[string]interface{}{
		"stored":            n,
		"failed_embeddings": len(res.Failed),
	})
	return nil
}

func (s *indexService) Stats(ctx context.Context) (int64, map[string]int64, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return 0, nil, err
	}
	byType, err := s.store.CountByType(ctx)
	if err != nil {
		return 0, nil, err
	}
	return total, byType, nil
}

func (s *indexService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Indexer", "Vector store cleared", nil)
	return nil
}
