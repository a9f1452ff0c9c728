package implementation

import (
	"context"

	"bangla-rag-be/internal/entity"
	"bangla-rag-be/internal/mapper"
	"bangla-rag-be/internal/model"
	"bangla-rag-be/internal/repository/contract"
	"bangla-rag-be/internal/repository/scope"
	"bangla-rag-be/internal/repository/specification"
	"bangla-rag-be/pkg/vectorstore"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 100

type ChunkEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkEmbeddingMapper
}

func NewChunkEmbeddingRepository(db *gorm.DB) contract.ChunkEmbeddingRepository {
	return &ChunkEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkEmbeddingMapper(),
	}
}

func (r *ChunkEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Add upserts chunks by id.
func (r *ChunkEmbeddingRepositoryImpl) Add(ctx context.Context, ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	if err := vectorstore.CheckBatch(ids, texts, embeddings, metadatas); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	entities := r.mapper.FromBatch(ids, texts, embeddings, metadatas)
	models := make([]*model.ChunkEmbedding, len(entities))
	for i, e := range entities {
		models[i] = r.mapper.ToModel(e)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "content_type", "source_file", "chunk_index", "metadata", "embedding_value", "updated_at"}),
		}).
		CreateInBatches(models, upsertBatchSize).Error
}

func (r *ChunkEmbeddingRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int, specs ...specification.Specification) ([]*entity.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	// pgvector <=> is cosine distance, i.e. 1 - cosine similarity
	type result struct {
		model.ChunkEmbedding
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)
	query := r.db.WithContext(ctx).
		Table(model.ChunkEmbedding{}.TableName()).
		Select("chunk_embeddings.*, (embedding_value <=> ?) as distance", queryVector)
	query = r.applySpecifications(query, specs...)

	err := query.
		Order("distance ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredChunk, len(results))
	for i := range results {
		scored[i] = &entity.ScoredChunk{
			Chunk:    r.mapper.ToEntity(&results[i].ChunkEmbedding),
			Distance: results[i].Distance,
		}
	}
	return scored, nil
}

func (r *ChunkEmbeddingRepositoryImpl) Query(ctx context.Context, embedding []float32, topK int, contentType string) (*vectorstore.QueryResult, error) {
	hits, err := r.SearchSimilar(ctx, embedding, topK, specification.ByContentType{ContentType: contentType})
	if err != nil {
		return nil, err
	}

	res := &vectorstore.QueryResult{
		IDs:       make([]string, len(hits)),
		Documents: make([]string, len(hits)),
		Metadatas: make([]map[string]interface{}, len(hits)),
		Distances: make([]float64, len(hits)),
	}
	for i, h := range hits {
		res.IDs[i] = h.Chunk.Id
		res.Documents[i] = h.Chunk.Document
		res.Metadatas[i] = h.Chunk.Metadata
		res.Distances[i] = h.Distance
	}
	return res, nil
}

// FindAll lists stored chunks in corpus order after the given specifications.
func (r *ChunkEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error) {
	var models []*model.ChunkEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Scopes(scope.OrderByCorpusPosition).Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChunkEmbedding, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

// ReplaceAll clears and refills the table in one transaction.
func (r *ChunkEmbeddingRepositoryImpl) ReplaceAll(ctx context.Context, ids, texts []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	if err := vectorstore.CheckBatch(ids, texts, embeddings, metadatas); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewChunkEmbeddingRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return repo.Add(ctx, ids, texts, embeddings, metadatas)
	})
}

func (r *ChunkEmbeddingRepositoryImpl) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ChunkEmbedding{}).Error
}

func (r *ChunkEmbeddingRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ChunkEmbedding{}).Count(&count).Error
	return count, err
}

func (r *ChunkEmbeddingRepositoryImpl) CountByType(ctx context.Context) (map[string]int64, error) {
	type row struct {
		ContentType string
		Total       int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.ChunkEmbedding{}).
		Select("content_type, count(*) as total").
		Group("content_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.ContentType] = rw.Total
	}
	return counts, nil
}
