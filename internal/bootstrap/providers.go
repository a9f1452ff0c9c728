package bootstrap

import (
	"context"
	"fmt"
	"time"

	"bangla-rag-be/internal/config"
	"bangla-rag-be/internal/pkg/logger"
	redisrepo "bangla-rag-be/internal/repository/redis"
	"bangla-rag-be/internal/repository/unitofwork"
	"bangla-rag-be/pkg/database"
	"bangla-rag-be/pkg/embedding"
	"bangla-rag-be/pkg/embedding/jina"
	"bangla-rag-be/pkg/llm"
	"bangla-rag-be/pkg/llm/factory"
	"bangla-rag-be/pkg/ratelimit"
	"bangla-rag-be/pkg/rag/session"
	"bangla-rag-be/pkg/vectorstore"
	"bangla-rag-be/pkg/vectorstore/memory"

	"gorm.io/gorm"
)

func retryPolicy(cfg *config.Config) ratelimit.RetryPolicy {
	policy := ratelimit.DefaultRetryPolicy()
	if cfg.Limits.MaxRetries > 0 {
		policy.MaxAttempts = cfg.Limits.MaxRetries
	}
	if cfg.Limits.BaseDelay > 0 {
		policy.BaseDelay = cfg.Limits.BaseDelay
	}
	if cfg.Limits.MaxDelay > 0 {
		policy.MaxDelay = cfg.Limits.MaxDelay
	}
	return policy
}

// NewEmbedder builds the configured embedding provider behind its rate budget.
func NewEmbedder(cfg *config.Config, registry *ratelimit.Registry, log logger.ILogger) (*embedding.Embedder, error) {
	var provider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		p := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		p.Client.Timeout = shorter(p.Client.Timeout, cfg.Limits.RequestTimeout)
		provider = p
	case "jina":
		provider = jina.NewJinaProvider(cfg.Keys.Jina, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDimension)
	case "gemini", "":
		if cfg.Keys.GoogleGemini == "" {
			return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY is required for the gemini embedding provider")
		}
		p := embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDimension)
		p.Client.Timeout = shorter(p.Client.Timeout, cfg.Limits.RequestTimeout)
		provider = p
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}

	budget := registry.Budget(provider.Name(), provider.Model(), ratelimit.Limits{
		RequestsPerMinute: cfg.Limits.EmbeddingRPM,
		TokensPerMinute:   cfg.Limits.EmbeddingTPM,
		RequestsPerDay:    cfg.Limits.EmbeddingRPD,
	})

	log.Info("Bootstrap", "Embedding provider ready", map[string]interface{}{
		"provider":  provider.Name(),
		"model":     provider.Model(),
		"dimension": cfg.Ai.EmbeddingDimension,
	})

	return embedding.NewEmbedder(provider, ratelimit.NewClient(budget, retryPolicy(cfg)), embedding.EmbedderConfig{
		Dimension: cfg.Ai.EmbeddingDimension,
		BulkDelay: cfg.Limits.BulkDelay,
		Jitter:    cfg.Limits.BulkJitter,
	}, log), nil
}

// shorter never lengthens the provider's own HTTP timeout.
func shorter(current, limit time.Duration) time.Duration {
	if limit > 0 && (current == 0 || limit < current) {
		return limit
	}
	return current
}

// NewGenerator builds the configured LLM behind its rate budget.
func NewGenerator(cfg *config.Config, registry *ratelimit.Registry, log logger.ILogger) (*llm.Generator, error) {
	apiKey := cfg.Keys.GoogleGemini
	baseURL := cfg.Ai.LLMBaseURL
	switch cfg.Ai.LLMProvider {
	case "huggingface":
		apiKey = cfg.Keys.HuggingFace
	case "openai":
		apiKey = cfg.Keys.OpenAI
	case "ollama":
		if baseURL == "" {
			baseURL = cfg.Ai.OllamaBaseURL
		}
	}

	provider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	})
	if err != nil {
		return nil, err
	}

	budget := registry.Budget(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, ratelimit.Limits{
		RequestsPerMinute: cfg.Limits.GenerationRPM,
		TokensPerMinute:   cfg.Limits.GenerationTPM,
		RequestsPerDay:    cfg.Limits.GenerationRPD,
	})

	log.Info("Bootstrap", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	return llm.NewGenerator(provider, ratelimit.NewClient(budget, retryPolicy(cfg)),
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(1000),
	), nil
}

// NewVectorStore returns the pgvector repository when a database is configured, otherwise the in-process store.
func NewVectorStore(cfg *config.Config, db *gorm.DB) (vectorstore.Store, error) {
	switch cfg.Retrieval.VectorStore {
	case "memory":
		return memory.NewStore(), nil
	case "pgvector", "":
		if db == nil {
			return nil, fmt.Errorf("pgvector store requires DB_CONNECTION_STRING")
		}
		uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(context.Background())
		return uow.ChunkEmbeddingRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.Retrieval.VectorStore)
	}
}

// NewSnapshotStore picks where session snapshots survive restarts. A nil store disables persistence.
func NewSnapshotStore(cfg *config.Config, log logger.ILogger) session.SnapshotStore {
	switch cfg.Memory.SnapshotBackend {
	case "redis":
		rdb := redisrepo.NewClient(cfg.App.RedisURL)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("Bootstrap", "Redis unreachable, falling back to file snapshots", map[string]interface{}{
				"error": err.Error(),
			})
			return session.NewFileSnapshotStore(cfg.Memory.SnapshotPath)
		}
		// Keep snapshots a little longer than the sessions they hold.
		return redisrepo.NewSessionSnapshotRepository(rdb, cfg.Memory.SnapshotKey, 2*cfg.Memory.SessionTTL)
	case "none":
		return nil
	default:
		return session.NewFileSnapshotStore(cfg.Memory.SnapshotPath)
	}
}

// OpenDatabase connects to Postgres when the pgvector store is selected.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Retrieval.VectorStore == "memory" {
		return nil, nil
	}
	if cfg.Database.Connection == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	return database.NewGormDBFromDSN(cfg.Database.Connection, database.DefaultPoolConfig())
}
