package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Keys      APIKeys
	Ai        AIConfig
	Limits    LimitsConfig
	Memory    MemoryConfig
	Retrieval RetrievalConfig
	Index     IndexConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
	OpenAI       string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider  string // "gemini", "ollama" or "jina"
	EmbeddingModel     string
	EmbeddingDimension int
	OllamaBaseURL      string
	OllamaModel        string
	LLMProvider        string // "gemini", "ollama", "huggingface", "openai"
	LLMModel           string
	LLMBaseURL         string
}

// LimitsConfig is the provider quota plus the retry and pacing policy around it.
type LimitsConfig struct {
	EmbeddingRPM  int
	EmbeddingTPM  int
	EmbeddingRPD  int
	GenerationRPM int
	GenerationTPM int
	GenerationRPD int

	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	BulkDelay      time.Duration
	BulkJitter     time.Duration
	RequestTimeout time.Duration
}

type MemoryConfig struct {
	MaxSessionMemory int
	SessionTTL       time.Duration
	MaxSessions      int
	PersistEvery     int
	SnapshotBackend  string // "redis", "file" or "none"
	SnapshotPath     string
	SnapshotKey      string
}

type RetrievalConfig struct {
	VectorStore       string // "pgvector" or "memory"
	TopK              int
	MinRelevance      float64
	MCQBoost          float64
	FactualBoost      float64
	ConfidenceBoost   float64
	ConfidenceTopN    int
	ContextDocs       int
	BengaliRatio      float64
	ChatContextLimit  int
	ChatContextBudget int
}

type IndexConfig struct {
	Topic           string
	TriggerConsumer string
	ManifestPath    string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/rag_system.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:        getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:           getEnv("LLM_MODEL", "gemini-2.5-flash"),
			LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
		},
		Limits: LimitsConfig{
			EmbeddingRPM:   getEnvAsInt("EMBEDDING_RPM", 100),
			EmbeddingTPM:   getEnvAsInt("EMBEDDING_TPM", 30000),
			EmbeddingRPD:   getEnvAsInt("EMBEDDING_RPD", 1000),
			GenerationRPM:  getEnvAsInt("GENERATION_RPM", 10),
			GenerationTPM:  getEnvAsInt("GENERATION_TPM", 250000),
			GenerationRPD:  getEnvAsInt("GENERATION_RPD", 250),
			MaxRetries:     getEnvAsInt("PROVIDER_MAX_RETRIES", 3),
			BaseDelay:      getEnvAsDuration("PROVIDER_BASE_DELAY", 2*time.Second),
			MaxDelay:       getEnvAsDuration("PROVIDER_MAX_DELAY", 120*time.Second),
			BulkDelay:      getEnvAsDuration("EMBEDDING_BULK_DELAY", 2*time.Second),
			BulkJitter:     getEnvAsDuration("EMBEDDING_BULK_JITTER", 100*time.Millisecond),
			RequestTimeout: getEnvAsDuration("PROVIDER_REQUEST_TIMEOUT", 60*time.Second),
		},
		Memory: MemoryConfig{
			MaxSessionMemory: getEnvAsInt("MAX_SESSION_MEMORY", 50),
			SessionTTL:       getEnvAsDuration("SESSION_TTL", time.Hour),
			MaxSessions:      getEnvAsInt("MAX_ACTIVE_SESSIONS", 100),
			PersistEvery:     getEnvAsInt("SESSION_PERSIST_EVERY", 5),
			SnapshotBackend:  getEnv("SESSION_SNAPSHOT_BACKEND", "file"),
			SnapshotPath:     getEnv("SESSION_SNAPSHOT_PATH", "memory/chat_sessions.json"),
			SnapshotKey:      getEnv("SESSION_SNAPSHOT_KEY", "rag:sessions"),
		},
		Retrieval: RetrievalConfig{
			VectorStore:       getEnv("VECTOR_STORE", "pgvector"),
			TopK:              getEnvAsInt("RETRIEVAL_TOP_K", 5),
			MinRelevance:      getEnvAsFloat("MIN_RELEVANCE", 0.3),
			MCQBoost:          getEnvAsFloat("MCQ_BOOST", 1.3),
			FactualBoost:      getEnvAsFloat("FACTUAL_BOOST", 1.1),
			ConfidenceBoost:   getEnvAsFloat("CONFIDENCE_BOOST", 1.2),
			ConfidenceTopN:    getEnvAsInt("CONFIDENCE_TOP_N", 3),
			ContextDocs:       getEnvAsInt("CONTEXT_DOCS", 5),
			BengaliRatio:      getEnvAsFloat("BENGALI_RATIO", 0.3),
			ChatContextLimit:  getEnvAsInt("CHAT_CONTEXT_LIMIT", 3),
			ChatContextBudget: getEnvAsInt("CHAT_CONTEXT_BUDGET", 500),
		},
		Index: IndexConfig{
			Topic:           getEnv("INDEX_DOCUMENT_TOPIC_NAME", "INDEX_DOCUMENT"),
			TriggerConsumer: getEnv("INDEX_TRIGGER_CONSUMER", "index-rebuilder"),
			ManifestPath:    getEnv("CORPUS_MANIFEST", "data/corpus.yaml"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("1500ms", "2m") or plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.ParseFloat(strValue, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return fallback
}
