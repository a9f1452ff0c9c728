package main

import (
	"log"

	"bangla-rag-be/internal/config"
	"bangla-rag-be/internal/model"
	"bangla-rag-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	pool := database.DefaultPoolConfig()
	pool.Verbose = true
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, pool)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Installing pgvector and migrating chunk_embeddings...")
	if err := database.EnsureSchema(db, &model.ChunkEmbedding{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 2: Creating vector index...")
	indexSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_hnsw ON chunk_embeddings USING hnsw (embedding_value vector_cosine_ops);`,
	}
	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute index SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
