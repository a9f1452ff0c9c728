package main

import (
	"fmt"

	"bangla-rag-be/internal/bootstrap"
	"bangla-rag-be/internal/config"
	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/internal/repository/contract"
	"bangla-rag-be/internal/service"
	"bangla-rag-be/pkg/chunker"
	"bangla-rag-be/pkg/embedding"
	"bangla-rag-be/pkg/events"
	"bangla-rag-be/pkg/metrics"
	pktNats "bangla-rag-be/pkg/nats"
	"bangla-rag-be/pkg/ratelimit"
	"bangla-rag-be/pkg/vectorstore"
)

// deps is the slice of the service graph the CLI needs.
type deps struct {
	cfg      *config.Config
	log      *logger.ZapLogger
	store    vectorstore.Store
	embedder *embedding.Embedder
	natsPub  *pktNats.Publisher
}

func loadDeps(withEmbedder bool) (*deps, error) {
	cfg := config.Load()
	d := &deps{cfg: cfg, log: logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())}

	db, err := bootstrap.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if d.store, err = bootstrap.NewVectorStore(cfg, db); err != nil {
		return nil, err
	}
	if withEmbedder {
		registry := ratelimit.NewRegistry(ratelimit.SystemClock, d.log, nil)
		if d.embedder, err = bootstrap.NewEmbedder(cfg, registry, d.log); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// indexService publishes rebuild events when NATS is reachable.
func (d *deps) indexService() service.IIndexService {
	var publisher events.Publisher = events.NopPublisher{}
	if pub, err := pktNats.NewPublisher(d.cfg.App.NatsURL, d.log); err == nil {
		d.natsPub = pub
		publisher = pub
	}
	return service.NewIndexService(chunker.NewChunker(d.log), d.embedder, d.store, publisher, metrics.New(), d.log)
}

// repository exposes the pgvector table for listing and raw similarity search.
func (d *deps) repository() (contract.ChunkEmbeddingRepository, error) {
	repo, ok := d.store.(contract.ChunkEmbeddingRepository)
	if !ok {
		return nil, fmt.Errorf("vector store %q has no table to inspect, use VECTOR_STORE=pgvector", d.cfg.Retrieval.VectorStore)
	}
	return repo, nil
}

func (d *deps) close() {
	if d.natsPub != nil {
		d.natsPub.Close()
	}
	_ = d.log.Sync()
}
