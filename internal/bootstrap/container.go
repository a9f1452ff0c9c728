package bootstrap

import (
	"context"
	"errors"

	"bangla-rag-be/internal/config"
	"bangla-rag-be/internal/controller"
	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/internal/service"
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/chunker"
	"bangla-rag-be/pkg/events"
	"bangla-rag-be/pkg/metrics"
	pktNats "bangla-rag-be/pkg/nats"
	"bangla-rag-be/pkg/rag/executor"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/rag/response"
	"bangla-rag-be/pkg/rag/search"
	"bangla-rag-be/pkg/rag/session"
	"bangla-rag-be/pkg/ratelimit"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	Logger  *logger.ZapLogger
	Metrics *metrics.Metrics
	Memory  *session.Manager

	// Controllers
	SystemController  controller.ISystemController
	RagController     controller.IRagController
	SessionController controller.ISessionController
	IndexController   controller.IIndexController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	IndexService    service.IIndexService

	cfg     *config.Config
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	pubSub  *gochannel.GoChannel
}

// NewContainer wires the whole query and indexing graph. db may be nil when the in-process vector store is selected.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger *logger.ZapLogger) (*Container, error) {
	// 1. Core Facades
	m := metrics.New()
	registry := ratelimit.NewRegistry(ratelimit.SystemClock, sysLogger, m)

	store, err := NewVectorStore(cfg, db)
	if err != nil {
		return nil, err
	}
	embedder, err := NewEmbedder(cfg, registry, sysLogger)
	if err != nil {
		return nil, err
	}
	generator, err := NewGenerator(cfg, registry, sysLogger)
	if err != nil {
		return nil, err
	}

	// 2. Event Bus
	c := &Container{cfg: cfg, Logger: sysLogger, Metrics: m}

	var publisher events.Publisher = events.NopPublisher{}
	if natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger); err != nil {
		sysLogger.Warn("Bootstrap", "NATS publisher unavailable, events disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		c.natsPub = natsPub
		publisher = natsPub
	}
	if natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger); err != nil {
		sysLogger.Warn("Bootstrap", "NATS subscriber unavailable, remote rebuild triggers disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		c.natsSub = natsSub
	}

	c.pubSub = gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)

	// 3. Session memory
	c.Memory = session.NewManager(session.Config{
		MaxSessionMemory: cfg.Memory.MaxSessionMemory,
		TTL:              cfg.Memory.SessionTTL,
		MaxSessions:      cfg.Memory.MaxSessions,
		PersistEvery:     cfg.Memory.PersistEvery,
		ContextBudget:    cfg.Retrieval.ChatContextBudget,
	}, NewSnapshotStore(cfg, sysLogger), sysLogger)

	if n, err := c.Memory.Load(context.Background()); err != nil {
		sysLogger.Warn("Bootstrap", "Failed to load session snapshot", map[string]interface{}{"error": err.Error()})
	} else {
		sysLogger.Info("Bootstrap", "Sessions restored", map[string]interface{}{"count": n})
	}

	// 4. Services
	orchestrator := executor.NewOrchestrator(
		query.NewProcessor(cfg.Retrieval.BengaliRatio),
		c.Memory,
		embedder,
		search.NewRetriever(store, search.RankConfig{
			MinRelevance: cfg.Retrieval.MinRelevance,
			MCQBoost:     cfg.Retrieval.MCQBoost,
			FactualBoost: cfg.Retrieval.FactualBoost,
		}, sysLogger),
		response.NewGenerator(generator, response.Config{
			ContextDocs:     cfg.Retrieval.ContextDocs,
			SourceCount:     response.DefaultConfig().SourceCount,
			ConfidenceTopN:  cfg.Retrieval.ConfidenceTopN,
			ConfidenceBoost: cfg.Retrieval.ConfidenceBoost,
		}, sysLogger),
		publisher,
		m,
		executor.Config{
			TopK:             cfg.Retrieval.TopK,
			ChatContextLimit: cfg.Retrieval.ChatContextLimit,
		},
		sysLogger,
	)

	ragService := service.NewRagService(orchestrator, store)
	sessionService := service.NewSessionService(c.Memory)
	c.IndexService = service.NewIndexService(chunker.NewChunker(sysLogger), embedder, store, publisher, m, sysLogger)
	publisherService := service.NewPublisherService(cfg.Index.Topic, c.pubSub)
	c.ConsumerService = service.NewConsumerService(c.pubSub, cfg.Index.Topic, c.IndexService, sysLogger)

	// 5. Controllers
	c.SystemController = controller.NewSystemController(ragService)
	c.RagController = controller.NewRagController(ragService)
	c.SessionController = controller.NewSessionController(sessionService)
	c.IndexController = controller.NewIndexController(
		c.IndexService,
		publisherService,
		cfg.Index.ManifestPath,
		cfg.App.JwtSecret,
		sysLogger,
	)

	return c, nil
}

// StartBackground runs the indexing consumer and listens for remote rebuild requests.
func (c *Container) StartBackground(ctx context.Context) error {
	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}

	if c.natsSub == nil {
		return nil
	}
	return c.natsSub.Subscribe(events.TypeIndexRequested, c.cfg.Index.TriggerConsumer, func(ctx context.Context, event events.Event) error {
		c.Logger.Info("Bootstrap", "Rebuild requested", event.Payload())
		_, err := c.IndexService.RebuildFromPath(ctx, c.cfg.Index.ManifestPath)
		if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrQuotaExhausted) {
			c.Logger.Error("Bootstrap", "Rebuild request dropped", map[string]interface{}{"error": err.Error()})
			return nil
		}
		return err
	})
}

// Close persists sessions and releases the broker connections.
func (c *Container) Close(ctx context.Context) {
	if err := c.Memory.SaveAndCleanup(ctx); err != nil {
		c.Logger.Error("Bootstrap", "Failed to persist sessions on shutdown", map[string]interface{}{"error": err.Error()})
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn("Bootstrap", "Failed to close event bus", map[string]interface{}{"error": err.Error()})
	}
}
