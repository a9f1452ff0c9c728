package service

import (
	"context"
	"encoding/json"
	"errors"

	"bangla-rag-be/internal/dto"
	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/apperror"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber   message.Subscriber
	topicName    string
	indexService IIndexService
	logger       logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	indexService IIndexService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:   subscriber,
		topicName:    topicName,
		indexService: indexService,
		logger:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IndexDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // malformed payloads would fail forever
		return
	}

	cs.logger.Info("Consumer", "Indexing document", map[string]interface{}{
		"name":         payload.Name,
		"content_type": payload.ContentType,
	})

	report, err := cs.indexService.IngestDocument(ctx, payload)
	if err != nil {
		details := map[string]interface{}{"name": payload.Name, "error": err.Error()}
		// Retrying cannot help once the input is bad or the daily quota is gone.
		if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrQuotaExhausted) {
			cs.logger.Error("Consumer", "Document rejected", details)
			msg.Ack()
			return
		}
		cs.logger.Error("Consumer", "Indexing failed, will retry", details)
		msg.Nack()
		return
	}

	cs.logger.Info("Consumer", "Document indexed", map[string]interface{}{
		"name":              payload.Name,
		"chunks":            report.Chunks,
		"failed_embeddings": report.FailedEmbedding,
	})
	msg.Ack()
}
