package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"bangla-rag-be/internal/dto"
	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/internal/pkg/serverutils"
	"bangla-rag-be/internal/service"
	"bangla-rag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type IIndexController interface {
	RegisterRoutes(r fiber.Router)
	IngestDocument(ctx *fiber.Ctx) error
	Rebuild(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type indexController struct {
	indexService     service.IIndexService
	publisherService service.IPublisherService
	manifestPath     string
	jwtSecret        string
	logger           logger.ILogger
}

func NewIndexController(
	indexService service.IIndexService,
	publisherService service.IPublisherService,
	manifestPath string,
	jwtSecret string,
	log logger.ILogger,
) IIndexController {
	return &indexController{
		indexService:     indexService,
		publisherService: publisherService,
		manifestPath:     manifestPath,
		jwtSecret:        jwtSecret,
		logger:           log,
	}
}

func (c *indexController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/index/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("stats", c.Stats)
	h.Post("documents", c.IngestDocument)
	h.Post("rebuild", c.Rebuild)
}

// IngestDocument queues the document for the indexing consumer and returns immediately.
func (c *indexController) IngestDocument(ctx *fiber.Ctx) error {
	var req dto.IndexDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrValidation, err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	payload, err := json.Marshal(dto.IndexDocumentMessage{
		Name:        req.Name,
		ContentType: req.ContentType,
		Content:     req.Content,
	})
	if err != nil {
		return err
	}
	if err := c.publisherService.Publish(ctx.UserContext(), payload); err != nil {
		return err
	}

	res := dto.IndexAcceptedResponse{Name: req.Name, Status: "queued"}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document queued for indexing", res))
}

// Rebuild starts a full rebuild in the background. Bulk embedding is paced, so it outlives the request.
func (c *indexController) Rebuild(ctx *fiber.Ctx) error {
	var req dto.RebuildRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fmt.Errorf("%w: %v", apperror.ErrValidation, err)
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}
	path := req.ManifestPath
	if path == "" {
		path = c.manifestPath
	}

	go func() {
		report, err := c.indexService.RebuildFromPath(context.Background(), path)
		if err != nil {
			c.logger.Error("Indexer", "Rebuild failed", map[string]interface{}{
				"manifest": path,
				"error":    err.Error(),
			})
			return
		}
		c.logger.Info("Indexer", "Rebuild finished", map[string]interface{}{
			"manifest": path,
			"chunks":   report.Chunks,
		})
	}()

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Rebuild started", fiber.Map{"manifest_path": path}))
}

func (c *indexController) Stats(ctx *fiber.Ctx) error {
	total, byType, err := c.indexService.Stats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get index stats", fiber.Map{
		"total_chunks":   total,
		"chunks_by_type": byType,
	}))
}
