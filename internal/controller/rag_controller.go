package controller

import (
	"fmt"

	"bangla-rag-be/internal/dto"
	"bangla-rag-be/internal/pkg/serverutils"
	"bangla-rag-be/internal/service"
	"bangla-rag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type IRagController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
}

type ragController struct {
	ragService service.IRagService
}

func NewRagController(ragService service.IRagService) IRagController {
	return &ragController{
		ragService: ragService,
	}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag/v1")
	h.Post("query", c.Query)
	h.Post("chat", c.Chat)
}

func parseQuery(ctx *fiber.Ctx) (*dto.QueryRequest, error) {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrValidation, err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *ragController) Query(ctx *fiber.Ctx) error {
	req, err := parseQuery(ctx)
	if err != nil {
		return err
	}

	res := c.ragService.Query(ctx.UserContext(), req)
	return ctx.JSON(serverutils.SuccessResponse("Success process query", res))
}

func (c *ragController) Chat(ctx *fiber.Ctx) error {
	req, err := parseQuery(ctx)
	if err != nil {
		return err
	}

	res := c.ragService.Chat(ctx.UserContext(), req)
	return ctx.JSON(serverutils.SuccessResponse("Success process chat", res))
}
