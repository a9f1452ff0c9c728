package controller

import (
	"bangla-rag-be/internal/pkg/serverutils"
	"bangla-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type systemController struct {
	ragService service.IRagService
}

func NewSystemController(ragService service.IRagService) ISystemController {
	return &systemController{
		ragService: ragService,
	}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	r.Get("health", c.Health)
	r.Get("stats", c.Stats)
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get health", c.ragService.Health()))
}

func (c *systemController) Stats(ctx *fiber.Ctx) error {
	res, err := c.ragService.SystemStats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get stats", res))
}
