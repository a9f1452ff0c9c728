package controller

import (
	"bangla-rag-be/internal/pkg/serverutils"
	"bangla-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Post("", c.Create)
	h.Get(":id/history", c.History)
	h.Get(":id/stats", c.Stats)
	h.Delete(":id", c.Delete)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res := c.sessionService.Create(ctx.UserContext())
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *sessionController) History(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 10)
	res := c.sessionService.History(ctx.UserContext(), ctx.Params("id"), limit)
	return ctx.JSON(serverutils.SuccessResponse("Success get session history", res))
}

func (c *sessionController) Stats(ctx *fiber.Ctx) error {
	res, err := c.sessionService.Stats(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session stats", res))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	res, err := c.sessionService.Delete(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete session", res))
}
