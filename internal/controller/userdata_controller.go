package controller

import (
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUserdataController interface {
	RegisterRoutes(r fiber.Router)
	Erase(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
}

type userdataController struct {
	userdataService service.IUserdataService
}

func NewUserdataController(userdataService service.IUserdataService) IUserdataController {
	return &userdataController{
		userdataService: userdataService,
	}
}

func (c *userdataController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/userdata/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("export", c.Export)
	h.Delete("", c.Erase)
}

func (c *userdataController) Erase(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	if err := c.userdataService.Erase(ctx.Context(), userId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("User data erased", nil))
}

func (c *userdataController) Export(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.userdataService.Export(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("User data export", res))
}
