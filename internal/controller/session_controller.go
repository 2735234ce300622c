package controller

import (
	"ai-orchestrator-be/internal/apperror"
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	UpdateState(ctx *fiber.Ctx) error
	Terminate(ctx *fiber.Ctx) error
}

type sessionController struct {
	registryService service.IRegistryService
}

func NewSessionController(registryService service.IRegistryService) ISessionController {
	return &sessionController{
		registryService: registryService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get(":id/state", c.GetState)
	h.Patch(":id/state", c.UpdateState)
	h.Delete(":id", c.Terminate)
}

func currentUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, apperror.AuthFailure("Missing user identity")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, apperror.AuthFailure("Invalid user identity")
	}
	return userId, nil
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.ProtocolViolation("Invalid request body")
		}
		if req.Persona != nil {
			if err := serverutils.ValidateRequest(req.Persona); err != nil {
				return apperror.ProtocolViolation(err.Error())
			}
		}
	}

	res, err := c.registryService.CreateSession(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *sessionController) GetState(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.ProtocolViolation("Invalid session id")
	}

	res, err := c.registryService.GetState(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session state", res))
}

func (c *sessionController) UpdateState(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.ProtocolViolation("Invalid session id")
	}

	var req dto.UpdateSessionStateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.ProtocolViolation("Invalid request body")
	}
	if req.Persona != nil {
		if err := serverutils.ValidateRequest(req.Persona); err != nil {
			return apperror.ProtocolViolation(err.Error())
		}
	}

	res, err := c.registryService.UpdateState(ctx.Context(), userId, sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session state updated", res))
}

func (c *sessionController) Terminate(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.ProtocolViolation("Invalid session id")
	}

	if err := c.registryService.Terminate(ctx.Context(), userId, sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session terminated", nil))
}
