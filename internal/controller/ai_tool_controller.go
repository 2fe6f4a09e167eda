package controller

import (
	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/pkg/serverutils"
	"ai-studytool-be/internal/service"
	"ai-studytool-be/pkg/studytool"

	"github.com/gofiber/fiber/v2"
)

type IAiToolController interface {
	RegisterRoutes(r fiber.Router)
	Run(toolType string) fiber.Handler
	Estimate(ctx *fiber.Ctx) error
	ListRequests(ctx *fiber.Ctx) error
	UsageStats(ctx *fiber.Ctx) error
}

type aiToolController struct {
	aiToolService service.IAiToolService
	limiter       fiber.Handler
}

// NewAiToolController takes the per-user limiter applied to tool invocations only.
func NewAiToolController(aiToolService service.IAiToolService, limiter fiber.Handler) IAiToolController {
	return &aiToolController{
		aiToolService: aiToolService,
		limiter:       limiter,
	}
}

func (c *aiToolController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/estimate", c.Estimate)
	h.Get("/requests", c.ListRequests)
	h.Get("/usage-stats", c.UsageStats)

	for _, tool := range studytool.Tools {
		if c.limiter != nil {
			h.Post("/"+tool, c.limiter, c.Run(tool))
		} else {
			h.Post("/"+tool, c.Run(tool))
		}
	}
}

func (c *aiToolController) Run(toolType string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userId, err := serverutils.GetUserId(ctx)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		var req dto.ToolRequest
		if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
			return err
		}

		res, err := c.aiToolService.Run(ctx.UserContext(), userId, service.ToolInvocation{
			ToolType: toolType,
			Text:     req.Text,
			Options:  req.Options,
		})
		if err != nil {
			return err
		}
		return ctx.JSON(serverutils.SuccessResponse("Success", res))
	}
}

func (c *aiToolController) Estimate(ctx *fiber.Ctx) error {
	var req dto.EstimateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.aiToolService.Estimate(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *aiToolController) ListRequests(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	res, err := c.aiToolService.ListRequests(ctx.UserContext(), userId, ctx.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get requests", res))
}

func (c *aiToolController) UsageStats(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	res, err := c.aiToolService.UsageStats(ctx.UserContext(), &userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get usage stats", res))
}
