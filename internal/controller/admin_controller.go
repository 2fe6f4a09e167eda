package controller

import (
	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/pkg/serverutils"
	"ai-studytool-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	GetCreditConfig(ctx *fiber.Ctx) error
	UpdateCreditConfig(ctx *fiber.Ctx) error
	GetToolConfigs(ctx *fiber.Ctx) error
	UpdateToolConfigs(ctx *fiber.Ctx) error
	GetToolAnalytics(ctx *fiber.Ctx) error
	GrantCredits(ctx *fiber.Ctx) error
	GetCreditTransactions(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
	ListUsers(ctx *fiber.Ctx) error
	GetUser(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
}

func NewAdminController(service service.IAdminService) IAdminController {
	return &adminController{service: service}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(serverutils.AdminMiddleware)

	// Credit economy
	h.Get("/credit-config", c.GetCreditConfig)
	h.Put("/credit-config", c.UpdateCreditConfig)
	h.Get("/tool-configs", c.GetToolConfigs)
	h.Put("/tool-configs", c.UpdateToolConfigs)
	h.Get("/tool-analytics", c.GetToolAnalytics)

	// Users and wallets
	h.Get("/users", c.ListUsers)
	h.Get("/users/:id", c.GetUser)
	h.Post("/users/:id/credits", c.GrantCredits)
	h.Get("/credit-transactions", c.GetCreditTransactions)

	h.Get("/logs", c.GetLogs)
}

func (c *adminController) GetCreditConfig(ctx *fiber.Ctx) error {
	res, err := c.service.GetCreditConfig(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get credit config", res))
}

func (c *adminController) UpdateCreditConfig(ctx *fiber.Ctx) error {
	var req dto.UpdateCreditConfigRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.UpdateCreditConfig(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credit config updated", res))
}

func (c *adminController) GetToolConfigs(ctx *fiber.Ctx) error {
	res, err := c.service.GetToolConfigs(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get tool configs", res))
}

func (c *adminController) UpdateToolConfigs(ctx *fiber.Ctx) error {
	var req dto.UpdateToolConfigsRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.UpdateToolConfigs(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Tool configs updated", res))
}

func (c *adminController) GetToolAnalytics(ctx *fiber.Ctx) error {
	res, err := c.service.GetToolAnalytics(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get tool analytics", res))
}

func (c *adminController) GrantCredits(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}

	var req dto.GrantCreditsRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.GrantCredits(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credits granted", res))
}

func (c *adminController) GetCreditTransactions(ctx *fiber.Ctx) error {
	var userId *uuid.UUID
	if raw := ctx.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid userId")
		}
		userId = &id
	}

	res, err := c.service.GetCreditTransactions(ctx.UserContext(), userId, ctx.QueryInt("page", 1), ctx.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get credit transactions", res))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	res, err := c.service.GetSystemLogs(ctx.UserContext(), ctx.Query("level"), ctx.QueryInt("page", 1), ctx.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", res))
}

func (c *adminController) ListUsers(ctx *fiber.Ctx) error {
	res, err := c.service.ListUsers(ctx.UserContext(), dto.UserListQuery{
		Search: ctx.Query("search"),
		Role:   ctx.Query("role"),
		Status: ctx.Query("status"),
		Page:   ctx.QueryInt("page", 1),
		Limit:  ctx.QueryInt("limit", 20),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get users", res))
}

func (c *adminController) GetUser(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}

	res, err := c.service.GetUser(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get user", res))
}
