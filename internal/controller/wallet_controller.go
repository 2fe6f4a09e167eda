package controller

import (
	"ai-studytool-be/internal/pkg/serverutils"
	"ai-studytool-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWalletController interface {
	RegisterRoutes(r fiber.Router)
	GetWallet(ctx *fiber.Ctx) error
	GetCosts(ctx *fiber.Ctx) error
	GetTransactions(ctx *fiber.Ctx) error
}

type walletController struct {
	walletService service.IWalletService
}

func NewWalletController(walletService service.IWalletService) IWalletController {
	return &walletController{walletService: walletService}
}

func (c *walletController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/wallet")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.GetWallet)
	h.Get("/costs", c.GetCosts)
	h.Get("/transactions", c.GetTransactions)
}

func (c *walletController) GetWallet(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	res, err := c.walletService.GetWallet(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get wallet", res))
}

func (c *walletController) GetCosts(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get credit costs", c.walletService.GetCreditCosts(ctx.UserContext())))
}

func (c *walletController) GetTransactions(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	res, err := c.walletService.ListTransactions(ctx.UserContext(), &userId, ctx.QueryInt("page", 1), ctx.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get transactions", res))
}
