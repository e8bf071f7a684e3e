package controllers

import (
	"go-order-api/src/controllers/models"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/services/auth"

	"github.com/gofiber/fiber/v2"
)

type TwoFactorController struct {
	authService auth.AuthService
	logger      log.Logger
}

func NewTwoFactorController(authService auth.AuthService, logger log.Logger) *TwoFactorController {
	return &TwoFactorController{
		authService: authService,
		logger:      logger,
	}
}

func (c *TwoFactorController) Route(app *fiber.App, authRequired fiber.Handler) {
	api := app.Group("/api/2fa", authRequired)
	api.Post("/setup", c.Setup)
	api.Post("/enable", c.Enable)
	api.Post("/disable", c.Disable)
}

// Setup godoc
// @Summary      Generate a 2FA secret
// @Description  Returns a fresh TOTP secret and provisioning URI; nothing is stored yet
// @Tags         2fa
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/2fa/setup [post]
func (c *TwoFactorController) Setup(ctx *fiber.Ctx) error {
	setup, err := c.authService.SetupTwoFactor(ctx.Context(), AuthenticatedEmail(ctx))
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(fiber.Map{"secret": setup.Secret, "qrCode": setup.ProvisioningURI})
}

// Enable godoc
// @Summary      Enable 2FA
// @Description  Verifies a code against the supplied secret and persists it
// @Tags         2fa
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        enable  body  models.TwoFactorEnableRequest  true  "Secret and current TOTP code"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/2fa/enable [post]
func (c *TwoFactorController) Enable(ctx *fiber.Ctx) error {
	var request models.TwoFactorEnableRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	if err := c.authService.EnableTwoFactor(ctx.Context(), AuthenticatedEmail(ctx), request.Secret, request.Code); err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(fiber.Map{"message": "2FA enabled"})
}

// Disable godoc
// @Summary      Disable 2FA
// @Tags         2fa
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/2fa/disable [post]
func (c *TwoFactorController) Disable(ctx *fiber.Ctx) error {
	if err := c.authService.DisableTwoFactor(ctx.Context(), AuthenticatedEmail(ctx)); err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(fiber.Map{"message": "2FA disabled"})
}
