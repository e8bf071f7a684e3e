package controllers

import (
	"go-order-api/src/controllers/models"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/services/auth"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	authService auth.AuthService
	logger      log.Logger
}

func NewAuthController(authService auth.AuthService, logger log.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

func (c *AuthController) Route(app *fiber.App) {
	app.Post("/api/register", c.Register)
	app.Post("/api/login", c.Login)
	app.Post("/api/2fa/login", c.TwoFactorLogin)
}

// Register godoc
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  models.RegisterRequest  true  "Email and password"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/register [post]
func (c *AuthController) Register(ctx *fiber.Ctx) error {
	var request models.RegisterRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	if err := c.authService.Register(ctx.Context(), request.Email, request.Password); err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "user registered"})
}

// Login godoc
// @Summary      Log in with email and password
// @Description  Returns a session token, or a temporary token when 2FA is enabled
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  models.LoginRequest  true  "Email and password"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/login [post]
func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var request models.LoginRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	result, err := c.authService.Login(ctx.Context(), request.Email, request.Password)
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	if result.TwoFARequired {
		return ctx.JSON(fiber.Map{"2fa_required": true, "temp_token": result.TempToken})
	}
	return ctx.JSON(fiber.Map{"token": result.Token})
}

// TwoFactorLogin godoc
// @Summary      Complete a 2FA login
// @Description  Exchanges a temporary token plus TOTP code for a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        verification  body  models.TwoFactorLoginRequest  true  "Temporary token and TOTP code"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/2fa/login [post]
func (c *AuthController) TwoFactorLogin(ctx *fiber.Ctx) error {
	var request models.TwoFactorLoginRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON payload"})
	}

	token, err := c.authService.VerifyTwoFactorLogin(ctx.Context(), request.TempToken, request.Code)
	if err != nil {
		return handleServiceError(ctx, c.logger, err)
	}
	return ctx.JSON(fiber.Map{"token": token})
}
