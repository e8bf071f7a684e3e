package controllers

import (
	"errors"
	"strings"
	"time"

	"go-order-api/src/apperrors"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/services/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userEmailKey = "userEmail"

// AuthRequired verifies the Bearer token and stores the account identity in
// the request locals. Pending 2FA tokens are rejected here: they are only
// good for the 2FA login endpoint, which does not sit behind this
// middleware.
func AuthRequired(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing bearer token"})
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid token"})
		}
		if claims.TwoFAPending {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "two-factor verification required"})
		}

		c.Locals(userEmailKey, claims.Subject)
		return c.Next()
	}
}

// AuthenticatedEmail returns the identity set by AuthRequired.
func AuthenticatedEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(userEmailKey).(string)
	return email
}

// RequestLogger tags each request with a correlation id and logs one line
// when it completes.
func RequestLogger(logger log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		ctx := logger.WithCorrelationID(c.Context(), uuid.NewString())

		err := c.Next()

		logger.Response(ctx, &log.Field{
			URL:            c.OriginalURL(),
			HostName:       c.Hostname(),
			HTTPMethod:     c.Method(),
			HTTPStatusCode: c.Response().StatusCode(),
			Duration:       time.Since(start).Milliseconds(),
			Message:        "HTTP request completed",
		})
		return err
	}
}

// handleServiceError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is logged with full detail and answered with a
// redacted 500.
func handleServiceError(c *fiber.Ctx, logger log.Logger, err error) error {
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		body := fiber.Map{"message": validationErr.Message}
		if len(validationErr.Violations) > 0 {
			body["violations"] = validationErr.Violations
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}
	if apperrors.IsConflictError(err) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	}
	if apperrors.IsNotFoundError(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	}
	if apperrors.IsAuthError(err) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})
	}

	logger.Exception(c.Context(), "Unexpected error while handling request", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
}
