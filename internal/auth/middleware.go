package auth

import (
	"errors"
	"strings"

	"journeybot/internal/logging"
	"journeybot/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// InitDataMiddleware verifies "Authorization: tma <initData>" and stores the
// Telegram user id in locals as user_id (int64).
func InitDataMiddleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := credentialsFromHeader(c.Get("Authorization"), "tma")
		if raw == "" {
			return reject(c, &Error{Reason: ReasonMissingHeader})
		}

		data, err := v.Verify(raw)
		if err != nil {
			return reject(c, err)
		}

		c.Locals("user_id", data.UserID)
		return c.Next()
	}
}

// StreamTokenMiddleware accepts a stream token from the token query parameter
// or a bearer header.
func StreamTokenMiddleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			token = credentialsFromHeader(c.Get("Authorization"), "Bearer")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing stream token")
		}

		userID, err := svc.ParseStreamToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

func reject(c *fiber.Ctx, err error) error {
	reason := ReasonBadSignature
	var authErr *Error
	if errors.As(err, &authErr) {
		reason = authErr.Reason
	}
	metrics.AuthRejectionsTotal.WithLabelValues(reason).Inc()
	logging.Debug().Str("reason", reason).Str("path", c.Path()).Msg("initData rejected")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "unauthorized",
		"reason":  reason,
	})
}

func credentialsFromHeader(header, scheme string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
