package webhook

import (
	"context"
	"errors"

	"journeybot/internal/logging"
	"journeybot/internal/telegram"

	"github.com/gofiber/fiber/v2"
)

// EventHandler applies one classified update.
type EventHandler interface {
	Handle(ctx context.Context, ev telegram.Event) error
}

// RegisterRoutes mounts the Telegram ingestion endpoint. Responses are plain
// text; the sender only looks at the status code.
func RegisterRoutes(r fiber.Router, svc EventHandler) {
	r.Post("/update", func(c *fiber.Ctx) error {
		update, err := telegram.ParseUpdate(c.Body())
		if err != nil {
			var verr *telegram.ValidationError
			if errors.As(err, &verr) {
				logging.Warn().Err(err).Msg("rejected webhook update")
				return c.Status(fiber.StatusBadRequest).SendString("Bad Request: " + verr.Error())
			}
			return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
		}

		ev := telegram.Classify(update)
		if err := svc.Handle(c.UserContext(), ev); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}
		return c.SendString("OK")
	})
}
