package stream

import (
	"context"
	"errors"

	"journeybot/internal/journey"
	"journeybot/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// JourneyLookup resolves a journey for its owner.
type JourneyLookup interface {
	GetJourney(ctx context.Context, userID int64, id string) (journey.Journey, error)
}

// RegisterRoutes mounts the live journey stream. authMiddleware must store the
// caller's user id in locals under "user_id".
func RegisterRoutes(r fiber.Router, hub *Hub, journeys JourneyLookup, authMiddleware fiber.Handler) {
	r.Get("/ws/:journeyID", authMiddleware, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, ok := c.Locals("user_id").(int64)
		if !ok || userID == 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
		}
		journeyID := c.Params("journeyID")
		if _, err := uuid.Parse(journeyID); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "journey not found")
		}
		_, err := journeys.GetJourney(c.Context(), userID, journeyID)
		if errors.Is(err, journey.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "journey not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		journeyID := c.Params("journeyID")
		client := hub.Register(journeyID)
		defer hub.Unregister(client)
		logging.Debug().Str("journey_id", journeyID).Msg("stream client connected")

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
