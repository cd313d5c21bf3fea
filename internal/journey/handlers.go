package journey

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RegisterRoutes mounts the read API. authMiddleware must store the caller's
// Telegram user id in locals under "user_id".
func RegisterRoutes(r fiber.Router, reader Reader, authMiddleware fiber.Handler) {
	r.Get("/journeys", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := callerID(c)
		if err != nil {
			return err
		}
		page, err := parsePage(c)
		if err != nil {
			return err
		}
		journeys, err := reader.ListJourneys(c.Context(), userID, page)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"page": page.Number, "limit": page.Limit, "journeys": journeys})
	})

	r.Get("/journeys/:id", authMiddleware, func(c *fiber.Ctx) error {
		j, err := ownedJourney(c, reader)
		if err != nil {
			return err
		}
		return c.JSON(j)
	})

	r.Get("/journeys/:id/coordinates", authMiddleware, func(c *fiber.Ctx) error {
		j, err := ownedJourney(c, reader)
		if err != nil {
			return err
		}
		page, err := parsePage(c)
		if err != nil {
			return err
		}
		coords, err := reader.ListCoordinatesPage(c.Context(), j.ID, page)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"page": page.Number, "limit": page.Limit, "coordinates": coords})
	})
}

func ownedJourney(c *fiber.Ctx, reader Reader) (Journey, error) {
	userID, err := callerID(c)
	if err != nil {
		return Journey{}, err
	}
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return Journey{}, fiber.NewError(fiber.StatusNotFound, "journey not found")
	}
	j, err := reader.GetJourney(c.Context(), userID, id)
	if errors.Is(err, ErrNotFound) {
		return Journey{}, fiber.NewError(fiber.StatusNotFound, "journey not found")
	}
	if err != nil {
		return Journey{}, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return j, nil
}

func callerID(c *fiber.Ctx) (int64, error) {
	userID, ok := c.Locals("user_id").(int64)
	if !ok || userID == 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
	}
	return userID, nil
}

func parsePage(c *fiber.Ctx) (Page, error) {
	page := Page{Number: 1, Limit: DefaultPageLimit}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fiber.NewError(fiber.StatusBadRequest, "page must be a positive integer")
		}
		page.Number = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPageLimit {
			return Page{}, fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxPageLimit))
		}
		page.Limit = n
	}
	return page, nil
}
