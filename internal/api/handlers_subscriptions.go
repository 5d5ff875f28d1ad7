package api

import (
	"strings"
	"time"

	"github.com/davrius/taskwell/internal/models"
	"github.com/gofiber/fiber/v2"
)

type subscriptionPayload struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// UpsertSubscription registers a browser push endpoint. Re-registering the
// same (user, endpoint) refreshes the keys instead of appending a duplicate.
func (handler *Handler) UpsertSubscription(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	payload := subscriptionPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if strings.TrimSpace(payload.Endpoint) == "" || payload.Keys.P256dh == "" || payload.Keys.Auth == "" {
		return apiError(c, fiber.StatusBadRequest, "invalid subscription")
	}

	subscription := models.PushSubscription{
		UserID:    user.ID,
		Endpoint:  strings.TrimSpace(payload.Endpoint),
		P256dhKey: payload.Keys.P256dh,
		AuthKey:   payload.Keys.Auth,
		CreatedAt: time.Now(),
	}
	if err := handler.repositories.Subscriptions.Upsert(&subscription); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

func (handler *Handler) GetVAPIDPublicKey(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"publicKey": handler.push.VAPIDPublicKey()})
}
