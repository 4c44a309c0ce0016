package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"docvault/internal/model"
)

// Headers set by the authenticating proxy in front of the vault.
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"

	actorLocalKey = "actor"
)

// Actor reads the already-authenticated identity forwarded by the auth proxy. Requests without a
// usable identity are rejected with 401; nothing here verifies credentials.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Header values alias the request buffer; the actor is persisted as the uploader.
		actor := model.Actor{
			ID:   utils.CopyString(strings.TrimSpace(c.Get(ActorIDHeader))),
			Role: model.Role(utils.CopyString(strings.ToUpper(strings.TrimSpace(c.Get(ActorRoleHeader))))),
		}
		if actor.ID == "" || !actor.Role.Valid() {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid actor identity")
		}
		c.Locals(actorLocalKey, actor)
		return c.Next()
	}
}

// GetActor returns the identity stored by Actor.
func GetActor(c *fiber.Ctx) (model.Actor, bool) {
	a, ok := c.Locals(actorLocalKey).(model.Actor)
	return a, ok
}
