package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/constants"
	"shares-backend/internal/pkg/response"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals(userLocal) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

func userField(c *fiber.Ctx, key string) string {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// GetRole returns the session user's role, or "" when not logged in.
func GetRole(c *fiber.Ctx) string {
	return userField(c, "role")
}

// GetUserID returns the session user's id.
func GetUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(userField(c, "user_id"))
	return id, err == nil
}

// GetPerformer maps the session user to the identity recorded on workflow logs:
// investors act as their Investor row, everyone else as an employee user.
func GetPerformer(c *fiber.Ctx) (domain.Performer, bool) {
	if GetRole(c) == constants.Investor {
		id, err := uuid.Parse(userField(c, "investor_id"))
		if err != nil {
			return domain.Performer{}, false
		}
		return domain.Performer{Type: domain.PerformerInvestor, ID: id}, true
	}
	id, ok := GetUserID(c)
	if !ok {
		return domain.Performer{}, false
	}
	return domain.Performer{Type: domain.PerformerEmployee, ID: id}, true
}
