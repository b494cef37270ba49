package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/exam-hall-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleAdmin   = "admin"
	AuthRoleStudent = "student"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role string
	// OwnerParam names a path parameter holding a student id. Students may only address
	// their own id; administrators may address any.
	OwnerParam string
}

// WithAuth wraps a handler with authentication, role and ownership guards. It expects
// JWTProtected to have run first.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		currentRole := normalizeRoleValue(c.Locals("user_role"))
		switch role {
		case AuthRoleAny:
			if currentRole != AuthRoleAdmin && currentRole != AuthRoleStudent {
				return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
			}
		default:
			if currentRole != role {
				return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
			}
		}

		if opts.OwnerParam != "" && currentRole != AuthRoleAdmin {
			owner, err := c.ParamsInt(opts.OwnerParam)
			if err != nil || owner <= 0 {
				return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
			}
			if uint(owner) != userID {
				return utils.SendError(c, fiber.StatusForbidden, "access to another student's records is not allowed")
			}
		}

		return handler(c)
	}
}
