package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"skillswap/internal/models"
	"skillswap/internal/services"
)

// UserKey is the fiber.Ctx locals key under which AuthRequired stores the
// authenticated *models.User.
const UserKey = "user"

// AuthRequired is a Fiber middleware that turns a Bearer token into a
// trusted identity, or rejects the request.
//
// The pipeline per request: no/malformed header -> 401 before any
// verification; bad signature or expired -> 401 with a generic message;
// subject no longer in the store -> 401. Only a fully resolved user
// reaches downstream handlers, with the password hash already cleared.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Access denied. No token provided.",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		subject, err := authService.ValidateToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired token.",
			})
		}

		// Signature checked out; now make sure the subject still exists.
		user, err := authService.GetUserByID(subject)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Token is valid but user no longer exists.",
			})
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}

// RoleRequired is a Fiber middleware allowing only the given roles. It
// must be registered after AuthRequired; it reads the resolved user from
// the context and never inspects raw tokens.
func RoleRequired(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Access denied. No token provided.",
			})
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Role '" + user.Role + "' is not authorized to access this route.",
		})
	}
}

// CurrentUser returns the authenticated user attached by AuthRequired, or
// nil when the request never passed authentication.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(UserKey).(*models.User)
	return user
}
