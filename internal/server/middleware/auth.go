package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/studysync/tutormatch/internal/auth"
	"github.com/studysync/tutormatch/internal/server"
)

// LocalsAuthID is the request-locals key holding the verified external
// identity of the caller.
const LocalsAuthID = "auth_id"

// Protected verifies the bearer token on every request and stores the
// caller's external id in request locals.
func Protected(verifier auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).
				JSON(server.ErrorResponse{Message: "Missing authorization header"})
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).
				JSON(server.ErrorResponse{Message: "Authorization header format must be Bearer {token}"})
		}

		identity, err := verifier.Verify(c.Context(), parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).
				JSON(server.ErrorResponse{Message: "Not authorized or invalid token"})
		}

		c.Locals(LocalsAuthID, identity.ExternalID)
		return c.Next()
	}
}
