package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/server"
)

// handleSignup registers a new user.
// POST /api/auth/signup
func (s *Service) handleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: "invalid request body"})
	}

	user, err := s.Signup(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully.",
		"userId":  user.ID,
	})
}

// handleLogin authenticates with email+password or a bearer token.
// POST /api/auth/login
func (s *Service) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	_ = c.BodyParser(&req)
	if tok := bearerToken(c); tok != "" {
		req.Token = tok
	}

	result, err := s.Login(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful.",
		"userId":  result.User.ID,
		"token":   result.Token,
	})
}

// handleDelete removes the authenticated account and everything it
// owns.
// POST /api/auth/delete
func (s *Service) handleDelete(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		var req LoginRequest
		_ = c.BodyParser(&req)
		token = req.Token
	}
	if token == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: "Missing token"})
	}

	if err := s.DeleteAccount(c.Context(), token); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully."})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(svcErr.HTTPStatus(err)).
		JSON(server.ErrorResponse{Message: err.Error()})
}
