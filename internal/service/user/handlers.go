package user

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/server"
)

// handleGet returns the user's details.
// GET /api/user/:userId
func (s *Service) handleGet(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return nil
	}

	u, err := s.Get(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// handleUpdate replaces the user's basic details.
// PUT /api/user/:userId
func (s *Service) handleUpdate(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return nil
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: "invalid request body"})
	}

	u, err := s.Update(c.Context(), userID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// handleUpdatePreference applies a partial preference update.
// POST /api/user/:userId/preference
func (s *Service) handleUpdatePreference(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return nil
	}

	var req UpdatePreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: "invalid request body"})
	}

	pref, err := s.UpdatePreference(c.Context(), userID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(pref)
}

func parseUserID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("userId"), 10, 64)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: "userId must be a valid user id"})
		return 0, false
	}
	return id, true
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(svcErr.HTTPStatus(err)).
		JSON(server.ErrorResponse{Message: err.Error()})
}
