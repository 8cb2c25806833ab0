package match

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/server"
	"github.com/studysync/tutormatch/internal/server/middleware"
)

const defaultAdmirersPageSize = 5

// handleFind returns ranked match suggestions for the user.
// GET /api/matches/find/:userId
func (s *Service) handleFind(c *fiber.Ctx) error {
	userID, ok := parseUserID(c, "userId")
	if !ok {
		return nil
	}

	results, err := s.FindMatches(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(results)
}

type swipeRequest struct {
	FromUserID uint64 `json:"fromUserId"`
	ToUserID   uint64 `json:"toUserId"`
}

// handleSwipe submits a directed swipe. The swiper is always the
// authenticated caller: an omitted fromUserId defaults to them, and a
// mismatching one is rejected rather than letting a caller swipe as
// someone else.
// POST /api/matches/swipe
func (s *Service) handleSwipe(c *fiber.Ctx) error {
	var req swipeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: "invalid request body"})
	}
	if req.ToUserID == 0 {
		return c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: "toUserId is required"})
	}

	authID, _ := c.Locals(middleware.LocalsAuthID).(string)
	caller, err := s.users.GetByAuthID(c.Context(), authID)
	if err != nil {
		return fail(c, err)
	}
	if req.FromUserID == 0 {
		req.FromUserID = caller.ID
	} else if req.FromUserID != caller.ID {
		return c.Status(fiber.StatusForbidden).
			JSON(server.ErrorResponse{Message: "fromUserId must be the authenticated user"})
	}

	outcome, err := s.Swipe(c.Context(), req.FromUserID, req.ToUserID)
	if err != nil {
		return fail(c, err)
	}

	if outcome.Matched {
		return c.JSON(fiber.Map{
			"matched": true,
			"match":   outcome.Match,
		})
	}
	return c.JSON(fiber.Map{
		"matched": false,
		"message": "Swipe recorded; waiting for mutual interest.",
	})
}

// handleProfile returns confirmed and pending matches for the user.
// GET /api/matches/profile/:userId
func (s *Service) handleProfile(c *fiber.Ctx) error {
	userID, ok := parseUserID(c, "userId")
	if !ok {
		return nil
	}

	view, err := s.Profile(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

// handleAdmirers lists who swiped on the user, paginated.
// GET /api/matches/admirers/:userId?paginationToken=...&limit=...
func (s *Service) handleAdmirers(c *fiber.Ctx) error {
	userID, ok := parseUserID(c, "userId")
	if !ok {
		return nil
	}

	limit := c.QueryInt("limit", defaultAdmirersPageSize)
	var token *string
	if t := c.Query("paginationToken"); t != "" {
		token = &t
	}

	admirers, nextToken, err := s.Admirers(c.Context(), userID, token, limit)
	if err != nil {
		return fail(c, err)
	}

	resp := fiber.Map{"admirers": admirers}
	if nextToken != nil {
		resp["nextPaginationToken"] = *nextToken
	}
	return c.JSON(resp)
}

// handleCountAdmirers returns the cached pending-swipe count.
// GET /api/matches/admirers/:userId/count
func (s *Service) handleCountAdmirers(c *fiber.Ctx) error {
	userID, ok := parseUserID(c, "userId")
	if !ok {
		return nil
	}

	count, err := s.CountAdmirers(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// parseUserID parses a path parameter into a user id, writing a 400
// response itself when the value is malformed.
func parseUserID(c *fiber.Ctx, param string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).
			JSON(server.ErrorResponse{Message: param + " must be a valid user id"})
		return 0, false
	}
	return id, true
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(svcErr.HTTPStatus(err)).
		JSON(server.ErrorResponse{Message: err.Error()})
}
