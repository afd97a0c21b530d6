package server

import (
	"minisocial/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/users/search?q=
// @Summary Search users by username
// @Description Case-insensitive substring match. An empty query returns an empty list.
// @Tags users
// @Produce json
// @Param q query string false "Query"
// @Param limit query int false "Max results (default 20, max 100)"
// @Success 200 {array} models.PublicUser
// @Security BearerAuth
// @Router /users/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.userService.SearchUsers(c.UserContext(), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/users/:userId
// @Summary Get a user's profile
// @Tags users
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{userId} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	profile, err := s.userService.GetUserProfile(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// ToggleFollow handles POST /api/users/follow/:userId
// @Summary Follow or unfollow a user
// @Tags users
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/follow/{userId} [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	res, err := s.followService.ToggleFollow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// GetFeatureFlags handles GET /api/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(currentUserID(c)))
}
