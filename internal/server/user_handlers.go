package server

import (
	"riverfeed/internal/middleware"
	"riverfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UpdateMeRequest is the body for updating the viewer's own account.
type UpdateMeRequest struct {
	Privacy models.PrivacyLevel `json:"privacy"`
}

// UpdateMe changes the viewer's privacy level. The change applies to all of
// the viewer's past and future posts.
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	var req UpdateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	switch req.Privacy {
	case models.PrivacyPublic, models.PrivacyProtected, models.PrivacyPrivate:
	default:
		return fail(c, models.NewValidationError("Unknown privacy level"))
	}

	account, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	account.Privacy = req.Privacy
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"user": account})
}

// SubscribeRequest optionally lists the home feed UIDs the subscription
// should appear in. Empty means the inherent home feed.
type SubscribeRequest struct {
	HomeFeeds []string `json:"homeFeeds"`
}

// Subscribe subscribes the viewer to a user or group.
func (s *Server) Subscribe(c *fiber.Ctx) error {
	var req SubscribeRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return fail(c, err)
	}
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.Subscribe(c.UserContext(), userID, c.Params("username"), req.HomeFeeds); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"subscribed": true})
}

// Unsubscribe removes the viewer's subscription to a user or group.
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.Unsubscribe(c.UserContext(), userID, c.Params("username")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"subscribed": false})
}

// UpdateSubscription changes which home feeds carry an existing subscription.
func (s *Server) UpdateSubscription(c *fiber.Ctx) error {
	var req SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.SetHomeFeeds(c.UserContext(), userID, c.Params("username"), req.HomeFeeds); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"updated": true})
}

// BanUser bans a user, severing subscriptions in both directions.
func (s *Server) BanUser(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.Ban(c.UserContext(), userID, c.Params("username")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"banned": true})
}

// UnbanUser lifts a ban. Severed subscriptions are not restored.
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.Unban(c.UserContext(), userID, c.Params("username")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"banned": false})
}

// BlockFromGroup prevents a user from posting to a group. Admin only.
func (s *Server) BlockFromGroup(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.BlockFromGroup(c.UserContext(), userID, c.Params("groupName"), c.Params("username")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"blocked": true})
}

// UnblockFromGroup lifts a group posting block. Admin only.
func (s *Server) UnblockFromGroup(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.UnblockFromGroup(c.UserContext(), userID, c.Params("groupName"), c.Params("username")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"blocked": false})
}
