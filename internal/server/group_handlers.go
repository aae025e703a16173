package server

import (
	"context"

	"riverfeed/internal/middleware"
	"riverfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateGroupRequest is the body for group creation.
type CreateGroupRequest struct {
	Username     string              `json:"username"`
	Privacy      models.PrivacyLevel `json:"privacy"`
	IsRestricted bool                `json:"isRestricted"`
}

// CreateGroup creates a group account with the caller as its first admin.
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if !usernameRe.MatchString(req.Username) {
		return fail(c, models.NewValidationError("Username must be 3-25 alphanumeric characters"))
	}
	privacy := req.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	switch privacy {
	case models.PrivacyPublic, models.PrivacyProtected, models.PrivacyPrivate:
	default:
		return fail(c, models.NewValidationError("Unknown privacy level"))
	}

	if _, err := s.accountRepo.GetByUsername(ctx, req.Username); err == nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("Username already taken"))
	} else if !models.IsNotFound(err) {
		return fail(c, err)
	}

	group := &models.Account{
		Username:     req.Username,
		Type:         models.AccountTypeGroup,
		Privacy:      privacy,
		IsRestricted: req.IsRestricted,
	}
	if err := s.accountRepo.Create(ctx, group); err != nil {
		return fail(c, err)
	}
	if err := s.timelineRepo.CreateDefaults(ctx, group); err != nil {
		return fail(c, err)
	}
	if err := s.groupRepo.AddAdmin(ctx, group.ID, userID); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"group": group})
}

// AddGroupAdmin grants another user admin rights in a group. Admin only.
func (s *Server) AddGroupAdmin(c *fiber.Ctx) error {
	return s.groupAdminChange(c, s.groupRepo.AddAdmin, false)
}

// RemoveGroupAdmin revokes a user's admin rights in a group. Admin only.
// A group always keeps at least one admin.
func (s *Server) RemoveGroupAdmin(c *fiber.Ctx) error {
	return s.groupAdminChange(c, s.groupRepo.RemoveAdmin, true)
}

func (s *Server) groupAdminChange(c *fiber.Ctx, change func(ctx context.Context, groupID, userID uint) error, removing bool) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	group, err := s.accountRepo.GetByUsername(ctx, c.Params("groupName"))
	if err != nil {
		return fail(c, err)
	}
	if !group.IsGroup() || group.IsGone {
		return fail(c, models.NewNotFoundError("Can not find group"))
	}
	isAdmin, err := s.groupRepo.IsAdmin(ctx, group.ID, userID)
	if err != nil {
		return fail(c, err)
	}
	if !isAdmin {
		return fail(c, models.NewForbiddenError("Only administrators can manage this group"))
	}

	target, err := s.accountRepo.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		return fail(c, err)
	}
	if !target.IsUser() || target.IsGone {
		return fail(c, models.NewNotFoundError("Can not find account"))
	}

	if removing {
		adminIDs, err := s.groupRepo.AdminIDs(ctx, group.ID)
		if err != nil {
			return fail(c, err)
		}
		if len(adminIDs) == 1 && adminIDs[0] == target.ID {
			return fail(c, models.NewValidationError("Group must have at least one admin"))
		}
	}

	if err := change(ctx, group.ID, target.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"updated": true})
}
