package server

import (
	"riverfeed/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// ListHomeFeeds returns the viewer's home feeds in display order.
func (s *Server) ListHomeFeeds(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		return fail(c, unauthenticated())
	}
	feeds, err := s.homeFeeds.ListHomeFeeds(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"timelines": feeds})
}

// HomeFeedRequest is the body for creating or renaming a home feed.
type HomeFeedRequest struct {
	Title string `json:"title"`
}

// CreateHomeFeed creates a secondary home feed for the viewer.
func (s *Server) CreateHomeFeed(c *fiber.Ctx) error {
	var req HomeFeedRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}
	feed, err := s.homeFeeds.CreateHomeFeed(c.UserContext(), middleware.CurrentUserID(c), req.Title)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"timeline": feed})
}

// RenameHomeFeed renames one of the viewer's home feeds.
func (s *Server) RenameHomeFeed(c *fiber.Ctx) error {
	var req HomeFeedRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.RenameHomeFeed(c.UserContext(), userID, c.Params("feedId"), req.Title); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"updated": true})
}

// DeleteHomeFeed deletes a secondary home feed, moving its subscriptions to
// the backup feed, or to the inherent home feed when none is given.
func (s *Server) DeleteHomeFeed(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	backup := c.Query("backup")
	if err := s.homeFeeds.DeleteHomeFeed(c.UserContext(), userID, c.Params("feedId"), backup); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// ReorderRequest lists home feed UIDs in the desired display order.
type ReorderRequest struct {
	Reorder []string `json:"reorder"`
}

// ReorderHomeFeeds reorders the viewer's home feeds.
func (s *Server) ReorderHomeFeeds(c *fiber.Ctx) error {
	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}
	userID := middleware.CurrentUserID(c)
	if err := s.homeFeeds.ReorderHomeFeeds(c.UserContext(), userID, req.Reorder); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"updated": true})
}
