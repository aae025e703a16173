package server

import (
	"riverfeed/internal/middleware"
	"riverfeed/internal/models"
	"riverfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPostsFeed serves an account's main feed.
func (s *Server) GetPostsFeed(c *fiber.Ctx) error {
	feed, err := s.accountFeed(c, models.FeedPosts)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetLikesFeed serves the posts a user liked.
func (s *Server) GetLikesFeed(c *fiber.Ctx) error {
	feed, err := s.accountFeed(c, models.FeedLikes)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetCommentsFeed serves the posts a user commented on.
func (s *Server) GetCommentsFeed(c *fiber.Ctx) error {
	feed, err := s.accountFeed(c, models.FeedComments)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetHomeFeed serves the viewer's inherent river of news.
func (s *Server) GetHomeFeed(c *fiber.Ctx) error {
	feed, _, err := s.viewerFeed(c, models.FeedRiverOfNews)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetAuxiliaryHomeFeed serves one of the viewer's secondary home feeds.
func (s *Server) GetAuxiliaryHomeFeed(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		return fail(c, unauthenticated())
	}

	feed, err := s.timelineRepo.GetByUID(ctx, c.Params("feedId"))
	if err != nil {
		return fail(c, err)
	}
	if feed.Kind != models.FeedRiverOfNews || feed.OwnerID != userID {
		return fail(c, models.NewNotFoundError("Can not find home feed"))
	}
	owner, err := s.accountRepo.GetByID(ctx, feed.OwnerID)
	if err != nil {
		return fail(c, err)
	}
	feed.Owner = owner
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetDiscussionsFeed serves the posts the viewer liked or commented on.
func (s *Server) GetDiscussionsFeed(c *fiber.Ctx) error {
	feed, _, err := s.viewerFeed(c, models.FeedMyDiscussions)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetDirectsFeed serves the viewer's direct messages.
func (s *Server) GetDirectsFeed(c *fiber.Ctx) error {
	feed, _, err := s.viewerFeed(c, models.FeedDirects)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetSavesFeed serves the posts the viewer saved.
func (s *Server) GetSavesFeed(c *fiber.Ctx) error {
	feed, _, err := s.viewerFeed(c, models.FeedSaves)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetHidesFeed serves the posts the viewer hid from home feeds.
func (s *Server) GetHidesFeed(c *fiber.Ctx) error {
	feed, _, err := s.viewerFeed(c, models.FeedHides)
	if err != nil {
		return fail(c, err)
	}
	return s.serveFeed(c, feed, parseFeedParams(c))
}

// GetEverythingFeed serves all public posts sitewide, behind a feature flag.
func (s *Server) GetEverythingFeed(c *fiber.Ctx) error {
	req := parseFeedParams(c)
	req.Virtual = service.VirtualEverything
	return s.serveFeed(c, nil, req)
}

// GetBestOfFeed serves the most discussed public posts, behind a feature flag.
func (s *Server) GetBestOfFeed(c *fiber.Ctx) error {
	req := parseFeedParams(c)
	req.Virtual = service.VirtualBestOf
	return s.serveFeed(c, nil, req)
}
