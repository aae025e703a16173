package server

import (
	"strings"
	"time"

	"riverfeed/internal/middleware"
	"riverfeed/internal/models"
	"riverfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// fail writes the error with the status it maps to.
func fail(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// unauthenticated is the error for routes that serve anonymous viewers in
// general but were asked for viewer-scoped data.
func unauthenticated() error {
	return models.NewUnauthorizedError("Authentication required")
}

// truthy parses the accepted boolean query tokens. Anything else is false.
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseFeedParams reads the shared feed query parameters. Values the
// resolver would reject are left for its normalization to fix; malformed
// timestamps are ignored rather than rejected.
func parseFeedParams(c *fiber.Ctx) service.FeedRequest {
	req := service.FeedRequest{
		ViewerID:       middleware.CurrentUserID(c),
		Limit:          c.QueryInt("limit", service.DefaultFeedLimit),
		Offset:         c.QueryInt("offset", 0),
		Sort:           c.Query("sort"),
		HomeFeedMode:   c.Query("homefeed-mode"),
		WithLocalBumps: truthy(c.Query("with-local-bumps", "yes")),
		WithMyPosts:    truthy(c.Query("with-my-posts")),
		WithoutDirects: truthy(c.Query("without-directs")),
	}
	if t, err := time.Parse(time.RFC3339, c.Query("created-before")); err == nil {
		req.CreatedBefore = &t
	}
	if t, err := time.Parse(time.RFC3339, c.Query("created-after")); err == nil {
		req.CreatedAfter = &t
	}
	return req
}

// serveFeed resolves the request and writes the hydrated page.
func (s *Server) serveFeed(c *fiber.Ctx, feed *models.Timeline, req service.FeedRequest) error {
	ctx := c.UserContext()
	req.Timeline = feed

	page, err := s.resolver.GetFeed(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	resp, err := s.serializer.FeedResponse(ctx, req.ViewerID, feed, page)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

// accountFeed loads a non-gone account's feed of the given kind by username.
// Gone accounts and missing feeds are both reported as an absent feed.
func (s *Server) accountFeed(c *fiber.Ctx, kind models.FeedKind) (*models.Timeline, error) {
	ctx := c.UserContext()
	account, err := s.accountRepo.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundError("Can not find feed")
		}
		return nil, err
	}
	feed, err := s.timelineRepo.OwnerFeed(ctx, account.ID, kind)
	if err != nil {
		return nil, err
	}
	feed.Owner = account
	return feed, nil
}

// viewerFeed loads the authenticated viewer's own feed of the given kind.
func (s *Server) viewerFeed(c *fiber.Ctx, kind models.FeedKind) (*models.Timeline, uint, error) {
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		return nil, 0, unauthenticated()
	}
	ctx := c.UserContext()
	feed, err := s.timelineRepo.OwnerFeed(ctx, userID, kind)
	if err != nil {
		return nil, 0, err
	}
	if feed.Owner == nil {
		owner, err := s.accountRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		feed.Owner = owner
	}
	return feed, userID, nil
}

// gateParams lifts the route parameters a gate references into a plain map.
func gateParams(c *fiber.Ctx, names ...string) map[string]string {
	params := make(map[string]string, len(names))
	for _, name := range names {
		params[name] = c.Params(name)
	}
	return params
}
