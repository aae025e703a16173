package server

import (
	"context"

	"riverfeed/internal/middleware"
	"riverfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body for post creation. Feeds lists destination
// timeline UIDs; when empty the author's own Posts feed is used.
type CreatePostRequest struct {
	Body             string   `json:"body"`
	Feeds            []string `json:"feeds"`
	CommentsDisabled bool     `json:"commentsDisabled"`
}

// CreatePost publishes a new post to one or more destination feeds.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}

	post, err := s.postSvc.CreatePost(ctx, service.CreatePostInput{
		AuthorID:         userID,
		Body:             req.Body,
		DestinationUIDs:  req.Feeds,
		CommentsDisabled: req.CommentsDisabled,
	})
	if err != nil {
		return fail(c, err)
	}

	// Reload with author and destinations for serialization.
	full, err := s.postRepo.GetByUID(ctx, post.UID)
	if err != nil {
		return fail(c, err)
	}
	resp, err := s.serializer.PostResponse(ctx, userID, service.NewPostView(full))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetPost serves a single post with all comments and likes unfolded.
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	result, err := s.gate.Authorize(ctx, userID, gateParams(c, "postId"), []service.GateTarget{
		{Param: "postId", Kind: service.TargetPost},
	})
	if err != nil {
		return fail(c, err)
	}

	resp, err := s.serializer.PostResponse(ctx, userID, result.Post("postId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

// GetPostComments serves a post with its full comment thread.
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	return s.GetPost(c)
}

// UpdatePostRequest is the body for post edits.
type UpdatePostRequest struct {
	Body             string `json:"body"`
	CommentsDisabled *bool  `json:"commentsDisabled"`
}

// UpdatePost edits a post's body or comment setting. Author only.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	var req UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}

	result, err := s.gate.Authorize(ctx, userID, gateParams(c, "postId"), []service.GateTarget{
		{Param: "postId", Kind: service.TargetPost},
	})
	if err != nil {
		return fail(c, err)
	}

	view := result.Post("postId")
	if _, err := s.postSvc.UpdatePost(ctx, userID, view, req.Body, req.CommentsDisabled); err != nil {
		return fail(c, err)
	}
	resp, err := s.serializer.PostResponse(ctx, userID, view)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

// DeletePost deletes a post, or strips the admin's group feeds from it when
// a group admin deletes someone else's post.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	result, err := s.gate.Authorize(ctx, userID, gateParams(c, "postId"), []service.GateTarget{
		{Param: "postId", Kind: service.TargetPost},
	})
	if err != nil {
		return fail(c, err)
	}
	if err := s.postSvc.DeletePost(ctx, userID, result.Post("postId")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// gatedPostAction gates the post and applies one viewer-scoped action to it.
func (s *Server) gatedPostAction(c *fiber.Ctx, action func(ctx context.Context, userID uint, view *service.PostView) error) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	result, err := s.gate.Authorize(ctx, userID, gateParams(c, "postId"), []service.GateTarget{
		{Param: "postId", Kind: service.TargetPost},
	})
	if err != nil {
		return fail(c, err)
	}
	if err := action(ctx, userID, result.Post("postId")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// LikePost adds the viewer's like to a post.
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.gatedPostAction(c, s.postSvc.Like)
}

// UnlikePost removes the viewer's like from a post.
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.gatedPostAction(c, s.postSvc.Unlike)
}

// HidePost hides a post from the viewer's home feeds.
func (s *Server) HidePost(c *fiber.Ctx) error {
	return s.gatedPostAction(c, s.postSvc.Hide)
}

// UnhidePost reverses HidePost.
func (s *Server) UnhidePost(c *fiber.Ctx) error {
	return s.gatedPostAction(c, s.postSvc.Unhide)
}

// SavePost adds a post to the viewer's Saves feed.
func (s *Server) SavePost(c *fiber.Ctx) error {
	return s.gatedPostAction(c, s.postSvc.Save)
}

// UnsavePost removes a post from the viewer's Saves feed.
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	return s.gatedPostAction(c, s.postSvc.Unsave)
}

// RemovePostFromMe takes the post out of the viewer's reachable feeds
// without affecting anyone else.
func (s *Server) RemovePostFromMe(c *fiber.Ctx) error {
	return s.gatedPostAction(c, s.postSvc.RemoveFromViewer)
}
