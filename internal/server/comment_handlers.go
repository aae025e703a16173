package server

import (
	"riverfeed/internal/middleware"
	"riverfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommentRequest is the body for comment creation.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CreateComment adds a comment to a visible post.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}

	result, err := s.gate.Authorize(ctx, userID, gateParams(c, "postId"), []service.GateTarget{
		{Param: "postId", Kind: service.TargetPost},
	})
	if err != nil {
		return fail(c, err)
	}

	comment, err := s.postSvc.AddComment(ctx, userID, result.Post("postId"), req.Body)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comments": comment})
}

// GetComment serves a single comment. A comment by an author the viewer
// banned is refused outright here, not replaced with a placeholder.
func (s *Server) GetComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	result, err := s.gate.Authorize(ctx, userID, gateParams(c, "commentId"), []service.GateTarget{
		{Param: "commentId", Kind: service.TargetComment},
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"comments": result.Comment("commentId")})
}

// DeleteComment removes a comment. Allowed for the comment's author, the
// post's author, and admins of destination groups. The gate loads the
// comment in placeholder mode so that a post author who banned the
// commenter can still moderate the comment away.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	result, err := s.gate.Authorize(ctx, userID, gateParams(c, "commentId"), []service.GateTarget{
		{Param: "commentId", Kind: service.TargetComment, AllowPlaceholder: true},
	})
	if err != nil {
		return fail(c, err)
	}
	comment := result.Comment("commentId")

	post, err := s.postRepo.GetByID(ctx, comment.PostID)
	if err != nil {
		return fail(c, err)
	}
	if err := s.postSvc.DeleteComment(ctx, userID, service.NewPostView(post), comment); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
