package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"riverfeed/internal/middleware"
	"riverfeed/internal/models"
	"riverfeed/internal/repository"
)

// TargetKind is the entity type an access target refers to.
type TargetKind int

const (
	// TargetPost gates a post identified by its UID route parameter.
	TargetPost TargetKind = iota
	// TargetComment gates a comment; the comment's post is gated implicitly.
	TargetComment
)

// GateTarget names one route parameter to authorize before a handler runs.
// The target list is declared per route, so a handler can rely on every
// named entity being loaded and visible.
type GateTarget struct {
	// Param is the route parameter holding the entity UID.
	Param string
	Kind  TargetKind
	// AllowPlaceholder applies to comments: instead of denying a comment
	// whose author the viewer banned, serve it redacted.
	AllowPlaceholder bool
}

// GateResult holds the entities loaded during authorization, keyed by the
// route parameter they came from.
type GateResult struct {
	mu       sync.Mutex
	posts    map[string]*PostView
	comments map[string]*models.Comment
}

// Post returns the post view loaded for the given parameter.
func (r *GateResult) Post(param string) *PostView {
	return r.posts[param]
}

// Comment returns the comment loaded for the given parameter. For placeholder
// targets the comment may be redacted.
func (r *GateResult) Comment(param string) *models.Comment {
	return r.comments[param]
}

func (r *GateResult) putPost(param string, view *PostView) {
	r.mu.Lock()
	r.posts[param] = view
	r.mu.Unlock()
}

func (r *GateResult) putComment(param string, comment *models.Comment) {
	r.mu.Lock()
	r.comments[param] = comment
	r.mu.Unlock()
}

// AccessGate authorizes a viewer against a declared list of route targets.
// All targets are checked concurrently and every check runs to completion,
// so a multi-target denial is stable regardless of timing; the first failing
// target in declaration order decides the response.
type AccessGate struct {
	visibility *VisibilityService
	posts      repository.PostRepository
	comments   repository.CommentRepository
}

// NewAccessGate creates an access gate over the given repositories.
func NewAccessGate(
	visibility *VisibilityService,
	posts repository.PostRepository,
	comments repository.CommentRepository,
) *AccessGate {
	return &AccessGate{visibility: visibility, posts: posts, comments: comments}
}

// Authorize checks every target against the viewer. Params maps route
// parameter names to their values. A missing parameter is a routing bug and
// reported as server misconfiguration, not as a client error.
func (g *AccessGate) Authorize(ctx context.Context, viewerID uint, params map[string]string, targets []GateTarget) (*GateResult, error) {
	result := &GateResult{
		posts:    make(map[string]*PostView, len(targets)),
		comments: make(map[string]*models.Comment, len(targets)),
	}

	for _, t := range targets {
		if params[t.Param] == "" {
			return nil, models.NewServerMisconfigurationError(
				fmt.Sprintf("route parameter %q is not defined", t.Param))
		}
	}

	outcomes := make([]error, len(targets))
	group, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		group.Go(func() error {
			err := g.checkTarget(gctx, viewerID, t, params[t.Param], result)
			var appErr *models.AppError
			if err != nil && !errors.As(err, &appErr) {
				// Infrastructure failures cancel the sibling checks.
				return err
			}
			// Denials are collected, not returned, so sibling checks still
			// run and the declaration order picks the winner.
			outcomes[i] = err
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for _, err := range outcomes {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (g *AccessGate) checkTarget(ctx context.Context, viewerID uint, target GateTarget, uid string, result *GateResult) error {
	switch target.Kind {
	case TargetPost:
		view, err := g.loadVisiblePost(ctx, viewerID, uid)
		if err != nil {
			return err
		}
		result.putPost(target.Param, view)
		return nil
	case TargetComment:
		comment, err := g.loadVisibleComment(ctx, viewerID, uid, target.AllowPlaceholder)
		if err != nil {
			return err
		}
		result.putComment(target.Param, comment)
		return nil
	default:
		return models.NewServerMisconfigurationError(
			fmt.Sprintf("unknown access target kind %d", target.Kind))
	}
}

func (g *AccessGate) loadVisiblePost(ctx context.Context, viewerID uint, uid string) (*PostView, error) {
	post, err := g.posts.GetByUID(ctx, uid)
	if err != nil {
		if models.IsNotFound(err) {
			middleware.AccessDenials.WithLabelValues(DenyGone.String()).Inc()
			return nil, models.NewNotFoundError(models.MsgPostNotFound)
		}
		return nil, err
	}
	return g.gatePost(ctx, viewerID, post)
}

func (g *AccessGate) gatePost(ctx context.Context, viewerID uint, post *models.Post) (*PostView, error) {
	view := NewPostView(post)
	decision, err := g.visibility.CanSeePost(ctx, view, viewerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		middleware.AccessDenials.WithLabelValues(decision.Reason.String()).Inc()
		return nil, denyPostError(decision.Reason)
	}
	return view, nil
}

// denyPostError maps a visibility denial to the canonical API error. Gone and
// removed posts read as absent; protected content invites anonymous viewers
// to sign in; everything else gets the flat refusal.
func denyPostError(reason DenyReason) error {
	switch reason {
	case DenyGone, DenyRemoved:
		return models.NewNotFoundError(models.MsgPostNotFound)
	case DenyNeedsAuth:
		return models.NewForbiddenError(models.MsgSignInToSee)
	default:
		return models.NewForbiddenError(models.MsgCannotSeePost)
	}
}

func (g *AccessGate) loadVisibleComment(ctx context.Context, viewerID uint, uid string, allowPlaceholder bool) (*models.Comment, error) {
	comment, err := g.comments.GetByUID(ctx, uid)
	if err != nil {
		if models.IsNotFound(err) {
			middleware.AccessDenials.WithLabelValues(DenyGone.String()).Inc()
			return nil, models.NewNotFoundError(models.MsgCommentNotFound)
		}
		return nil, err
	}

	// The comment is only reachable if its post is.
	post, err := g.posts.GetByID(ctx, comment.PostID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundError(models.MsgCommentNotFound)
		}
		return nil, err
	}
	if _, err := g.gatePost(ctx, viewerID, post); err != nil {
		return nil, err
	}

	decision, err := g.visibility.CanSeeComment(ctx, comment, viewerID)
	if err != nil {
		return nil, err
	}
	if decision.Allowed {
		return comment, nil
	}
	middleware.AccessDenials.WithLabelValues(decision.Reason.String()).Inc()
	switch decision.Reason {
	case DenyGone:
		return nil, models.NewNotFoundError(models.MsgCommentNotFound)
	case DenyBanned:
		if allowPlaceholder {
			return redactComment(comment), nil
		}
		return nil, models.NewForbiddenError(models.MsgBannedCommentAuthor)
	default:
		return nil, models.NewForbiddenError(models.MsgCannotSeePost)
	}
}

// redactComment returns a copy with the body replaced and the hide type set,
// leaving the stored comment untouched.
func redactComment(c *models.Comment) *models.Comment {
	out := *c
	out.Body = models.HiddenCommentBody
	out.HideType = models.CommentHiddenByBan
	return &out
}
