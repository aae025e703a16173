// Package service contains the business logic sitting between the HTTP
// handlers and the repositories: visibility decisions, access gating, feed
// resolution, and the posting pipeline.
package service

import (
	"context"

	"riverfeed/internal/cache"
	"riverfeed/internal/models"
	"riverfeed/internal/repository"
)

// DenyReason classifies why a post is not visible to a viewer. The reason
// drives both the HTTP status and the response message.
type DenyReason int

const (
	// DenyNone means the post is visible.
	DenyNone DenyReason = iota
	// DenyGone means the post is absent or its author account is gone. Both
	// are reported identically so absence cannot be probed.
	DenyGone
	// DenyDirect means the post is a direct and the viewer is not a recipient.
	DenyDirect
	// DenyNeedsAuth means the post could become visible after signing in
	// (protected content requested anonymously).
	DenyNeedsAuth
	// DenyPrivate means the viewer is not a subscriber of a private
	// destination.
	DenyPrivate
	// DenyBanned means a ban exists between the viewer and the author.
	DenyBanned
	// DenyRemoved means the post was partially removed for this viewer.
	DenyRemoved
)

// String names the reason for metrics labels.
func (r DenyReason) String() string {
	switch r {
	case DenyNone:
		return "none"
	case DenyGone:
		return "gone"
	case DenyDirect:
		return "direct"
	case DenyNeedsAuth:
		return "needs_auth"
	case DenyPrivate:
		return "private"
	case DenyBanned:
		return "banned"
	case DenyRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a visibility check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allowed = Decision{Allowed: true}

func denied(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// PostView bundles a post with its author and destination feed owners, which
// is everything a visibility decision needs. Build it from a post loaded with
// Author, Destinations, and Destinations.Owner preloaded.
type PostView struct {
	Post   *models.Post
	Author *models.Account
}

// NewPostView wraps a fully preloaded post.
func NewPostView(post *models.Post) *PostView {
	return &PostView{Post: post, Author: post.Author}
}

// DirectFeeds returns the Directs destinations of the post.
func (v *PostView) DirectFeeds() []models.Timeline {
	var out []models.Timeline
	for _, t := range v.Post.Destinations {
		if t.Kind == models.FeedDirects {
			out = append(out, t)
		}
	}
	return out
}

// GroupOwners returns the group accounts among the destination feed owners.
func (v *PostView) GroupOwners() []*models.Account {
	var out []*models.Account
	for i := range v.Post.Destinations {
		owner := v.Post.Destinations[i].Owner
		if owner != nil && owner.IsGroup() {
			out = append(out, owner)
		}
	}
	return out
}

// EffectivePrivacy is the strictest privacy level among the author and all
// group destination owners. Posting into a private group makes the post
// private for everyone; the author's own privacy never loosens it.
func (v *PostView) EffectivePrivacy() models.PrivacyLevel {
	level := v.Author.Privacy
	for _, g := range v.GroupOwners() {
		level = strictest(level, g.Privacy)
	}
	return level
}

func privacyRank(p models.PrivacyLevel) int {
	switch p {
	case models.PrivacyPrivate:
		return 2
	case models.PrivacyProtected:
		return 1
	default:
		return 0
	}
}

func strictest(a, b models.PrivacyLevel) models.PrivacyLevel {
	if privacyRank(b) > privacyRank(a) {
		return b
	}
	return a
}

// VisibilityService answers "can this viewer see this post" as a pure
// decision over the post's destinations and the viewer's relations. The
// same rules are mirrored in SQL by the feed repository; this is the
// authoritative per-entity form used by the access gate.
type VisibilityService struct {
	subs repository.SubscriptionRepository
	bans repository.BanRepository
	acl  *cache.ACLCache

	// isRemoved reports a partial removal of the post for the viewer.
	isRemoved func(ctx context.Context, postID, userID uint) (bool, error)
}

// NewVisibilityService creates a visibility service. The acl cache may be nil.
func NewVisibilityService(
	subs repository.SubscriptionRepository,
	bans repository.BanRepository,
	posts repository.PostRepository,
	acl *cache.ACLCache,
) *VisibilityService {
	return &VisibilityService{
		subs:      subs,
		bans:      bans,
		acl:       acl,
		isRemoved: posts.IsRemovedForViewer,
	}
}

// CanSeePost decides whether viewerID (0 = anonymous) may see the post.
// Direct recipiency is checked first, then the effective privacy ladder,
// then bans, then partial removals. A ban always wins over recipiency and
// privacy so that banned pairs never see each other's content.
func (s *VisibilityService) CanSeePost(ctx context.Context, view *PostView, viewerID uint) (Decision, error) {
	if view.Author == nil || view.Author.IsGone {
		return denied(DenyGone), nil
	}
	if view.Post.DeletedAt.Valid {
		return denied(DenyGone), nil
	}

	// Authors always see their own posts, including partially removed ones.
	if viewerID == view.Author.ID {
		return allowed, nil
	}

	if viewerID != 0 {
		banned, err := s.bannedEitherWay(ctx, viewerID, view.Author.ID)
		if err != nil {
			return Decision{}, err
		}
		if banned {
			return denied(DenyBanned), nil
		}
	}

	if directs := view.DirectFeeds(); len(directs) > 0 {
		if viewerID == 0 {
			return denied(DenyDirect), nil
		}
		recipient := false
		for _, d := range directs {
			if d.OwnerID == viewerID {
				recipient = true
				break
			}
		}
		if !recipient {
			return denied(DenyDirect), nil
		}
	} else {
		switch view.EffectivePrivacy() {
		case models.PrivacyProtected:
			if viewerID == 0 {
				return denied(DenyNeedsAuth), nil
			}
		case models.PrivacyPrivate:
			if viewerID == 0 {
				return denied(DenyPrivate), nil
			}
			ok, err := s.subscribedToAllGates(ctx, viewerID, view)
			if err != nil {
				return Decision{}, err
			}
			if !ok {
				return denied(DenyPrivate), nil
			}
		}
	}

	if viewerID != 0 {
		removed, err := s.removed(ctx, view.Post.ID, viewerID)
		if err != nil {
			return Decision{}, err
		}
		if removed {
			return denied(DenyRemoved), nil
		}
	}
	return allowed, nil
}

// CanSeeComment decides whether the viewer may see a comment on an already
// visible post. A comment by a gone author is absent; a comment whose author
// the viewer banned is visible only in redacted form, which the caller
// applies.
func (s *VisibilityService) CanSeeComment(ctx context.Context, comment *models.Comment, viewerID uint) (Decision, error) {
	if comment.Author == nil || comment.Author.IsGone {
		return denied(DenyGone), nil
	}
	if viewerID == 0 || viewerID == comment.AuthorID {
		return allowed, nil
	}
	banned, err := s.bannedBy(ctx, viewerID, comment.AuthorID)
	if err != nil {
		return Decision{}, err
	}
	if banned {
		return denied(DenyBanned), nil
	}
	return allowed, nil
}

// subscribedToAllGates reports whether the viewer is a subscriber of every
// private account gating the post: the author if private, and each private
// group destination. A single missing subscription closes the post.
func (s *VisibilityService) subscribedToAllGates(ctx context.Context, viewerID uint, view *PostView) (bool, error) {
	gates := []uint{}
	if view.Author.Privacy == models.PrivacyPrivate {
		gates = append(gates, view.Author.ID)
	}
	for _, g := range view.GroupOwners() {
		if g.Privacy == models.PrivacyPrivate {
			gates = append(gates, g.ID)
		}
	}
	if len(gates) == 0 {
		return true, nil
	}
	for _, target := range gates {
		ok, err := s.subscribed(ctx, viewerID, target)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *VisibilityService) subscribed(ctx context.Context, userID, targetID uint) (bool, error) {
	key := cache.SubscriptionKey(userID, targetID)
	if v, ok := s.acl.Get(key); ok {
		return v, nil
	}
	v, err := s.subs.IsSubscribed(ctx, userID, targetID)
	if err != nil {
		return false, err
	}
	s.acl.Put(key, v)
	return v, nil
}

func (s *VisibilityService) bannedEitherWay(ctx context.Context, a, b uint) (bool, error) {
	key := cache.BanPairKey(a, b)
	if v, ok := s.acl.Get(key); ok {
		return v, nil
	}
	v, err := s.bans.EitherDirection(ctx, a, b)
	if err != nil {
		return false, err
	}
	s.acl.Put(key, v)
	return v, nil
}

func (s *VisibilityService) bannedBy(ctx context.Context, bannerID, bannedID uint) (bool, error) {
	return s.bans.Exists(ctx, bannerID, bannedID)
}

func (s *VisibilityService) removed(ctx context.Context, postID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.isRemoved(ctx, postID, userID)
}
