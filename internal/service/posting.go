package service

import (
	"context"
	"strings"

	"riverfeed/internal/cache"
	"riverfeed/internal/models"
	"riverfeed/internal/notifications"
	"riverfeed/internal/repository"
)

// CreatePostInput is the payload for publishing a new post.
type CreatePostInput struct {
	AuthorID uint
	Body     string
	// DestinationUIDs are timeline UIDs to publish into. Empty means the
	// author's own Posts feed.
	DestinationUIDs  []string
	CommentsDisabled bool
}

// PostService runs the posting pipeline: destination validation, propagable
// derivation, and the write itself, with realtime events published after
// each successful mutation.
type PostService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	timelines repository.TimelineRepository
	accounts  repository.AccountRepository
	groups    repository.GroupRepository
	bans      repository.BanRepository
	subs      repository.SubscriptionRepository

	notifier *notifications.Notifier
}

// NewPostService creates a post service. The notifier may be nil.
func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	timelines repository.TimelineRepository,
	accounts repository.AccountRepository,
	groups repository.GroupRepository,
	bans repository.BanRepository,
	subs repository.SubscriptionRepository,
	notifier *notifications.Notifier,
) *PostService {
	return &PostService{
		posts:     posts,
		comments:  comments,
		timelines: timelines,
		accounts:  accounts,
		groups:    groups,
		bans:      bans,
		subs:      subs,
		notifier:  notifier,
	}
}

// CreatePost validates the destinations and publishes the post. Destinations
// are either Posts feeds (own or groups) or Directs feeds; the two cannot be
// mixed because directs must never propagate. A direct always lands in the
// author's own Directs feed too.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewValidationError("Post body cannot be empty")
	}

	author, err := s.accounts.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if !author.IsUser() {
		return nil, models.NewForbiddenError("Groups cannot author posts")
	}

	destinations, err := s.resolveDestinations(ctx, author, in.DestinationUIDs)
	if err != nil {
		return nil, err
	}

	propagable := false
	destinationIDs := make([]uint, 0, len(destinations))
	feedUIDs := make([]string, 0, len(destinations))
	for _, d := range destinations {
		if d.Kind == models.FeedPosts {
			propagable = true
		}
		destinationIDs = append(destinationIDs, d.ID)
		feedUIDs = append(feedUIDs, d.UID)
	}

	post := &models.Post{
		AuthorID:         author.ID,
		Body:             body,
		IsPropagable:     propagable,
		CommentsDisabled: in.CommentsDisabled,
	}
	if err := s.posts.Create(ctx, post, destinationIDs); err != nil {
		return nil, err
	}

	s.notifier.PublishFeeds(ctx, notifications.Payload{
		Event:  notifications.EventPostNew,
		PostID: post.UID,
		UserID: author.ID,
		Feeds:  feedUIDs,
	})
	return s.posts.GetByID(ctx, post.ID)
}

// resolveDestinations loads and authorizes the requested destination feeds.
func (s *PostService) resolveDestinations(ctx context.Context, author *models.Account, uids []string) ([]*models.Timeline, error) {
	if len(uids) == 0 {
		own, err := s.timelines.OwnerFeed(ctx, author.ID, models.FeedPosts)
		if err != nil {
			return nil, err
		}
		return []*models.Timeline{own}, nil
	}

	var out []*models.Timeline
	sawPosts, sawDirects := false, false
	for _, uid := range uids {
		feed, err := s.timelines.GetByUID(ctx, uid)
		if err != nil {
			return nil, err
		}
		if feed.Owner == nil || feed.Owner.IsGone {
			return nil, models.NewNotFoundError("Can not find feed")
		}
		switch feed.Kind {
		case models.FeedPosts:
			sawPosts = true
			if err := s.authorizePostsDestination(ctx, author, feed); err != nil {
				return nil, err
			}
		case models.FeedDirects:
			sawDirects = true
			if err := s.authorizeDirectDestination(ctx, author, feed); err != nil {
				return nil, err
			}
		default:
			return nil, models.NewValidationError("Posts can only go to Posts or Directs feeds")
		}
		out = append(out, feed)
	}
	if sawPosts && sawDirects {
		return nil, models.NewValidationError("A post cannot mix direct and non-direct destinations")
	}

	if sawDirects {
		own, err := s.timelines.OwnerFeed(ctx, author.ID, models.FeedDirects)
		if err != nil {
			return nil, err
		}
		present := false
		for _, d := range out {
			if d.ID == own.ID {
				present = true
				break
			}
		}
		if !present {
			out = append(out, own)
		}
	}
	return out, nil
}

func (s *PostService) authorizePostsDestination(ctx context.Context, author *models.Account, feed *models.Timeline) error {
	owner := feed.Owner
	if owner.ID == author.ID {
		return nil
	}
	if !owner.IsGroup() {
		return models.NewForbiddenError("You can not post to another user's feed")
	}
	blocked, err := s.groups.IsBlocked(ctx, owner.ID, author.ID)
	if err != nil {
		return err
	}
	if blocked {
		return models.NewForbiddenError("You can not post to this group")
	}
	if owner.IsRestricted {
		isAdmin, err := s.groups.IsAdmin(ctx, owner.ID, author.ID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return models.NewForbiddenError("Only administrators can post to this group")
		}
	}
	return nil
}

func (s *PostService) authorizeDirectDestination(ctx context.Context, author *models.Account, feed *models.Timeline) error {
	owner := feed.Owner
	if owner.ID == author.ID {
		return nil
	}
	if !owner.IsUser() {
		return models.NewValidationError("Directs can only be sent to users")
	}
	banned, err := s.bans.EitherDirection(ctx, author.ID, owner.ID)
	if err != nil {
		return err
	}
	if banned {
		return models.NewForbiddenError("You can not send directs to this user")
	}
	// Directs require the recipient to follow the sender, which keeps
	// strangers out of anyone's inbox.
	subscribed, err := s.subs.IsSubscribed(ctx, owner.ID, author.ID)
	if err != nil {
		return err
	}
	if !subscribed {
		return models.NewForbiddenError("You can not send directs to this user")
	}
	return nil
}

// UpdatePost edits the body or comment toggle. Author only.
func (s *PostService) UpdatePost(ctx context.Context, userID uint, view *PostView, body string, commentsDisabled *bool) (*models.Post, error) {
	if view.Post.AuthorID != userID {
		return nil, models.NewForbiddenError("You can not update another user's post")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Post body cannot be empty")
	}
	post := view.Post
	post.Body = body
	if commentsDisabled != nil {
		post.CommentsDisabled = *commentsDisabled
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	s.publishToDestinations(ctx, view, notifications.EventPostUpdate, userID)
	return post, nil
}

// DeletePost removes a post entirely when the actor is its author. A group
// admin deleting someone else's post only removes it from the feeds the
// admin controls; the post survives in its other destinations.
func (s *PostService) DeletePost(ctx context.Context, userID uint, view *PostView) error {
	if view.Post.AuthorID == userID {
		s.publishToDestinations(ctx, view, notifications.EventPostDestroy, userID)
		return s.posts.Delete(ctx, view.Post.ID)
	}

	adminOfAny := false
	for _, g := range view.GroupOwners() {
		isAdmin, err := s.groups.IsAdmin(ctx, g.ID, userID)
		if err != nil {
			return err
		}
		if isAdmin {
			adminOfAny = true
			break
		}
	}
	if !adminOfAny {
		return models.NewForbiddenError("You can not delete another user's post")
	}

	kept := make([]uint, 0, len(view.Post.Destinations))
	for i := range view.Post.Destinations {
		d := &view.Post.Destinations[i]
		if d.Owner != nil && d.Owner.IsGroup() {
			isAdmin, err := s.groups.IsAdmin(ctx, d.Owner.ID, userID)
			if err != nil {
				return err
			}
			if isAdmin {
				continue
			}
		}
		kept = append(kept, d.ID)
	}
	if len(kept) == 0 {
		s.publishToDestinations(ctx, view, notifications.EventPostDestroy, userID)
		return s.posts.Delete(ctx, view.Post.ID)
	}

	propagable := false
	keptSet := make(map[uint]bool, len(kept))
	for _, id := range kept {
		keptSet[id] = true
	}
	for _, d := range view.Post.Destinations {
		if keptSet[d.ID] && d.Kind == models.FeedPosts {
			propagable = true
		}
	}
	if err := s.posts.SetDestinations(ctx, view.Post.ID, kept, propagable); err != nil {
		return err
	}
	s.publishToDestinations(ctx, view, notifications.EventPostUpdate, userID)
	return nil
}

// RemoveFromViewer partially removes a post from the acting viewer's reach.
// The post stays up for everyone else.
func (s *PostService) RemoveFromViewer(ctx context.Context, userID uint, view *PostView) error {
	if view.Post.AuthorID == userID {
		return models.NewValidationError("You can not remove your own post from yourself")
	}
	return s.posts.RemoveForViewer(ctx, view.Post.ID, userID)
}

// AddComment comments on a visible post. Commenting can be disabled per post
// by its author, and banned pairs cannot comment on each other's posts.
func (s *PostService) AddComment(ctx context.Context, userID uint, view *PostView, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Comment body cannot be empty")
	}
	if view.Post.CommentsDisabled && userID != view.Post.AuthorID {
		return nil, models.NewForbiddenError("Comments are disabled for this post")
	}

	comment := &models.Comment{
		PostID:   view.Post.ID,
		AuthorID: userID,
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, view.Post.ID)
	s.publishToDestinations(ctx, view, notifications.EventCommentNew, userID)
	return s.comments.GetByID(ctx, comment.ID)
}

// DeleteComment removes a comment. Allowed for the comment's author and for
// the post's author moderating their own post.
func (s *PostService) DeleteComment(ctx context.Context, userID uint, view *PostView, comment *models.Comment) error {
	if comment.AuthorID != userID && view.Post.AuthorID != userID {
		return models.NewForbiddenError("You can not delete this comment")
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, view.Post.ID)
	s.publishToDestinations(ctx, view, notifications.EventCommentDestroy, userID)
	return nil
}

// Like likes a visible post. Liking twice is a no-op; authors cannot like
// their own posts.
func (s *PostService) Like(ctx context.Context, userID uint, view *PostView) error {
	if view.Post.AuthorID == userID {
		return models.NewForbiddenError("You can not like your own post")
	}
	if err := s.posts.Like(ctx, userID, view.Post.ID); err != nil {
		return err
	}
	s.publishToDestinations(ctx, view, notifications.EventLikeNew, userID)
	return nil
}

// Unlike removes the user's like. Removing an absent like is a no-op.
func (s *PostService) Unlike(ctx context.Context, userID uint, view *PostView) error {
	if err := s.posts.Unlike(ctx, userID, view.Post.ID); err != nil {
		return err
	}
	s.publishToDestinations(ctx, view, notifications.EventLikeRemove, userID)
	return nil
}

// Hide hides the post from the user's home feeds.
func (s *PostService) Hide(ctx context.Context, userID uint, view *PostView) error {
	return s.posts.Hide(ctx, userID, view.Post.ID)
}

// Unhide reverses Hide.
func (s *PostService) Unhide(ctx context.Context, userID uint, view *PostView) error {
	return s.posts.Unhide(ctx, userID, view.Post.ID)
}

// Save puts the post into the user's Saves feed.
func (s *PostService) Save(ctx context.Context, userID uint, view *PostView) error {
	return s.posts.SavePost(ctx, userID, view.Post.ID)
}

// Unsave reverses Save.
func (s *PostService) Unsave(ctx context.Context, userID uint, view *PostView) error {
	return s.posts.UnsavePost(ctx, userID, view.Post.ID)
}

func (s *PostService) publishToDestinations(ctx context.Context, view *PostView, event string, actorID uint) {
	feeds := make([]string, 0, len(view.Post.Destinations))
	for _, d := range view.Post.Destinations {
		feeds = append(feeds, d.UID)
	}
	s.notifier.PublishFeeds(ctx, notifications.Payload{
		Event:  event,
		PostID: view.Post.UID,
		UserID: actorID,
		Feeds:  feeds,
	})
}
