package service

import (
	"context"
	"strings"

	"riverfeed/internal/cache"
	"riverfeed/internal/models"
	"riverfeed/internal/repository"
)

// HomeFeedService manages a user's home feeds and the relations that feed
// them: subscriptions, bans, and group posting controls.
type HomeFeedService struct {
	timelines repository.TimelineRepository
	subs      repository.SubscriptionRepository
	bans      repository.BanRepository
	accounts  repository.AccountRepository
	groups    repository.GroupRepository
	acl       *cache.ACLCache
}

// NewHomeFeedService creates a home-feed service. The acl cache may be nil.
func NewHomeFeedService(
	timelines repository.TimelineRepository,
	subs repository.SubscriptionRepository,
	bans repository.BanRepository,
	accounts repository.AccountRepository,
	groups repository.GroupRepository,
	acl *cache.ACLCache,
) *HomeFeedService {
	return &HomeFeedService{
		timelines: timelines,
		subs:      subs,
		bans:      bans,
		accounts:  accounts,
		groups:    groups,
		acl:       acl,
	}
}

// ListHomeFeeds returns the user's home feeds in display order, the inherent
// feed first.
func (s *HomeFeedService) ListHomeFeeds(ctx context.Context, userID uint) ([]*models.Timeline, error) {
	return s.timelines.HomeFeedsOf(ctx, userID)
}

// CreateHomeFeed adds an auxiliary home feed at the end of the user's list.
func (s *HomeFeedService) CreateHomeFeed(ctx context.Context, userID uint, title string) (*models.Timeline, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.NewValidationError("Home feed title cannot be empty")
	}
	return s.timelines.CreateHomeFeed(ctx, userID, title)
}

// RenameHomeFeed renames one of the user's home feeds, the inherent one
// included.
func (s *HomeFeedService) RenameHomeFeed(ctx context.Context, userID uint, feedUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.NewValidationError("Home feed title cannot be empty")
	}
	feed, err := s.ownedHomeFeed(ctx, userID, feedUID)
	if err != nil {
		return err
	}
	return s.timelines.Rename(ctx, feed.ID, title)
}

// DeleteHomeFeed removes an auxiliary home feed. Subscriptions attached only
// to the deleted feed move to the backup feed, the inherent one by default,
// so deleting a feed never silently unsubscribes anyone.
func (s *HomeFeedService) DeleteHomeFeed(ctx context.Context, userID uint, feedUID, backupUID string) error {
	feed, err := s.ownedHomeFeed(ctx, userID, feedUID)
	if err != nil {
		return err
	}
	var backup *models.Timeline
	if backupUID == "" {
		backup, err = s.timelines.OwnerFeed(ctx, userID, models.FeedRiverOfNews)
	} else {
		backup, err = s.ownedHomeFeed(ctx, userID, backupUID)
	}
	if err != nil {
		return err
	}
	if backup.ID == feed.ID {
		return models.NewValidationError("Backup feed must differ from the deleted feed")
	}
	return s.timelines.DeleteHomeFeed(ctx, feed.ID, backup.ID)
}

// ReorderHomeFeeds applies a new display order. Every feed UID must belong to
// the user; feeds left out keep their relative order after the listed ones.
func (s *HomeFeedService) ReorderHomeFeeds(ctx context.Context, userID uint, feedUIDs []string) error {
	ids := make([]uint, 0, len(feedUIDs))
	for _, uid := range feedUIDs {
		feed, err := s.ownedHomeFeed(ctx, userID, uid)
		if err != nil {
			return err
		}
		ids = append(ids, feed.ID)
	}
	return s.timelines.Reorder(ctx, userID, ids)
}

func (s *HomeFeedService) ownedHomeFeed(ctx context.Context, userID uint, feedUID string) (*models.Timeline, error) {
	feed, err := s.timelines.GetByUID(ctx, feedUID)
	if err != nil {
		return nil, err
	}
	if feed.Kind != models.FeedRiverOfNews || feed.OwnerID != userID {
		return nil, models.NewNotFoundError("Can not find home feed")
	}
	return feed, nil
}

// Subscribe subscribes the user to a target account, attaching the
// subscription to the given home feeds (the inherent feed when none given).
// Subscribing twice updates the home-feed attachment instead of failing.
func (s *HomeFeedService) Subscribe(ctx context.Context, userID uint, targetUsername string, homeFeedUIDs []string) error {
	target, err := s.accounts.GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}
	if target.ID == userID {
		return models.NewValidationError("You cannot subscribe to yourself")
	}
	if target.IsGone {
		return models.NewNotFoundError("Can not find account")
	}
	banned, err := s.bans.EitherDirection(ctx, userID, target.ID)
	if err != nil {
		return err
	}
	if banned {
		return models.NewForbiddenError("You cannot subscribe to this account")
	}
	if target.Privacy == models.PrivacyPrivate {
		return models.NewForbiddenError("You cannot subscribe to a private account directly")
	}

	homeFeedIDs := make([]uint, 0, len(homeFeedUIDs))
	for _, uid := range homeFeedUIDs {
		feed, err := s.ownedHomeFeed(ctx, userID, uid)
		if err != nil {
			return err
		}
		homeFeedIDs = append(homeFeedIDs, feed.ID)
	}

	already, err := s.subs.IsSubscribed(ctx, userID, target.ID)
	if err != nil {
		return err
	}
	if already {
		// A repeat subscription moves the attachment, so the inherent
		// feed is the default here just as it is on first subscribe.
		if len(homeFeedIDs) == 0 {
			inherent, err := s.timelines.OwnerFeed(ctx, userID, models.FeedRiverOfNews)
			if err != nil {
				return err
			}
			homeFeedIDs = []uint{inherent.ID}
		}
		return s.subs.SetHomeFeeds(ctx, userID, target.ID, homeFeedIDs)
	}

	if err := s.subs.Subscribe(ctx, userID, target.ID, homeFeedIDs); err != nil {
		return err
	}
	s.acl.Forget(cache.SubscriptionKey(userID, target.ID))
	return nil
}

// Unsubscribe removes the subscription and its home-feed attachments.
func (s *HomeFeedService) Unsubscribe(ctx context.Context, userID uint, targetUsername string) error {
	target, err := s.accounts.GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}
	if err := s.subs.Unsubscribe(ctx, userID, target.ID); err != nil {
		return err
	}
	s.acl.Forget(cache.SubscriptionKey(userID, target.ID))
	return nil
}

// SetHomeFeeds replaces which home feeds carry an existing subscription.
func (s *HomeFeedService) SetHomeFeeds(ctx context.Context, userID uint, targetUsername string, homeFeedUIDs []string) error {
	target, err := s.accounts.GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}
	ids := make([]uint, 0, len(homeFeedUIDs))
	for _, uid := range homeFeedUIDs {
		feed, err := s.ownedHomeFeed(ctx, userID, uid)
		if err != nil {
			return err
		}
		ids = append(ids, feed.ID)
	}
	return s.subs.SetHomeFeeds(ctx, userID, target.ID, ids)
}

// Ban bans a user. Bans are user-to-user only and sever the subscription in
// both directions, so neither side keeps the other in their home feeds.
func (s *HomeFeedService) Ban(ctx context.Context, userID uint, targetUsername string) error {
	target, err := s.accounts.GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}
	if target.ID == userID {
		return models.NewValidationError("You cannot ban yourself")
	}
	if target.IsGroup() {
		return models.NewValidationError("You cannot ban a group")
	}
	if err := s.bans.Ban(ctx, userID, target.ID); err != nil {
		return err
	}
	if err := s.subs.Unsubscribe(ctx, userID, target.ID); err != nil {
		return err
	}
	if err := s.subs.Unsubscribe(ctx, target.ID, userID); err != nil {
		return err
	}
	s.forgetPair(userID, target.ID)
	return nil
}

// Unban lifts a ban. Severed subscriptions are not restored.
func (s *HomeFeedService) Unban(ctx context.Context, userID uint, targetUsername string) error {
	target, err := s.accounts.GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}
	if err := s.bans.Unban(ctx, userID, target.ID); err != nil {
		return err
	}
	s.forgetPair(userID, target.ID)
	return nil
}

func (s *HomeFeedService) forgetPair(a, b uint) {
	s.acl.Forget(cache.BanPairKey(a, b))
	s.acl.Forget(cache.SubscriptionKey(a, b))
	s.acl.Forget(cache.SubscriptionKey(b, a))
}

// BlockFromGroup blocks a user from posting to a group. Only group admins may
// block; prior posts by the blocked user stay in the group.
func (s *HomeFeedService) BlockFromGroup(ctx context.Context, adminID uint, groupUsername, targetUsername string) error {
	group, target, err := s.groupAndTarget(ctx, adminID, groupUsername, targetUsername)
	if err != nil {
		return err
	}
	isAdmin, err := s.groups.IsAdmin(ctx, group.ID, target.ID)
	if err != nil {
		return err
	}
	if isAdmin {
		return models.NewValidationError("You cannot block a group admin")
	}
	return s.groups.Block(ctx, group.ID, target.ID)
}

// UnblockFromGroup lifts a group posting block.
func (s *HomeFeedService) UnblockFromGroup(ctx context.Context, adminID uint, groupUsername, targetUsername string) error {
	group, target, err := s.groupAndTarget(ctx, adminID, groupUsername, targetUsername)
	if err != nil {
		return err
	}
	return s.groups.Unblock(ctx, group.ID, target.ID)
}

func (s *HomeFeedService) groupAndTarget(ctx context.Context, adminID uint, groupUsername, targetUsername string) (*models.Account, *models.Account, error) {
	group, err := s.accounts.GetByUsername(ctx, groupUsername)
	if err != nil {
		return nil, nil, err
	}
	if !group.IsGroup() {
		return nil, nil, models.NewValidationError("Account is not a group")
	}
	isAdmin, err := s.groups.IsAdmin(ctx, group.ID, adminID)
	if err != nil {
		return nil, nil, err
	}
	if !isAdmin {
		return nil, nil, models.NewForbiddenError("You are not an admin of this group")
	}
	target, err := s.accounts.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, nil, err
	}
	return group, target, nil
}
