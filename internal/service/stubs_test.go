package service

import (
	"context"
	"errors"
	"testing"

	"riverfeed/internal/models"
	"riverfeed/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subscriptionRepoStub is a stub for repository.SubscriptionRepository.
type subscriptionRepoStub struct {
	isSubscribedFn       func(context.Context, uint, uint) (bool, error)
	subscriptionTargetsFn func(context.Context, uint) ([]uint, error)
	subscriberIDsFn      func(context.Context, uint) ([]uint, error)
	targetsViaHomeFeedFn func(context.Context, uint) ([]uint, error)
	subscribeFn          func(context.Context, uint, uint, []uint) error
	unsubscribeFn        func(context.Context, uint, uint) error
	setHomeFeedsFn       func(context.Context, uint, uint, []uint) error
}

func (s *subscriptionRepoStub) IsSubscribed(ctx context.Context, userID, targetID uint) (bool, error) {
	return s.isSubscribedFn(ctx, userID, targetID)
}
func (s *subscriptionRepoStub) SubscriptionTargets(ctx context.Context, userID uint) ([]uint, error) {
	return s.subscriptionTargetsFn(ctx, userID)
}
func (s *subscriptionRepoStub) SubscriberIDs(ctx context.Context, targetID uint) ([]uint, error) {
	return s.subscriberIDsFn(ctx, targetID)
}
func (s *subscriptionRepoStub) TargetsViaHomeFeed(ctx context.Context, homeFeedID uint) ([]uint, error) {
	return s.targetsViaHomeFeedFn(ctx, homeFeedID)
}
func (s *subscriptionRepoStub) Subscribe(ctx context.Context, userID, targetID uint, homeFeedIDs []uint) error {
	return s.subscribeFn(ctx, userID, targetID, homeFeedIDs)
}
func (s *subscriptionRepoStub) Unsubscribe(ctx context.Context, userID, targetID uint) error {
	return s.unsubscribeFn(ctx, userID, targetID)
}
func (s *subscriptionRepoStub) SetHomeFeeds(ctx context.Context, userID, targetID uint, homeFeedIDs []uint) error {
	return s.setHomeFeedsFn(ctx, userID, targetID, homeFeedIDs)
}

func noopSubscriptionRepo() *subscriptionRepoStub {
	return &subscriptionRepoStub{
		isSubscribedFn:       func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		subscriptionTargetsFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		subscriberIDsFn:      func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		targetsViaHomeFeedFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		subscribeFn:          func(_ context.Context, _, _ uint, _ []uint) error { return nil },
		unsubscribeFn:        func(_ context.Context, _, _ uint) error { return nil },
		setHomeFeedsFn:       func(_ context.Context, _, _ uint, _ []uint) error { return nil },
	}
}

// banRepoStub is a stub for repository.BanRepository.
type banRepoStub struct {
	existsFn          func(context.Context, uint, uint) (bool, error)
	eitherDirectionFn func(context.Context, uint, uint) (bool, error)
	idsBannedByFn     func(context.Context, uint) ([]uint, error)
	banFn             func(context.Context, uint, uint) error
	unbanFn           func(context.Context, uint, uint) error
}

func (s *banRepoStub) Exists(ctx context.Context, bannerID, bannedID uint) (bool, error) {
	return s.existsFn(ctx, bannerID, bannedID)
}
func (s *banRepoStub) EitherDirection(ctx context.Context, a, b uint) (bool, error) {
	return s.eitherDirectionFn(ctx, a, b)
}
func (s *banRepoStub) IDsBannedBy(ctx context.Context, bannerID uint) ([]uint, error) {
	return s.idsBannedByFn(ctx, bannerID)
}
func (s *banRepoStub) Ban(ctx context.Context, bannerID, bannedID uint) error {
	return s.banFn(ctx, bannerID, bannedID)
}
func (s *banRepoStub) Unban(ctx context.Context, bannerID, bannedID uint) error {
	return s.unbanFn(ctx, bannerID, bannedID)
}

func noopBanRepo() *banRepoStub {
	return &banRepoStub{
		existsFn:          func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		eitherDirectionFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		idsBannedByFn:     func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		banFn:             func(_ context.Context, _, _ uint) error { return nil },
		unbanFn:           func(_ context.Context, _, _ uint) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn             func(context.Context, *models.Post, []uint) error
	getByIDFn            func(context.Context, uint) (*models.Post, error)
	getByUIDFn           func(context.Context, string) (*models.Post, error)
	getManyByIDFn        func(context.Context, []uint) ([]*models.Post, error)
	updateFn             func(context.Context, *models.Post) error
	setDestinationsFn    func(context.Context, uint, []uint, bool) error
	deleteFn             func(context.Context, uint) error
	likeFn               func(context.Context, uint, uint) error
	unlikeFn             func(context.Context, uint, uint) error
	isLikedFn            func(context.Context, uint, uint) (bool, error)
	likerIDsFn           func(context.Context, uint) ([]uint, error)
	hideFn               func(context.Context, uint, uint) error
	unhideFn             func(context.Context, uint, uint) error
	savePostFn           func(context.Context, uint, uint) error
	unsavePostFn         func(context.Context, uint, uint) error
	removeForViewerFn    func(context.Context, uint, uint) error
	isRemovedForViewerFn func(context.Context, uint, uint) (bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post, destinationIDs []uint) error {
	return s.createFn(ctx, post, destinationIDs)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByUID(ctx context.Context, uid string) (*models.Post, error) {
	return s.getByUIDFn(ctx, uid)
}
func (s *postRepoStub) GetManyByID(ctx context.Context, ids []uint) ([]*models.Post, error) {
	return s.getManyByIDFn(ctx, ids)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) SetDestinations(ctx context.Context, postID uint, destinationIDs []uint, isPropagable bool) error {
	return s.setDestinationsFn(ctx, postID, destinationIDs, isPropagable)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) LikerIDs(ctx context.Context, postID uint) ([]uint, error) {
	return s.likerIDsFn(ctx, postID)
}
func (s *postRepoStub) Hide(ctx context.Context, userID, postID uint) error {
	return s.hideFn(ctx, userID, postID)
}
func (s *postRepoStub) Unhide(ctx context.Context, userID, postID uint) error {
	return s.unhideFn(ctx, userID, postID)
}
func (s *postRepoStub) SavePost(ctx context.Context, userID, postID uint) error {
	return s.savePostFn(ctx, userID, postID)
}
func (s *postRepoStub) UnsavePost(ctx context.Context, userID, postID uint) error {
	return s.unsavePostFn(ctx, userID, postID)
}
func (s *postRepoStub) RemoveForViewer(ctx context.Context, postID, userID uint) error {
	return s.removeForViewerFn(ctx, postID, userID)
}
func (s *postRepoStub) IsRemovedForViewer(ctx context.Context, postID, userID uint) (bool, error) {
	return s.isRemovedForViewerFn(ctx, postID, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:             func(_ context.Context, _ *models.Post, _ []uint) error { return nil },
		getByIDFn:            func(_ context.Context, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		getByUIDFn:           func(_ context.Context, _ string) (*models.Post, error) { return &models.Post{}, nil },
		getManyByIDFn:        func(_ context.Context, _ []uint) ([]*models.Post, error) { return nil, nil },
		updateFn:             func(_ context.Context, _ *models.Post) error { return nil },
		setDestinationsFn:    func(_ context.Context, _ uint, _ []uint, _ bool) error { return nil },
		deleteFn:             func(_ context.Context, _ uint) error { return nil },
		likeFn:               func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn:             func(_ context.Context, _, _ uint) error { return nil },
		isLikedFn:            func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		likerIDsFn:           func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		hideFn:               func(_ context.Context, _, _ uint) error { return nil },
		unhideFn:             func(_ context.Context, _, _ uint) error { return nil },
		savePostFn:           func(_ context.Context, _, _ uint) error { return nil },
		unsavePostFn:         func(_ context.Context, _, _ uint) error { return nil },
		removeForViewerFn:    func(_ context.Context, _, _ uint) error { return nil },
		isRemovedForViewerFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn       func(context.Context, *models.Comment) error
	getByIDFn      func(context.Context, uint) (*models.Comment, error)
	getByUIDFn     func(context.Context, string) (*models.Comment, error)
	listForPostFn  func(context.Context, uint) ([]*models.Comment, error)
	commenterIDsFn func(context.Context, uint) ([]uint, error)
	deleteFn       func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) GetByUID(ctx context.Context, uid string) (*models.Comment, error) {
	return s.getByUIDFn(ctx, uid)
}
func (s *commentRepoStub) ListForPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listForPostFn(ctx, postID)
}
func (s *commentRepoStub) CommenterIDs(ctx context.Context, postID uint) ([]uint, error) {
	return s.commenterIDsFn(ctx, postID)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:       func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:      func(_ context.Context, _ uint) (*models.Comment, error) { return &models.Comment{}, nil },
		getByUIDFn:     func(_ context.Context, _ string) (*models.Comment, error) { return &models.Comment{}, nil },
		listForPostFn:  func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		commenterIDsFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
	}
}

// timelineRepoStub is a stub for repository.TimelineRepository.
type timelineRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.Timeline, error)
	getByUIDFn       func(context.Context, string) (*models.Timeline, error)
	ownerFeedFn      func(context.Context, uint, models.FeedKind) (*models.Timeline, error)
	homeFeedsOfFn    func(context.Context, uint) ([]*models.Timeline, error)
	postsFeedIDsFn   func(context.Context, []uint) ([]uint, error)
	createDefaultsFn func(context.Context, *models.Account) error
	createHomeFeedFn func(context.Context, uint, string) (*models.Timeline, error)
	renameFn         func(context.Context, uint, string) error
	reorderFn        func(context.Context, uint, []uint) error
	deleteHomeFeedFn func(context.Context, uint, uint) error
	getManyByIDFn    func(context.Context, []uint) ([]*models.Timeline, error)
}

func (s *timelineRepoStub) GetByID(ctx context.Context, id uint) (*models.Timeline, error) {
	return s.getByIDFn(ctx, id)
}
func (s *timelineRepoStub) GetByUID(ctx context.Context, uid string) (*models.Timeline, error) {
	return s.getByUIDFn(ctx, uid)
}
func (s *timelineRepoStub) OwnerFeed(ctx context.Context, ownerID uint, kind models.FeedKind) (*models.Timeline, error) {
	return s.ownerFeedFn(ctx, ownerID, kind)
}
func (s *timelineRepoStub) HomeFeedsOf(ctx context.Context, userID uint) ([]*models.Timeline, error) {
	return s.homeFeedsOfFn(ctx, userID)
}
func (s *timelineRepoStub) PostsFeedIDs(ctx context.Context, ownerIDs []uint) ([]uint, error) {
	return s.postsFeedIDsFn(ctx, ownerIDs)
}
func (s *timelineRepoStub) CreateDefaults(ctx context.Context, account *models.Account) error {
	return s.createDefaultsFn(ctx, account)
}
func (s *timelineRepoStub) CreateHomeFeed(ctx context.Context, userID uint, title string) (*models.Timeline, error) {
	return s.createHomeFeedFn(ctx, userID, title)
}
func (s *timelineRepoStub) Rename(ctx context.Context, feedID uint, title string) error {
	return s.renameFn(ctx, feedID, title)
}
func (s *timelineRepoStub) Reorder(ctx context.Context, userID uint, orderedFeedIDs []uint) error {
	return s.reorderFn(ctx, userID, orderedFeedIDs)
}
func (s *timelineRepoStub) DeleteHomeFeed(ctx context.Context, feedID, backupID uint) error {
	return s.deleteHomeFeedFn(ctx, feedID, backupID)
}
func (s *timelineRepoStub) GetManyByID(ctx context.Context, ids []uint) ([]*models.Timeline, error) {
	return s.getManyByIDFn(ctx, ids)
}

func noopTimelineRepo() *timelineRepoStub {
	return &timelineRepoStub{
		getByIDFn:        func(_ context.Context, _ uint) (*models.Timeline, error) { return &models.Timeline{}, nil },
		getByUIDFn:       func(_ context.Context, _ string) (*models.Timeline, error) { return &models.Timeline{}, nil },
		ownerFeedFn:      func(_ context.Context, _ uint, _ models.FeedKind) (*models.Timeline, error) { return &models.Timeline{}, nil },
		homeFeedsOfFn:    func(_ context.Context, _ uint) ([]*models.Timeline, error) { return nil, nil },
		postsFeedIDsFn:   func(_ context.Context, _ []uint) ([]uint, error) { return nil, nil },
		createDefaultsFn: func(_ context.Context, _ *models.Account) error { return nil },
		createHomeFeedFn: func(_ context.Context, _ uint, _ string) (*models.Timeline, error) { return &models.Timeline{}, nil },
		renameFn:         func(_ context.Context, _ uint, _ string) error { return nil },
		reorderFn:        func(_ context.Context, _ uint, _ []uint) error { return nil },
		deleteHomeFeedFn: func(_ context.Context, _, _ uint) error { return nil },
		getManyByIDFn:    func(_ context.Context, _ []uint) ([]*models.Timeline, error) { return nil, nil },
	}
}

// accountRepoStub is a stub for repository.AccountRepository.
type accountRepoStub struct {
	createFn        func(context.Context, *models.Account) error
	getByIDFn       func(context.Context, uint) (*models.Account, error)
	getByUIDFn      func(context.Context, string) (*models.Account, error)
	getByUsernameFn func(context.Context, string) (*models.Account, error)
	getManyByIDFn   func(context.Context, []uint) ([]*models.Account, error)
	updateFn        func(context.Context, *models.Account) error
}

func (s *accountRepoStub) Create(ctx context.Context, account *models.Account) error {
	return s.createFn(ctx, account)
}
func (s *accountRepoStub) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	return s.getByIDFn(ctx, id)
}
func (s *accountRepoStub) GetByUID(ctx context.Context, uid string) (*models.Account, error) {
	return s.getByUIDFn(ctx, uid)
}
func (s *accountRepoStub) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *accountRepoStub) GetManyByID(ctx context.Context, ids []uint) ([]*models.Account, error) {
	return s.getManyByIDFn(ctx, ids)
}
func (s *accountRepoStub) Update(ctx context.Context, account *models.Account) error {
	return s.updateFn(ctx, account)
}

func noopAccountRepo() *accountRepoStub {
	return &accountRepoStub{
		createFn:        func(_ context.Context, _ *models.Account) error { return nil },
		getByIDFn:       func(_ context.Context, _ uint) (*models.Account, error) { return &models.Account{}, nil },
		getByUIDFn:      func(_ context.Context, _ string) (*models.Account, error) { return &models.Account{}, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.Account, error) { return &models.Account{}, nil },
		getManyByIDFn:   func(_ context.Context, _ []uint) ([]*models.Account, error) { return nil, nil },
		updateFn:        func(_ context.Context, _ *models.Account) error { return nil },
	}
}

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	isAdminFn     func(context.Context, uint, uint) (bool, error)
	isBlockedFn   func(context.Context, uint, uint) (bool, error)
	adminIDsFn    func(context.Context, uint) ([]uint, error)
	addAdminFn    func(context.Context, uint, uint) error
	removeAdminFn func(context.Context, uint, uint) error
	blockFn       func(context.Context, uint, uint) error
	unblockFn     func(context.Context, uint, uint) error
}

func (s *groupRepoStub) IsAdmin(ctx context.Context, groupID, userID uint) (bool, error) {
	return s.isAdminFn(ctx, groupID, userID)
}
func (s *groupRepoStub) IsBlocked(ctx context.Context, groupID, userID uint) (bool, error) {
	return s.isBlockedFn(ctx, groupID, userID)
}
func (s *groupRepoStub) AdminIDs(ctx context.Context, groupID uint) ([]uint, error) {
	return s.adminIDsFn(ctx, groupID)
}
func (s *groupRepoStub) AddAdmin(ctx context.Context, groupID, userID uint) error {
	return s.addAdminFn(ctx, groupID, userID)
}
func (s *groupRepoStub) RemoveAdmin(ctx context.Context, groupID, userID uint) error {
	return s.removeAdminFn(ctx, groupID, userID)
}
func (s *groupRepoStub) Block(ctx context.Context, groupID, userID uint) error {
	return s.blockFn(ctx, groupID, userID)
}
func (s *groupRepoStub) Unblock(ctx context.Context, groupID, userID uint) error {
	return s.unblockFn(ctx, groupID, userID)
}

func noopGroupRepo() *groupRepoStub {
	return &groupRepoStub{
		isAdminFn:     func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		isBlockedFn:   func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		adminIDsFn:    func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		addAdminFn:    func(_ context.Context, _, _ uint) error { return nil },
		removeAdminFn: func(_ context.Context, _, _ uint) error { return nil },
		blockFn:       func(_ context.Context, _, _ uint) error { return nil },
		unblockFn:     func(_ context.Context, _, _ uint) error { return nil },
	}
}

// feedRepoStub is a stub for repository.FeedRepository.
type feedRepoStub struct {
	selectFeedEntriesFn     func(context.Context, repository.FeedQuery) ([]repository.FeedEntry, error)
	selectActivityEntriesFn func(context.Context, []uint, repository.FeedQuery) ([]repository.ActivityEntry, error)
	selectEverythingFn      func(context.Context, repository.FeedQuery) ([]repository.FeedEntry, error)
	selectBestOfFn          func(context.Context, repository.FeedQuery) ([]repository.FeedEntry, error)
}

func (s *feedRepoStub) SelectFeedEntries(ctx context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
	return s.selectFeedEntriesFn(ctx, q)
}
func (s *feedRepoStub) SelectActivityEntries(ctx context.Context, actorIDs []uint, q repository.FeedQuery) ([]repository.ActivityEntry, error) {
	return s.selectActivityEntriesFn(ctx, actorIDs, q)
}
func (s *feedRepoStub) SelectEverything(ctx context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
	return s.selectEverythingFn(ctx, q)
}
func (s *feedRepoStub) SelectBestOf(ctx context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
	return s.selectBestOfFn(ctx, q)
}

func noopFeedRepo() *feedRepoStub {
	return &feedRepoStub{
		selectFeedEntriesFn: func(_ context.Context, _ repository.FeedQuery) ([]repository.FeedEntry, error) {
			return nil, nil
		},
		selectActivityEntriesFn: func(_ context.Context, _ []uint, _ repository.FeedQuery) ([]repository.ActivityEntry, error) {
			return nil, nil
		},
		selectEverythingFn: func(_ context.Context, _ repository.FeedQuery) ([]repository.FeedEntry, error) {
			return nil, nil
		},
		selectBestOfFn: func(_ context.Context, _ repository.FeedQuery) ([]repository.FeedEntry, error) {
			return nil, nil
		},
	}
}

// assertForbidden asserts that err is a FORBIDDEN AppError with the given message.
func assertForbidden(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

// assertNotFound asserts that err is a NOT_FOUND AppError with the given message.
func assertNotFound(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
