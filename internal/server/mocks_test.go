package server

import (
	"context"

	"riverfeed/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock of the AccountRepository interface.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUID(ctx context.Context, uid string) (*models.Account, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetManyByID(ctx context.Context, ids []uint) ([]*models.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockTimelineRepository is a mock of the TimelineRepository interface.
type MockTimelineRepository struct {
	mock.Mock
}

func (m *MockTimelineRepository) GetByID(ctx context.Context, id uint) (*models.Timeline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}

func (m *MockTimelineRepository) GetByUID(ctx context.Context, uid string) (*models.Timeline, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}

func (m *MockTimelineRepository) OwnerFeed(ctx context.Context, ownerID uint, kind models.FeedKind) (*models.Timeline, error) {
	args := m.Called(ctx, ownerID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}

func (m *MockTimelineRepository) HomeFeedsOf(ctx context.Context, userID uint) ([]*models.Timeline, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Timeline), args.Error(1)
}

func (m *MockTimelineRepository) PostsFeedIDs(ctx context.Context, ownerIDs []uint) ([]uint, error) {
	args := m.Called(ctx, ownerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockTimelineRepository) CreateDefaults(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockTimelineRepository) CreateHomeFeed(ctx context.Context, userID uint, title string) (*models.Timeline, error) {
	args := m.Called(ctx, userID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}

func (m *MockTimelineRepository) Rename(ctx context.Context, feedID uint, title string) error {
	args := m.Called(ctx, feedID, title)
	return args.Error(0)
}

func (m *MockTimelineRepository) Reorder(ctx context.Context, userID uint, orderedFeedIDs []uint) error {
	args := m.Called(ctx, userID, orderedFeedIDs)
	return args.Error(0)
}

func (m *MockTimelineRepository) DeleteHomeFeed(ctx context.Context, feedID, backupID uint) error {
	args := m.Called(ctx, feedID, backupID)
	return args.Error(0)
}

func (m *MockTimelineRepository) GetManyByID(ctx context.Context, ids []uint) ([]*models.Timeline, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Timeline), args.Error(1)
}
