package repository

import (
	"context"
	"errors"

	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// TimelineRepository manages the named feeds of accounts, including the
// lifecycle of secondary home feeds.
type TimelineRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Timeline, error)
	GetByUID(ctx context.Context, uid string) (*models.Timeline, error)
	// OwnerFeed returns the owner's feed of the given kind; for RiverOfNews
	// it returns the inherent home feed.
	OwnerFeed(ctx context.Context, ownerID uint, kind models.FeedKind) (*models.Timeline, error)
	HomeFeedsOf(ctx context.Context, userID uint) ([]*models.Timeline, error)
	// PostsFeedIDs returns the internal ids of the Posts feeds of the given
	// accounts.
	PostsFeedIDs(ctx context.Context, ownerIDs []uint) ([]uint, error)
	// CreateDefaults creates the inherent feeds for a new account. Users get
	// the full set; groups only a Posts feed.
	CreateDefaults(ctx context.Context, account *models.Account) error
	CreateHomeFeed(ctx context.Context, userID uint, title string) (*models.Timeline, error)
	Rename(ctx context.Context, feedID uint, title string) error
	Reorder(ctx context.Context, userID uint, orderedFeedIDs []uint) error
	// DeleteHomeFeed removes a secondary home feed and re-homes every
	// subscription attached to it onto backupID, atomically.
	DeleteHomeFeed(ctx context.Context, feedID, backupID uint) error
	GetManyByID(ctx context.Context, ids []uint) ([]*models.Timeline, error)
}

type timelineRepository struct {
	db *gorm.DB
}

// NewTimelineRepository creates a new timeline repository.
func NewTimelineRepository(db *gorm.DB) TimelineRepository {
	return &timelineRepository{db: db}
}

func (r *timelineRepository) GetByID(ctx context.Context, id uint) (*models.Timeline, error) {
	var timeline models.Timeline
	err := r.db.WithContext(ctx).Preload("Owner").First(&timeline, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Can not find timeline")
		}
		return nil, err
	}
	return &timeline, nil
}

func (r *timelineRepository) GetByUID(ctx context.Context, uid string) (*models.Timeline, error) {
	var timeline models.Timeline
	err := r.db.WithContext(ctx).Preload("Owner").Where("uid = ?", uid).First(&timeline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Can not find timeline")
		}
		return nil, err
	}
	return &timeline, nil
}

func (r *timelineRepository) OwnerFeed(ctx context.Context, ownerID uint, kind models.FeedKind) (*models.Timeline, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ? AND kind = ?", ownerID, kind)
	if kind == models.FeedRiverOfNews {
		query = query.Where("is_inherent")
	}
	var timeline models.Timeline
	if err := query.First(&timeline).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Can not find timeline")
		}
		return nil, err
	}
	return &timeline, nil
}

func (r *timelineRepository) HomeFeedsOf(ctx context.Context, userID uint) ([]*models.Timeline, error) {
	var feeds []*models.Timeline
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", userID, models.FeedRiverOfNews).
		Order("order_index ASC, id ASC").
		Find(&feeds).Error
	return feeds, err
}

func (r *timelineRepository) PostsFeedIDs(ctx context.Context, ownerIDs []uint) ([]uint, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Timeline{}).
		Where("owner_id IN ? AND kind = ?", ownerIDs, models.FeedPosts).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *timelineRepository) CreateDefaults(ctx context.Context, account *models.Account) error {
	kinds := models.InherentFeedKinds
	if account.IsGroup() {
		kinds = []models.FeedKind{models.FeedPosts}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, kind := range kinds {
			timeline := &models.Timeline{
				OwnerID:    account.ID,
				Kind:       kind,
				IsInherent: kind == models.FeedRiverOfNews,
			}
			if kind == models.FeedRiverOfNews {
				timeline.Title = "Home"
			}
			if err := tx.Create(timeline).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *timelineRepository) CreateHomeFeed(ctx context.Context, userID uint, title string) (*models.Timeline, error) {
	timeline := &models.Timeline{
		OwnerID: userID,
		Kind:    models.FeedRiverOfNews,
		Title:   title,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&models.Timeline{}).
			Where("owner_id = ? AND kind = ?", userID, models.FeedRiverOfNews).
			Select("COALESCE(MAX(order_index), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		timeline.OrderIndex = maxOrder + 1
		return tx.Create(timeline).Error
	})
	if err != nil {
		return nil, err
	}
	return timeline, nil
}

func (r *timelineRepository) Rename(ctx context.Context, feedID uint, title string) error {
	return r.db.WithContext(ctx).
		Model(&models.Timeline{}).
		Where("id = ?", feedID).
		Update("title", title).Error
}

func (r *timelineRepository) Reorder(ctx context.Context, userID uint, orderedFeedIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, feedID := range orderedFeedIDs {
			result := tx.Model(&models.Timeline{}).
				Where("id = ? AND owner_id = ? AND kind = ?", feedID, userID, models.FeedRiverOfNews).
				Update("order_index", i)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return models.NewNotFoundError("Can not find home feed")
			}
		}
		return nil
	})
}

func (r *timelineRepository) DeleteHomeFeed(ctx context.Context, feedID, backupID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var feed models.Timeline
		if err := tx.First(&feed, feedID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Can not find home feed")
			}
			return err
		}
		if feed.IsInherent {
			return models.NewForbiddenError("Can not delete the default home feed")
		}

		// Re-home every subscription attached to the deleted feed, then drop
		// the attachments and the feed itself. All-or-nothing: a subscription
		// must never lose its last home feed.
		if err := tx.Exec(
			`INSERT INTO homefeed_subscriptions (subscription_id, timeline_id)
			 SELECT subscription_id, ? FROM homefeed_subscriptions WHERE timeline_id = ?
			 ON CONFLICT DO NOTHING`,
			backupID, feedID,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			`DELETE FROM homefeed_subscriptions WHERE timeline_id = ?`, feedID,
		).Error; err != nil {
			return err
		}
		return tx.Delete(&feed).Error
	})
}

func (r *timelineRepository) GetManyByID(ctx context.Context, ids []uint) ([]*models.Timeline, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var feeds []*models.Timeline
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&feeds).Error
	return feeds, err
}
