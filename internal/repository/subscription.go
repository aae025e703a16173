package repository

import (
	"context"
	"errors"

	"riverfeed/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SubscriptionRepository answers "is A subscribed to B" and manages
// subscriptions, including their home-feed attachments.
type SubscriptionRepository interface {
	IsSubscribed(ctx context.Context, userID, targetID uint) (bool, error)
	SubscriptionTargets(ctx context.Context, userID uint) ([]uint, error)
	SubscriberIDs(ctx context.Context, targetID uint) ([]uint, error)
	// TargetsViaHomeFeed returns the accounts whose posts feed into the given
	// home feed of its owner.
	TargetsViaHomeFeed(ctx context.Context, homeFeedID uint) ([]uint, error)
	// Subscribe creates the subscription and attaches it to the given home
	// feeds (the subscriber's inherent feed when none given) in one
	// transaction. Subscribing twice is a no-op.
	Subscribe(ctx context.Context, userID, targetID uint, homeFeedIDs []uint) error
	Unsubscribe(ctx context.Context, userID, targetID uint) error
	// SetHomeFeeds replaces the home-feed attachment set of an existing
	// subscription.
	SetHomeFeeds(ctx context.Context, userID, targetID uint, homeFeedIDs []uint) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) IsSubscribed(ctx context.Context, userID, targetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND target_account_id = ?", userID, targetID).
		Count(&count).Error
	return count > 0, err
}

func (r *subscriptionRepository) SubscriptionTargets(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Pluck("target_account_id", &ids).Error
	return ids, err
}

func (r *subscriptionRepository) SubscriberIDs(ctx context.Context, targetID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("target_account_id = ?", targetID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *subscriptionRepository) TargetsViaHomeFeed(ctx context.Context, homeFeedID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Table("subscriptions").
		Joins("JOIN homefeed_subscriptions hs ON hs.subscription_id = subscriptions.id").
		Where("hs.timeline_id = ?", homeFeedID).
		Pluck("subscriptions.target_account_id", &ids).Error
	return ids, err
}

func (r *subscriptionRepository) Subscribe(ctx context.Context, userID, targetID uint, homeFeedIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := &models.Subscription{UserID: userID, TargetAccountID: targetID}
		if err := tx.Create(sub).Error; err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return err
		}
		if len(homeFeedIDs) == 0 {
			var inherentID uint
			err := tx.Model(&models.Timeline{}).
				Where("owner_id = ? AND kind = ? AND is_inherent", userID, models.FeedRiverOfNews).
				Pluck("id", &inherentID).Error
			if err != nil {
				return err
			}
			homeFeedIDs = []uint{inherentID}
		}
		for _, feedID := range homeFeedIDs {
			if err := tx.Exec(
				`INSERT INTO homefeed_subscriptions (subscription_id, timeline_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
				sub.ID, feedID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *subscriptionRepository) Unsubscribe(ctx context.Context, userID, targetID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("user_id = ? AND target_account_id = ?", userID, targetID).First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Exec(`DELETE FROM homefeed_subscriptions WHERE subscription_id = ?`, sub.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

func (r *subscriptionRepository) SetHomeFeeds(ctx context.Context, userID, targetID uint, homeFeedIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where("user_id = ? AND target_account_id = ?", userID, targetID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Can not find subscription")
			}
			return err
		}
		if err := tx.Exec(`DELETE FROM homefeed_subscriptions WHERE subscription_id = ?`, sub.ID).Error; err != nil {
			return err
		}
		for _, feedID := range homeFeedIDs {
			if err := tx.Exec(
				`INSERT INTO homefeed_subscriptions (subscription_id, timeline_id) VALUES (?, ?)`,
				sub.ID, feedID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// isUniqueViolation reports whether err is a Postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
