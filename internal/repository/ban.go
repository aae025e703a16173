package repository

import (
	"context"

	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// BanRepository answers directional "has A banned B" lookups.
type BanRepository interface {
	Exists(ctx context.Context, bannerID, bannedID uint) (bool, error)
	// EitherDirection reports whether a ban exists between a and b in either
	// direction. Visibility treats both directions as mutually blinding.
	EitherDirection(ctx context.Context, a, b uint) (bool, error)
	IDsBannedBy(ctx context.Context, bannerID uint) ([]uint, error)
	Ban(ctx context.Context, bannerID, bannedID uint) error
	Unban(ctx context.Context, bannerID, bannedID uint) error
}

type banRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new ban repository.
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

func (r *banRepository) Exists(ctx context.Context, bannerID, bannedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ban{}).
		Where("banner_id = ? AND banned_id = ?", bannerID, bannedID).
		Count(&count).Error
	return count > 0, err
}

func (r *banRepository) EitherDirection(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ban{}).
		Where("(banner_id = ? AND banned_id = ?) OR (banner_id = ? AND banned_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

func (r *banRepository) IDsBannedBy(ctx context.Context, bannerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Ban{}).
		Where("banner_id = ?", bannerID).
		Pluck("banned_id", &ids).Error
	return ids, err
}

func (r *banRepository) Ban(ctx context.Context, bannerID, bannedID uint) error {
	// ON CONFLICT DO NOTHING keeps repeat bans idempotent under races.
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO bans (banner_id, banned_id, created_at) VALUES (?, ?, NOW())
		 ON CONFLICT (banner_id, banned_id) DO NOTHING`,
		bannerID, bannedID,
	).Error
}

func (r *banRepository) Unban(ctx context.Context, bannerID, bannedID uint) error {
	return r.db.WithContext(ctx).
		Where("banner_id = ? AND banned_id = ?", bannerID, bannedID).
		Delete(&models.Ban{}).Error
}
