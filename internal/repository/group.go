package repository

import (
	"context"

	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// GroupRepository answers admin/block/restriction questions about group
// accounts.
type GroupRepository interface {
	IsAdmin(ctx context.Context, groupID, userID uint) (bool, error)
	IsBlocked(ctx context.Context, groupID, userID uint) (bool, error)
	AdminIDs(ctx context.Context, groupID uint) ([]uint, error)
	AddAdmin(ctx context.Context, groupID, userID uint) error
	RemoveAdmin(ctx context.Context, groupID, userID uint) error
	// Block prevents a user from posting to the group. Prior posts by the
	// user remain untouched.
	Block(ctx context.Context, groupID, userID uint) error
	Unblock(ctx context.Context, groupID, userID uint) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) IsAdmin(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupAdmin{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) IsBlocked(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupBlock{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) AdminIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.GroupAdmin{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *groupRepository) AddAdmin(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO group_admins (group_id, user_id, created_at) VALUES (?, ?, NOW())
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID,
	).Error
}

func (r *groupRepository) RemoveAdmin(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupAdmin{}).Error
}

func (r *groupRepository) Block(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO group_blocks (group_id, user_id, created_at) VALUES (?, ?, NOW())
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID,
	).Error
}

func (r *groupRepository) Unblock(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupBlock{}).Error
}
