package repository

import (
	"context"
	"errors"

	"riverfeed/internal/cache"
	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations.
type CommentRepository interface {
	// Create persists the comment and bumps the post's updated_at in one
	// transaction.
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	GetByUID(ctx context.Context, uid string) (*models.Comment, error)
	ListForPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	CommenterIDs(ctx context.Context, postID uint) ([]uint, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE posts SET updated_at = NOW() WHERE id = ?`, comment.PostID).Error; err != nil {
			return err
		}
		cache.InvalidatePost(ctx, comment.PostID)
		return nil
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(models.MsgCommentNotFound)
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) GetByUID(ctx context.Context, uid string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("uid = ?", uid).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(models.MsgCommentNotFound)
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListForPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) CommenterIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Distinct("author_id").
		Where("post_id = ?", postID).
		Pluck("author_id", &ids).Error
	return ids, err
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError(models.MsgCommentNotFound)
			}
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		cache.InvalidatePost(ctx, comment.PostID)
		return nil
	})
}
