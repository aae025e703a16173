package repository

import (
	"context"
	"errors"

	"riverfeed/internal/cache"
	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	// Create persists the post and its destination links in one transaction.
	Create(ctx context.Context, post *models.Post, destinationIDs []uint) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByUID(ctx context.Context, uid string) (*models.Post, error)
	GetManyByID(ctx context.Context, ids []uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	// SetDestinations replaces the post's destination set atomically. The new
	// set must not be empty.
	SetDestinations(ctx context.Context, postID uint, destinationIDs []uint, isPropagable bool) error
	Delete(ctx context.Context, id uint) error

	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	LikerIDs(ctx context.Context, postID uint) ([]uint, error)

	Hide(ctx context.Context, userID, postID uint) error
	Unhide(ctx context.Context, userID, postID uint) error
	SavePost(ctx context.Context, userID, postID uint) error
	UnsavePost(ctx context.Context, userID, postID uint) error

	// RemoveForViewer takes the post out of one viewer's reachable feeds
	// without deleting it for anyone else.
	RemoveForViewer(ctx context.Context, postID, userID uint) error
	IsRemovedForViewer(ctx context.Context, postID, userID uint) (bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// applyPostDetails adds subqueries to fetch comment and like counts in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post, destinationIDs []uint) error {
	if len(destinationIDs) == 0 {
		return models.NewValidationError("Post must have at least one destination")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		for _, feedID := range destinationIDs {
			if err := tx.Exec(
				`INSERT INTO post_destinations (post_id, timeline_id) VALUES (?, ?)`,
				post.ID, feedID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Preload("Destinations").
		Preload("Destinations.Owner").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(models.MsgPostNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByUID(ctx context.Context, uid string) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Preload("Destinations").
		Preload("Destinations.Owner").
		Where("posts.uid = ?", uid).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(models.MsgPostNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetManyByID(ctx context.Context, ids []uint) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Preload("Destinations").
		Preload("Destinations.Owner").
		Where("posts.id IN ?", ids).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) SetDestinations(ctx context.Context, postID uint, destinationIDs []uint, isPropagable bool) error {
	if len(destinationIDs) == 0 {
		return models.NewValidationError("Post must have at least one destination")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM post_destinations WHERE post_id = ?`, postID).Error; err != nil {
			return err
		}
		for _, feedID := range destinationIDs {
			if err := tx.Exec(
				`INSERT INTO post_destinations (post_id, timeline_id) VALUES (?, ?)`,
				postID, feedID,
			).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			Update("is_propagable", isPropagable).Error; err != nil {
			return err
		}
		cache.InvalidatePost(ctx, postID)
		return nil
	})
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	// INSERT ... ON CONFLICT DO NOTHING keeps duplicate likes idempotent
	// under races. Likes deliberately do not touch the post's updated_at:
	// they surface in feeds through local bumps only, while comments bump
	// the post globally.
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, NOW())
		 ON CONFLICT (post_id, user_id) DO NOTHING`,
		postID, userID,
	).Error
	if err == nil {
		cache.InvalidatePost(ctx, postID)
	}
	return err
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{}).Error
	if err == nil {
		cache.InvalidatePost(ctx, postID)
	}
	return err
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *postRepository) LikerIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *postRepository) Hide(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO hides (user_id, post_id, created_at) VALUES (?, ?, NOW())
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID,
	).Error
}

func (r *postRepository) Unhide(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Hide{}).Error
}

func (r *postRepository) SavePost(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO saves (user_id, post_id, created_at) VALUES (?, ?, NOW())
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID,
	).Error
}

func (r *postRepository) UnsavePost(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Save{}).Error
}

func (r *postRepository) RemoveForViewer(ctx context.Context, postID, userID uint) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO post_removals (post_id, user_id, created_at) VALUES (?, ?, NOW())
		 ON CONFLICT (post_id, user_id) DO NOTHING`,
		postID, userID,
	).Error
}

func (r *postRepository) IsRemovedForViewer(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostRemoval{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}
