package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post represents a post published into one or more destination timelines.
type Post struct {
	ID       uint     `gorm:"primaryKey" json:"-"`
	UID      string   `gorm:"size:36;not null;uniqueIndex" json:"id"`
	AuthorID uint     `gorm:"not null;index" json:"-"`
	Author   *Account `gorm:"foreignKey:AuthorID" json:"-"`
	Body     string   `gorm:"type:text;not null" json:"body"`
	// IsPropagable is true iff at least one destination is a non-direct
	// Posts-kind feed. Only propagable posts may surface in aggregated feeds
	// of people who are not explicit recipients.
	IsPropagable     bool `gorm:"not null;default:false;index" json:"is_propagable"`
	CommentsDisabled bool `gorm:"not null;default:false" json:"comments_disabled"`
	// Destinations is the set of timelines the post was published to. It is
	// never empty while the post exists.
	Destinations []Timeline `gorm:"many2many:post_destinations;" json:"-"`
	// LikesCount and CommentsCount are not persisted; computed at query time.
	LikesCount    int       `gorm:"->" json:"likes_count"`
	CommentsCount int       `gorm:"->" json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	// UpdatedAt is bumped when the post receives a new comment and drives the
	// default "bumped" feed ordering. Likes surface posts via local bumps
	// instead of touching this column.
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate assigns an opaque stable identifier.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.UID == "" {
		p.UID = uuid.NewString()
	}
	return nil
}

// PostRemoval records that a post was taken out of a viewer's reachable feeds
// without being fully deleted (partial removal by an admin or the author).
// The post stays visible to everyone else.
type PostRemoval struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_removal" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_removal" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PostRemoval) TableName() string {
	return "post_removals"
}

// Hide marks a post as hidden from the user's home feeds.
type Hide struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_hide_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_hide_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Hide) TableName() string {
	return "hides"
}

// Save marks a post as saved by the user, surfaced through the Saves feed.
type Save struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_save_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_save_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Save) TableName() string {
	return "saves"
}
