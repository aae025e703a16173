package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentHideType describes how a comment should be rendered for a viewer who
// is not allowed to read its body.
type CommentHideType int

const (
	// CommentVisible is a regular, fully visible comment.
	CommentVisible CommentHideType = 0
	// CommentHiddenByBan replaces the body when the viewer banned the author.
	CommentHiddenByBan CommentHideType = 1
	// CommentHiddenByModeration replaces the body of a moderated comment.
	CommentHiddenByModeration CommentHideType = 2
)

// HiddenCommentBody is served instead of the real body for hidden comments.
const HiddenCommentBody = "Hidden comment"

// Comment represents a comment on a post.
type Comment struct {
	ID       uint     `gorm:"primaryKey" json:"-"`
	UID      string   `gorm:"size:36;not null;uniqueIndex" json:"id"`
	PostID   uint     `gorm:"not null;index" json:"-"`
	Post     *Post    `gorm:"foreignKey:PostID" json:"-"`
	AuthorID uint     `gorm:"not null;index" json:"-"`
	Author   *Account `gorm:"foreignKey:AuthorID" json:"-"`
	Body     string   `gorm:"type:text;not null" json:"body"`
	// HideType is transient viewer-scoped state, not persisted. It is set by
	// the access gate when the body has been redacted for this viewer.
	HideType  CommentHideType `gorm:"-" json:"hide_type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}

// BeforeCreate assigns an opaque stable identifier.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.UID == "" {
		c.UID = uuid.NewString()
	}
	return nil
}

// Like represents a like on a post. A user likes a post at most once.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Like) TableName() string {
	return "likes"
}
