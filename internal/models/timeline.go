package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedKind identifies the role of a timeline within its owning account.
type FeedKind string

const (
	// FeedPosts holds posts authored into the account's main feed.
	FeedPosts FeedKind = "Posts"
	// FeedLikes surfaces posts the owner liked.
	FeedLikes FeedKind = "Likes"
	// FeedComments surfaces posts the owner commented on.
	FeedComments FeedKind = "Comments"
	// FeedDirects holds direct messages addressed to the owner.
	FeedDirects FeedKind = "Directs"
	// FeedMyDiscussions unions the owner's Likes and Comments feeds.
	FeedMyDiscussions FeedKind = "MyDiscussions"
	// FeedRiverOfNews is a home feed aggregating the owner's subscriptions.
	// A user may own several; exactly one is inherent.
	FeedRiverOfNews FeedKind = "RiverOfNews"
	// FeedHides holds posts the owner hid from their home feeds.
	FeedHides FeedKind = "Hides"
	// FeedSaves holds posts the owner saved for later.
	FeedSaves FeedKind = "Saves"
)

// Timeline is a named feed owned by an account.
type Timeline struct {
	ID      uint     `gorm:"primaryKey" json:"-"`
	UID     string   `gorm:"size:36;not null;uniqueIndex" json:"id"`
	OwnerID uint     `gorm:"not null;index:idx_timelines_owner_kind" json:"-"`
	Owner   *Account `gorm:"foreignKey:OwnerID" json:"-"`
	Kind    FeedKind `gorm:"type:varchar(20);not null;index:idx_timelines_owner_kind" json:"name"`
	// IsInherent marks the single default home feed of a user. The inherent
	// feed cannot be deleted, only renamed.
	IsInherent bool      `gorm:"not null;default:false" json:"is_inherent"`
	Title      string    `gorm:"size:120" json:"title"`
	OrderIndex int       `gorm:"not null;default:0" json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Timeline) TableName() string {
	return "timelines"
}

// BeforeCreate assigns an opaque stable identifier.
func (t *Timeline) BeforeCreate(_ *gorm.DB) error {
	if t.UID == "" {
		t.UID = uuid.NewString()
	}
	return nil
}

// InherentFeedKinds are the feeds created alongside every user account.
// Groups only get a Posts feed.
var InherentFeedKinds = []FeedKind{
	FeedPosts,
	FeedLikes,
	FeedComments,
	FeedDirects,
	FeedMyDiscussions,
	FeedRiverOfNews,
	FeedHides,
	FeedSaves,
}
