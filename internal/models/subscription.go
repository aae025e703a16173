package models

import "time"

// Subscription subscribes a user to another account's Posts feed. For users
// with several home feeds, HomeFeeds lists which of the subscriber's
// RiverOfNews timelines the subscription feeds into.
type Subscription struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;uniqueIndex:idx_subscription_pair" json:"user_id"`
	TargetAccountID uint       `gorm:"not null;uniqueIndex:idx_subscription_pair" json:"target_account_id"`
	TargetAccount   *Account   `gorm:"foreignKey:TargetAccountID" json:"-"`
	HomeFeeds       []Timeline `gorm:"many2many:homefeed_subscriptions;" json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Subscription) TableName() string {
	return "subscriptions"
}

// Ban is a directional block between users. Visibility rules treat a ban in
// either direction between author and viewer as mutually blinding, but a ban
// never hides a post from an anonymous viewer.
type Ban struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BannerID  uint      `gorm:"not null;uniqueIndex:idx_ban_pair" json:"banner_id"`
	BannedID  uint      `gorm:"not null;uniqueIndex:idx_ban_pair" json:"banned_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Ban) TableName() string {
	return "bans"
}
