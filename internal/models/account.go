// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PrivacyLevel controls who may see an account's feeds.
type PrivacyLevel string

const (
	// PrivacyPublic makes an account's feeds visible to everyone, including anonymous viewers.
	PrivacyPublic PrivacyLevel = "public"
	// PrivacyProtected makes an account's feeds visible to any authenticated account.
	PrivacyProtected PrivacyLevel = "protected"
	// PrivacyPrivate makes an account's feeds visible only to the owner and approved subscribers.
	PrivacyPrivate PrivacyLevel = "private"
)

// AccountType discriminates users from groups.
type AccountType string

const (
	// AccountTypeUser is a regular user account.
	AccountTypeUser AccountType = "user"
	// AccountTypeGroup is a group account; it cannot authenticate, and posting
	// into its feeds is governed by admins, blocks, and the restricted flag.
	AccountTypeGroup AccountType = "group"
)

// Account represents a user or group. Both share the privacy machinery; the
// Type column discriminates, and group-only capabilities (admins, restriction)
// are dispatched explicitly instead of via shared behavior.
type Account struct {
	ID       uint         `gorm:"primaryKey" json:"-"`
	UID      string       `gorm:"size:36;not null;uniqueIndex" json:"id"`
	Username string       `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Type     AccountType  `gorm:"type:varchar(10);not null;default:'user';index" json:"type"`
	Privacy  PrivacyLevel `gorm:"type:varchar(10);not null;default:'public'" json:"privacy"`
	// IsGone marks a soft-deleted or suspended account. Content authored by a
	// gone account is served as not found, indistinguishable from absence.
	IsGone bool `gorm:"not null;default:false;index" json:"is_gone"`
	// IsRestricted applies to groups only: when set, only admins may post.
	IsRestricted   bool      `gorm:"not null;default:false" json:"is_restricted"`
	HashedPassword string    `gorm:"size:100" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate assigns an opaque stable identifier.
func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.UID == "" {
		a.UID = uuid.NewString()
	}
	return nil
}

// IsUser reports whether the account is a regular user.
func (a *Account) IsUser() bool {
	return a.Type == AccountTypeUser
}

// IsGroup reports whether the account is a group.
func (a *Account) IsGroup() bool {
	return a.Type == AccountTypeGroup
}

// GroupAdmin grants a user admin rights within a group.
type GroupAdmin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_admin" json:"group_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_group_admin" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (GroupAdmin) TableName() string {
	return "group_admins"
}

// GroupBlock prevents a user from posting to a group. Blocking does not
// remove or hide the user's prior posts in the group.
type GroupBlock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_block" json:"group_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_group_block" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (GroupBlock) TableName() string {
	return "group_blocks"
}
