package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	postKeyPrefix     = "post:%d"
	accountKeyPrefix  = "account:%d"
	timelineKeyPrefix = "timeline:%s"
)

const (
	// PostTTL bounds staleness of cached post payloads.
	PostTTL = 30 * time.Minute
	// AccountTTL bounds staleness of cached account records.
	AccountTTL = 5 * time.Minute
	// TimelineTTL bounds staleness of cached timeline descriptors.
	TimelineTTL = 10 * time.Minute
)

// PostKey returns the cache key for a post payload.
func PostKey(postID uint) string {
	return fmt.Sprintf(postKeyPrefix, postID)
}

// AccountKey returns the cache key for an account record.
func AccountKey(accountID uint) string {
	return fmt.Sprintf(accountKeyPrefix, accountID)
}

// TimelineKey returns the cache key for a timeline descriptor.
func TimelineKey(uid string) string {
	return fmt.Sprintf(timelineKeyPrefix, uid)
}

// Invalidate removes a key from the cache.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePost removes a post's cached payload.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// InvalidateAccount removes an account's cached record.
func InvalidateAccount(ctx context.Context, accountID uint) {
	Invalidate(ctx, AccountKey(accountID))
}
