package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ACLCache is a bounded in-process cache for relationship lookups
// (subscriptions and bans) on the hot visibility path. Entries may be stale
// for up to their TTL; the visibility logic tolerates stale reads because a
// relationship change is always reflected by the next fill.
type ACLCache struct {
	entries *lru.Cache[string, aclEntry]
	ttl     time.Duration
}

type aclEntry struct {
	value   bool
	expires time.Time
}

// NewACLCache creates a bounded ACL cache holding up to size entries.
func NewACLCache(size int, ttl time.Duration) (*ACLCache, error) {
	entries, err := lru.New[string, aclEntry](size)
	if err != nil {
		return nil, err
	}
	return &ACLCache{entries: entries, ttl: ttl}, nil
}

// SubscriptionKey identifies an "is a subscribed to b" lookup.
func SubscriptionKey(userID, targetID uint) string {
	return fmt.Sprintf("sub:%d:%d", userID, targetID)
}

// BanPairKey identifies an "is there a ban in either direction" lookup.
// The key is direction-insensitive because visibility treats both the same.
func BanPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("ban:%d:%d", a, b)
}

// Get returns the cached value and whether a fresh entry was present.
func (c *ACLCache) Get(key string) (bool, bool) {
	if c == nil {
		return false, false
	}
	entry, ok := c.entries.Get(key)
	if !ok || time.Now().After(entry.expires) {
		return false, false
	}
	return entry.value, true
}

// Put stores a lookup result.
func (c *ACLCache) Put(key string, value bool) {
	if c == nil {
		return
	}
	c.entries.Add(key, aclEntry{value: value, expires: time.Now().Add(c.ttl)})
}

// Forget drops a single entry, used when the underlying relation changes
// in-process. Cross-process invalidation relies on the TTL.
func (c *ACLCache) Forget(key string) {
	if c == nil {
		return
	}
	c.entries.Remove(key)
}
