// Package notifications provides best-effort realtime event publishing.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

// Event names published for realtime fan-out.
const (
	EventPostNew        = "post:new"
	EventPostUpdate     = "post:update"
	EventPostDestroy    = "post:destroy"
	EventLikeNew        = "like:new"
	EventLikeRemove     = "like:remove"
	EventCommentNew     = "comment:new"
	EventCommentDestroy = "comment:destroy"
)

// Payload is the wire shape of a realtime event. Field names are part of the
// contract with the realtime delivery service.
type Payload struct {
	Event  string   `json:"event"`
	PostID string   `json:"postId"`
	UserID uint     `json:"userId,omitempty"`
	Feeds  []string `json:"feeds,omitempty"`
}

// Notifier publishes events into Redis channels. Delivery is fire-and-forget:
// the core never depends on a publish succeeding, and a nil Redis client
// turns every publish into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// FeedChannel returns the pub/sub channel for a timeline.
func FeedChannel(timelineUID string) string {
	return fmt.Sprintf("feed:%s", timelineUID)
}

// UserChannel returns the pub/sub channel for a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// PublishFeeds sends an event to the channel of every affected feed.
// Errors are logged and swallowed; a failed publish never fails the
// triggering request.
func (n *Notifier) PublishFeeds(ctx context.Context, p Payload) {
	if n == nil || n.rdb == nil {
		return
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		log.Printf("notifier: marshal %s payload: %v", p.Event, err)
		return
	}
	for _, feed := range p.Feeds {
		if err := n.rdb.Publish(ctx, FeedChannel(feed), encoded).Err(); err != nil {
			log.Printf("notifier: publish %s to feed %s: %v", p.Event, feed, err)
		}
	}
}

// PublishUser sends an event to a user's channel, best-effort.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, p Payload) {
	if n == nil || n.rdb == nil {
		return
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		log.Printf("notifier: marshal %s payload: %v", p.Event, err)
		return
	}
	if err := n.rdb.Publish(ctx, UserChannel(userID), encoded).Err(); err != nil {
		log.Printf("notifier: publish %s to user %d: %v", p.Event, userID, err)
	}
}

// StartPatternSubscriber subscribes to feed:* and user:* channels and calls
// onMessage for each incoming message. Used by the realtime delivery edge.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "feed:*", "user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
