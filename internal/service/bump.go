package service

import (
	"sort"
	"time"

	"riverfeed/internal/repository"
)

// rankedEntry is one post in a resolved home feed with the sort key that
// placed it there.
type rankedEntry struct {
	PostID   uint
	AuthorID uint
	SortAt   time.Time
	// bumped marks entries whose position comes from friend activity rather
	// than the post's own timestamps. Used only for tie-breaking.
	bumped bool
}

// mergeLocalBumps folds friend-activity entries into a home feed page.
//
// Activity on a post by an author the viewer is not subscribed to surfaces
// the post at its activity time. Once the viewer subscribes to the author,
// the post already appears at its natural place among the author's posts, so
// the bump is clamped: it can lift the post at most to the newest position
// the author already holds in the feed. A bump that cannot lift the post
// above its natural place is a no-op. This keeps bumps viewer-local and
// keeps a subscription change from double-surfacing old activity at the top.
//
// Both inputs are assumed visibility-filtered for the same viewer. The
// result is ordered newest first with post ID as the final tie-break; a
// bumped post sorts ahead of an unbumped post with the same key.
func mergeLocalBumps(base []repository.FeedEntry, activity []repository.ActivityEntry) []rankedEntry {
	inBase := make(map[uint]int, len(base))
	authorCeiling := make(map[uint]time.Time, len(base))

	out := make([]rankedEntry, 0, len(base)+len(activity))
	for i, e := range base {
		inBase[e.PostID] = i
		if e.UpdatedAt.After(authorCeiling[e.AuthorID]) {
			authorCeiling[e.AuthorID] = e.UpdatedAt
		}
		out = append(out, rankedEntry{
			PostID:   e.PostID,
			AuthorID: e.AuthorID,
			SortAt:   e.UpdatedAt,
		})
	}

	for _, a := range activity {
		if idx, ok := inBase[a.PostID]; ok {
			key := a.BumpedAt
			if ceiling, ok := authorCeiling[a.AuthorID]; ok && key.After(ceiling) {
				key = ceiling
			}
			if key.After(out[idx].SortAt) {
				out[idx].SortAt = key
				out[idx].bumped = true
			}
			continue
		}
		// The author is not in the viewer's base set, so the activity time
		// is the post's only claim to a position.
		out = append(out, rankedEntry{
			PostID:   a.PostID,
			AuthorID: a.AuthorID,
			SortAt:   a.BumpedAt,
			bumped:   true,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SortAt.Equal(out[j].SortAt) {
			return out[i].SortAt.After(out[j].SortAt)
		}
		if out[i].bumped != out[j].bumped {
			return out[i].bumped
		}
		return out[i].PostID > out[j].PostID
	})
	return out
}
