package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

// FeedEntry is one post row returned by a feed query, carrying just enough
// for ordering and last-page detection.
type FeedEntry struct {
	PostID    uint      `gorm:"column:post_id"`
	AuthorID  uint      `gorm:"column:author_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ActivityEntry is a post surfaced by friend activity, with the latest
// qualifying activity timestamp that drives local bumps.
type ActivityEntry struct {
	PostID    uint      `gorm:"column:post_id"`
	AuthorID  uint      `gorm:"column:author_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	BumpedAt  time.Time `gorm:"column:bumped_at"`
}

// Feed sort keys accepted by queries.
const (
	SortCreated = "created"
	SortBumped  = "bumped"
)

// FeedQuery describes the source sets and constraints of one feed resolution.
// A post qualifies when it matches at least one source clause; the viewer's
// visibility filter is always applied on top.
type FeedQuery struct {
	ViewerID uint // 0 = anonymous

	FeedIDs        []uint // posts published into these timelines
	AuthorIDs      []uint // posts authored by these accounts
	LikedByIDs     []uint // posts liked by these accounts
	CommentedByIDs []uint // posts commented on by these accounts
	// ActivityByIDs selects propagable posts liked or commented on by these
	// accounts (home-feed activity expansion).
	ActivityByIDs []uint
	SavedByID     uint // posts saved by this user (Saves feed)
	HiddenByID    uint // posts hidden by this user (Hides feed)
	// ExcludeHiddenBy drops posts the user hid from their home feeds.
	ExcludeHiddenBy uint

	WithoutDirects bool
	Sort           string
	Limit          int // rows to fetch; callers pass pageSize+1 for last-page detection
	Offset         int
	CreatedBefore  *time.Time
	CreatedAfter   *time.Time
}

// FeedRepository runs the set-union feed queries behind the timeline
// resolver. All queries apply per-post visibility filtering for the viewer.
type FeedRepository interface {
	SelectFeedEntries(ctx context.Context, q FeedQuery) ([]FeedEntry, error)
	// SelectActivityEntries returns propagable posts with activity by the
	// given actors, newest activity first, with the activity timestamp.
	SelectActivityEntries(ctx context.Context, actorIDs []uint, q FeedQuery) ([]ActivityEntry, error)
	// SelectEverything returns all propagable posts by public accounts.
	SelectEverything(ctx context.Context, q FeedQuery) ([]FeedEntry, error)
	// SelectBestOf returns propagable public posts ranked by engagement decay.
	SelectBestOf(ctx context.Context, q FeedQuery) ([]FeedEntry, error)
}

type feedRepository struct {
	db *gorm.DB
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

// feedSQL accumulates WHERE fragments and their args.
type feedSQL struct {
	conds []string
	args  []interface{}
}

func (b *feedSQL) where(cond string, args ...interface{}) {
	b.conds = append(b.conds, cond)
	b.args = append(b.args, args...)
}

// appendVisibility adds the per-post visibility filter for the viewer.
// It mirrors the pure predicate in the service layer: direct posts are only
// served to recipients, effective privacy is the strictest level among the
// author and group destinations, bans blind authenticated viewers in both
// directions, and partial removals hide the post from one viewer only.
func (b *feedSQL) appendVisibility(viewerID uint) {
	b.where(`NOT EXISTS (SELECT 1 FROM accounts ga WHERE ga.id = p.author_id AND ga.is_gone)`)

	const isDirect = `EXISTS (
		SELECT 1 FROM post_destinations pdd JOIN timelines td ON td.id = pdd.timeline_id
		WHERE pdd.post_id = p.id AND td.kind = 'Directs')`

	if viewerID == 0 {
		// Anonymous: no directs, and every privacy-bearing owner must be public.
		b.where(`NOT ` + isDirect)
		b.where(`NOT EXISTS (
			SELECT 1 FROM accounts o
			WHERE o.privacy IN ('private', 'protected')
			  AND (o.id = p.author_id
			       OR o.id IN (SELECT tg.owner_id FROM post_destinations pdg
			                   JOIN timelines tg ON tg.id = pdg.timeline_id
			                   JOIN accounts og ON og.id = tg.owner_id
			                   WHERE pdg.post_id = p.id AND og.type = 'group')))`)
		return
	}

	// Directs are served to the author and the owners of the Directs
	// destination feeds, never to anyone else.
	b.where(`(p.author_id = ? OR NOT `+isDirect+` OR EXISTS (
		SELECT 1 FROM post_destinations pdv JOIN timelines tv ON tv.id = pdv.timeline_id
		WHERE pdv.post_id = p.id AND tv.kind = 'Directs' AND tv.owner_id = ?))`,
		viewerID, viewerID)

	// Effective privacy: no private owner (author or group destination) may
	// be unreachable for the viewer.
	b.where(`NOT EXISTS (
		SELECT 1 FROM accounts o
		WHERE o.privacy = 'private'
		  AND o.id <> ?
		  AND p.author_id <> ?
		  AND (o.id = p.author_id
		       OR o.id IN (SELECT tg.owner_id FROM post_destinations pdg
		                   JOIN timelines tg ON tg.id = pdg.timeline_id
		                   JOIN accounts og ON og.id = tg.owner_id
		                   WHERE pdg.post_id = p.id AND og.type = 'group'))
		  AND NOT EXISTS (SELECT 1 FROM subscriptions s
		                  WHERE s.user_id = ? AND s.target_account_id = o.id))`,
		viewerID, viewerID, viewerID)

	// A ban in either direction blinds the viewer, overriding privacy.
	b.where(`NOT EXISTS (SELECT 1 FROM bans bn
		WHERE (bn.banner_id = ? AND bn.banned_id = p.author_id)
		   OR (bn.banner_id = p.author_id AND bn.banned_id = ?))`,
		viewerID, viewerID)

	b.where(`NOT EXISTS (SELECT 1 FROM post_removals pr WHERE pr.post_id = p.id AND pr.user_id = ?)`,
		viewerID)
}

func (b *feedSQL) appendCommon(q FeedQuery) {
	if q.WithoutDirects {
		b.where(`NOT EXISTS (
			SELECT 1 FROM post_destinations pdx JOIN timelines tx ON tx.id = pdx.timeline_id
			WHERE pdx.post_id = p.id AND tx.kind = 'Directs')`)
	}
	if q.ExcludeHiddenBy != 0 {
		b.where(`NOT EXISTS (SELECT 1 FROM hides h WHERE h.post_id = p.id AND h.user_id = ?)`,
			q.ExcludeHiddenBy)
	}
	if q.CreatedBefore != nil {
		b.where(`p.created_at < ?`, *q.CreatedBefore)
	}
	if q.CreatedAfter != nil {
		b.where(`p.created_at > ?`, *q.CreatedAfter)
	}
}

// sourceClause builds the OR'ed source-set clause. Returns false when the
// query has no sources at all, meaning the result is empty by construction.
func sourceClause(q FeedQuery) (string, []interface{}, bool) {
	var parts []string
	var args []interface{}

	if len(q.FeedIDs) > 0 {
		parts = append(parts, `p.id IN (SELECT pd.post_id FROM post_destinations pd WHERE pd.timeline_id IN ?)`)
		args = append(args, q.FeedIDs)
	}
	if len(q.AuthorIDs) > 0 {
		parts = append(parts, `p.author_id IN ?`)
		args = append(args, q.AuthorIDs)
	}
	if len(q.LikedByIDs) > 0 {
		parts = append(parts, `p.id IN (SELECT l.post_id FROM likes l WHERE l.user_id IN ?)`)
		args = append(args, q.LikedByIDs)
	}
	if len(q.CommentedByIDs) > 0 {
		parts = append(parts, `p.id IN (SELECT c.post_id FROM comments c WHERE c.author_id IN ? AND c.deleted_at IS NULL)`)
		args = append(args, q.CommentedByIDs)
	}
	if len(q.ActivityByIDs) > 0 {
		parts = append(parts, `(p.is_propagable AND (
			p.id IN (SELECT l.post_id FROM likes l WHERE l.user_id IN ?)
			OR p.id IN (SELECT c.post_id FROM comments c WHERE c.author_id IN ? AND c.deleted_at IS NULL)))`)
		args = append(args, q.ActivityByIDs, q.ActivityByIDs)
	}
	if q.SavedByID != 0 {
		parts = append(parts, `p.id IN (SELECT sv.post_id FROM saves sv WHERE sv.user_id = ?)`)
		args = append(args, q.SavedByID)
	}
	if q.HiddenByID != 0 {
		parts = append(parts, `p.id IN (SELECT h.post_id FROM hides h WHERE h.user_id = ?)`)
		args = append(args, q.HiddenByID)
	}

	if len(parts) == 0 {
		return "", nil, false
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, true
}

func sortExpr(sort string) string {
	if sort == SortCreated {
		return "p.created_at"
	}
	return "p.updated_at"
}

func (r *feedRepository) SelectFeedEntries(ctx context.Context, q FeedQuery) ([]FeedEntry, error) {
	source, sourceArgs, ok := sourceClause(q)
	if !ok {
		return nil, nil
	}

	b := &feedSQL{}
	b.where(`p.deleted_at IS NULL`)
	b.where(source, sourceArgs...)
	b.appendVisibility(q.ViewerID)
	b.appendCommon(q)

	sql := `SELECT p.id AS post_id, p.author_id, p.created_at, p.updated_at FROM posts p WHERE ` +
		strings.Join(b.conds, " AND ") +
		` ORDER BY ` + sortExpr(q.Sort) + ` DESC, p.id DESC LIMIT ? OFFSET ?`
	args := append(b.args, q.Limit, q.Offset)

	var entries []FeedEntry
	err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&entries).Error
	return entries, err
}

func (r *feedRepository) SelectActivityEntries(ctx context.Context, actorIDs []uint, q FeedQuery) ([]ActivityEntry, error) {
	if len(actorIDs) == 0 {
		return nil, nil
	}

	b := &feedSQL{}
	b.where(`p.deleted_at IS NULL`)
	b.where(`p.is_propagable`)
	b.where(`(p.id IN (SELECT l.post_id FROM likes l WHERE l.user_id IN ?)
		OR p.id IN (SELECT c.post_id FROM comments c WHERE c.author_id IN ? AND c.deleted_at IS NULL))`,
		actorIDs, actorIDs)
	b.appendVisibility(q.ViewerID)
	b.appendCommon(q)

	sql := `SELECT p.id AS post_id, p.author_id, p.created_at, p.updated_at, GREATEST(
			COALESCE((SELECT MAX(l.created_at) FROM likes l WHERE l.post_id = p.id AND l.user_id IN ?), to_timestamp(0)),
			COALESCE((SELECT MAX(c.created_at) FROM comments c WHERE c.post_id = p.id AND c.author_id IN ? AND c.deleted_at IS NULL), to_timestamp(0))
		) AS bumped_at FROM posts p WHERE ` +
		strings.Join(b.conds, " AND ") +
		` ORDER BY bumped_at DESC, p.id DESC LIMIT ?`
	args := append([]interface{}{actorIDs, actorIDs}, b.args...)
	args = append(args, q.Limit)

	var entries []ActivityEntry
	err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&entries).Error
	return entries, err
}

func (r *feedRepository) SelectEverything(ctx context.Context, q FeedQuery) ([]FeedEntry, error) {
	b := &feedSQL{}
	b.where(`p.deleted_at IS NULL`)
	b.where(`p.is_propagable`)
	b.where(`EXISTS (SELECT 1 FROM accounts a WHERE a.id = p.author_id AND a.privacy = 'public')`)
	b.appendVisibility(q.ViewerID)
	b.appendCommon(q)

	sql := `SELECT p.id AS post_id, p.author_id, p.created_at, p.updated_at FROM posts p WHERE ` +
		strings.Join(b.conds, " AND ") +
		` ORDER BY ` + sortExpr(q.Sort) + ` DESC, p.id DESC LIMIT ? OFFSET ?`
	args := append(b.args, q.Limit, q.Offset)

	var entries []FeedEntry
	err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&entries).Error
	return entries, err
}

func (r *feedRepository) SelectBestOf(ctx context.Context, q FeedQuery) ([]FeedEntry, error) {
	b := &feedSQL{}
	b.where(`p.deleted_at IS NULL`)
	b.where(`p.is_propagable`)
	b.where(`EXISTS (SELECT 1 FROM accounts a WHERE a.id = p.author_id AND a.privacy = 'public')`)
	b.appendVisibility(q.ViewerID)
	b.appendCommon(q)

	// Engagement decays with age: likes plus double-weighted comments over a
	// power of the post's age in hours.
	sql := `SELECT p.id AS post_id, p.author_id, p.created_at, p.updated_at,
			((SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) +
			 (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id AND c.deleted_at IS NULL) * 2.0)
			/ POWER(EXTRACT(EPOCH FROM (NOW() - p.created_at)) / 3600.0 + 2, 1.5) AS rank
		FROM posts p WHERE ` +
		strings.Join(b.conds, " AND ") +
		` ORDER BY rank DESC, p.id DESC LIMIT ? OFFSET ?`
	args := append(b.args, q.Limit, q.Offset)

	var entries []FeedEntry
	err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&entries).Error
	return entries, err
}
