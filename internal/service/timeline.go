package service

import (
	"context"
	"time"

	"riverfeed/internal/featureflags"
	"riverfeed/internal/middleware"
	"riverfeed/internal/models"
	"riverfeed/internal/repository"
)

// Home-feed modes controlling how friend activity enters a river of news.
const (
	// ModeClassic shows subscription posts; friend activity surfaces only
	// through local bumps.
	ModeClassic = "classic"
	// ModeFriendsOnly shows subscription posts and nothing else.
	ModeFriendsOnly = "friends-only"
	// ModeFriendsAllActivity includes every post friends liked or commented on.
	ModeFriendsAllActivity = "friends-all-activity"
)

// Virtual sitewide feeds that exist without an owning timeline row.
const (
	VirtualEverything = "everything"
	VirtualBestOf     = "bestof"
)

// Feed page size bounds.
const (
	DefaultFeedLimit = 30
	MaxFeedLimit     = 120
)

// FeedRequest is one feed resolution. Either Timeline or Virtual is set.
type FeedRequest struct {
	Timeline *models.Timeline
	Virtual  string

	ViewerID uint // 0 = anonymous
	Limit    int
	Offset   int
	Sort     string // created | bumped

	// HomeFeedMode and WithLocalBumps apply to RiverOfNews feeds only.
	HomeFeedMode   string
	WithLocalBumps bool

	// WithMyPosts widens MyDiscussions with the owner's own posts.
	WithMyPosts    bool
	WithoutDirects bool

	CreatedBefore *time.Time
	CreatedAfter  *time.Time
}

// FeedPage is a resolved page of post IDs in feed order.
type FeedPage struct {
	PostIDs    []uint
	IsLastPage bool
}

// TimelineResolver turns a feed request into an ordered page of post IDs.
// Every source set is combined in a single query with per-post visibility
// applied in SQL; the local-bump path merges a base page with an activity
// page in memory instead.
type TimelineResolver struct {
	feeds     repository.FeedRepository
	timelines repository.TimelineRepository
	subs      repository.SubscriptionRepository
	bans      repository.BanRepository
	flags     *featureflags.Manager
}

// NewTimelineResolver creates a resolver. The flag manager may be nil, which
// disables the virtual feeds.
func NewTimelineResolver(
	feeds repository.FeedRepository,
	timelines repository.TimelineRepository,
	subs repository.SubscriptionRepository,
	bans repository.BanRepository,
	flags *featureflags.Manager,
) *TimelineResolver {
	return &TimelineResolver{
		feeds:     feeds,
		timelines: timelines,
		subs:      subs,
		bans:      bans,
		flags:     flags,
	}
}

// normalize applies defaults and clamps so that resolution is total over
// whatever the query string produced.
func (req *FeedRequest) normalize() {
	// An explicit limit of zero is honored: the caller gets an empty page
	// and a pagination cursor. Absent limits are defaulted at parse time.
	if req.Limit < 0 {
		req.Limit = 0
	}
	if req.Limit > MaxFeedLimit {
		req.Limit = MaxFeedLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Sort != repository.SortCreated {
		req.Sort = repository.SortBumped
	}
	switch req.HomeFeedMode {
	case ModeFriendsOnly, ModeFriendsAllActivity:
	default:
		req.HomeFeedMode = ModeClassic
	}
}

// GetFeed resolves a feed request into a page of post IDs. A feed the viewer
// may not see resolves to an empty final page rather than an error, so feed
// probing and entity probing are indistinguishable.
func (r *TimelineResolver) GetFeed(ctx context.Context, req FeedRequest) (*FeedPage, error) {
	req.normalize()

	kind := req.Virtual
	if req.Timeline != nil {
		kind = string(req.Timeline.Kind)
	}
	middleware.FeedRequests.WithLabelValues(kind, req.HomeFeedMode).Inc()
	start := time.Now()
	defer func() {
		middleware.FeedResolveLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	switch req.Virtual {
	case VirtualEverything:
		if !r.flags.Enabled(featureflags.FlagEverything, req.ViewerID) {
			return nil, models.NewNotFoundError("Feed is not available")
		}
		return r.pageFromQuery(ctx, req, r.feeds.SelectEverything)
	case VirtualBestOf:
		if !r.flags.Enabled(featureflags.FlagBestOf, req.ViewerID) {
			return nil, models.NewNotFoundError("Feed is not available")
		}
		return r.pageFromQuery(ctx, req, r.feeds.SelectBestOf)
	}

	feed := req.Timeline
	if feed == nil || feed.Owner == nil {
		return nil, models.NewServerMisconfigurationError("feed resolution requires a loaded timeline")
	}
	if feed.Owner.IsGone {
		return nil, models.NewNotFoundError(models.MsgPostNotFound)
	}

	visible, err := r.canSeeFeed(ctx, feed, req.ViewerID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return &FeedPage{PostIDs: []uint{}, IsLastPage: true}, nil
	}

	if feed.Kind == models.FeedRiverOfNews {
		return r.riverOfNews(ctx, req, feed)
	}

	q, err := r.sourceQuery(ctx, req, feed)
	if err != nil {
		return nil, err
	}
	return r.pageFromQuery(ctx, req, func(ctx context.Context, base repository.FeedQuery) ([]repository.FeedEntry, error) {
		q.Sort = base.Sort
		q.Limit = base.Limit
		q.Offset = base.Offset
		return r.feeds.SelectFeedEntries(ctx, q)
	})
}

// canSeeFeed is the feed-level visibility check. Viewer-scoped feeds are
// owner-only; the public kinds follow the owner's privacy and bans.
func (r *TimelineResolver) canSeeFeed(ctx context.Context, feed *models.Timeline, viewerID uint) (bool, error) {
	switch feed.Kind {
	case models.FeedDirects, models.FeedMyDiscussions, models.FeedRiverOfNews,
		models.FeedHides, models.FeedSaves:
		return viewerID != 0 && viewerID == feed.OwnerID, nil
	}

	if viewerID == feed.OwnerID && viewerID != 0 {
		return true, nil
	}
	owner := feed.Owner
	if viewerID != 0 {
		banned, err := r.bans.EitherDirection(ctx, viewerID, owner.ID)
		if err != nil {
			return false, err
		}
		if banned {
			return false, nil
		}
	}
	switch owner.Privacy {
	case models.PrivacyProtected:
		return viewerID != 0, nil
	case models.PrivacyPrivate:
		if viewerID == 0 {
			return false, nil
		}
		return r.subs.IsSubscribed(ctx, viewerID, owner.ID)
	default:
		return true, nil
	}
}

// sourceQuery builds the source set for the non-home feed kinds.
func (r *TimelineResolver) sourceQuery(ctx context.Context, req FeedRequest, feed *models.Timeline) (repository.FeedQuery, error) {
	q := repository.FeedQuery{
		ViewerID:       req.ViewerID,
		WithoutDirects: req.WithoutDirects,
		CreatedBefore:  req.CreatedBefore,
		CreatedAfter:   req.CreatedAfter,
	}
	switch feed.Kind {
	case models.FeedPosts, models.FeedDirects:
		q.FeedIDs = []uint{feed.ID}
	case models.FeedLikes:
		q.LikedByIDs = []uint{feed.OwnerID}
	case models.FeedComments:
		q.CommentedByIDs = []uint{feed.OwnerID}
	case models.FeedMyDiscussions:
		q.LikedByIDs = []uint{feed.OwnerID}
		q.CommentedByIDs = []uint{feed.OwnerID}
		if req.WithMyPosts {
			q.AuthorIDs = []uint{feed.OwnerID}
		}
	case models.FeedHides:
		q.HiddenByID = feed.OwnerID
	case models.FeedSaves:
		q.SavedByID = feed.OwnerID
	default:
		return q, models.NewServerMisconfigurationError("unhandled feed kind " + string(feed.Kind))
	}
	return q, nil
}

// riverOfNews resolves a home feed. The base set is the posts feeds of the
// accounts attached to this home feed plus the owner's own posts and directs.
// Friend activity enters per the requested mode; local bumps only change
// where those posts sort, never whether they appear. Non-inherent home feeds
// are always friends-only so auxiliary rivers stay exactly what was
// subscribed.
func (r *TimelineResolver) riverOfNews(ctx context.Context, req FeedRequest, feed *models.Timeline) (*FeedPage, error) {
	mode := req.HomeFeedMode
	if !feed.IsInherent {
		mode = ModeFriendsOnly
	}

	targets, err := r.subs.TargetsViaHomeFeed(ctx, feed.ID)
	if err != nil {
		return nil, err
	}
	feedIDs, err := r.timelines.PostsFeedIDs(ctx, targets)
	if err != nil {
		return nil, err
	}
	directs, err := r.timelines.OwnerFeed(ctx, feed.OwnerID, models.FeedDirects)
	if err != nil && !models.IsNotFound(err) {
		return nil, err
	}
	if directs != nil {
		feedIDs = append(feedIDs, directs.ID)
	}

	q := repository.FeedQuery{
		ViewerID:        req.ViewerID,
		FeedIDs:         feedIDs,
		AuthorIDs:       []uint{feed.OwnerID},
		ExcludeHiddenBy: feed.OwnerID,
		Sort:            req.Sort,
		CreatedBefore:   req.CreatedBefore,
		CreatedAfter:    req.CreatedAfter,
	}
	useBumps := req.WithLocalBumps && req.Sort == repository.SortBumped && mode != ModeFriendsOnly
	if !useBumps {
		// Friend activity still widens the base set when bumps are off;
		// the posts just sort by their own timestamps.
		if mode != ModeFriendsOnly {
			q.ActivityByIDs = targets
		}
		q.Limit = req.Limit + 1
		q.Offset = req.Offset
		entries, err := r.feeds.SelectFeedEntries(ctx, q)
		if err != nil {
			return nil, err
		}
		return pageOf(entries, req.Limit), nil
	}

	// Local bumps are merged in memory, so both sides fetch through the end
	// of the requested page and pagination happens after the merge.
	fetch := req.Offset + req.Limit + 1
	q.Limit = fetch
	q.Offset = 0
	base, err := r.feeds.SelectFeedEntries(ctx, q)
	if err != nil {
		return nil, err
	}

	aq := repository.FeedQuery{
		ViewerID:      req.ViewerID,
		Sort:          repository.SortBumped,
		Limit:         fetch,
		CreatedBefore: req.CreatedBefore,
		CreatedAfter:  req.CreatedAfter,
		// Hidden posts stay hidden even when friends are active on them.
		ExcludeHiddenBy: feed.OwnerID,
	}
	activity, err := r.feeds.SelectActivityEntries(ctx, targets, aq)
	if err != nil {
		return nil, err
	}

	merged := mergeLocalBumps(base, activity)
	return pageOfRanked(merged, req.Offset, req.Limit), nil
}

func (r *TimelineResolver) pageFromQuery(
	ctx context.Context,
	req FeedRequest,
	selectFn func(context.Context, repository.FeedQuery) ([]repository.FeedEntry, error),
) (*FeedPage, error) {
	q := repository.FeedQuery{
		ViewerID:       req.ViewerID,
		WithoutDirects: req.WithoutDirects,
		Sort:           req.Sort,
		Limit:          req.Limit + 1,
		Offset:         req.Offset,
		CreatedBefore:  req.CreatedBefore,
		CreatedAfter:   req.CreatedAfter,
	}
	entries, err := selectFn(ctx, q)
	if err != nil {
		return nil, err
	}
	return pageOf(entries, req.Limit), nil
}

// pageOf converts an over-fetched entry list (limit+1 rows) into a page.
func pageOf(entries []repository.FeedEntry, limit int) *FeedPage {
	isLast := len(entries) <= limit
	if !isLast {
		entries = entries[:limit]
	}
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PostID)
	}
	return &FeedPage{PostIDs: ids, IsLastPage: isLast}
}

func pageOfRanked(entries []rankedEntry, offset, limit int) *FeedPage {
	if offset >= len(entries) {
		return &FeedPage{PostIDs: []uint{}, IsLastPage: true}
	}
	entries = entries[offset:]
	isLast := len(entries) <= limit
	if !isLast {
		entries = entries[:limit]
	}
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PostID)
	}
	return &FeedPage{PostIDs: ids, IsLastPage: isLast}
}
