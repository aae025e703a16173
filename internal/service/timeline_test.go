package service

import (
	"context"
	"testing"

	"riverfeed/internal/featureflags"
	"riverfeed/internal/models"
	"riverfeed/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(feeds *feedRepoStub, timelines *timelineRepoStub, subs *subscriptionRepoStub, bans *banRepoStub) *TimelineResolver {
	return NewTimelineResolver(feeds, timelines, subs, bans, featureflags.NewManager("everything=on,bestof=on"))
}

func ownedPostsFeed(owner *models.Account) *models.Timeline {
	return &models.Timeline{ID: 100, OwnerID: owner.ID, Owner: owner, Kind: models.FeedPosts}
}

func homeFeed(owner *models.Account, inherent bool) *models.Timeline {
	return &models.Timeline{ID: 200, OwnerID: owner.ID, Owner: owner, Kind: models.FeedRiverOfNews, IsInherent: inherent}
}

func TestGetFeed_Pagination(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feeds := noopFeedRepo()
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		// Five eligible posts; the repository honors limit and offset.
		all := []repository.FeedEntry{
			entry(5, 1, 50), entry(4, 1, 40), entry(3, 1, 30), entry(2, 1, 20), entry(1, 1, 10),
		}
		if q.Offset >= len(all) {
			return nil, nil
		}
		all = all[q.Offset:]
		if len(all) > q.Limit {
			all = all[:q.Limit]
		}
		return all, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())

	page, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline: ownedPostsFeed(owner),
		ViewerID: 2,
		Limit:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{5, 4}, page.PostIDs)
	assert.False(t, page.IsLastPage)

	page, err = r.GetFeed(context.Background(), FeedRequest{
		Timeline: ownedPostsFeed(owner),
		ViewerID: 2,
		Limit:    2,
		Offset:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, page.PostIDs)
	assert.True(t, page.IsLastPage)

	page, err = r.GetFeed(context.Background(), FeedRequest{
		Timeline: ownedPostsFeed(owner),
		ViewerID: 2,
		Limit:    2,
		Offset:   5,
	})
	require.NoError(t, err)
	assert.Empty(t, page.PostIDs)
	assert.True(t, page.IsLastPage)
}

func TestGetFeed_Idempotent(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feeds := noopFeedRepo()
	feeds.selectFeedEntriesFn = func(_ context.Context, _ repository.FeedQuery) ([]repository.FeedEntry, error) {
		return []repository.FeedEntry{entry(3, 1, 30), entry(2, 1, 20), entry(1, 1, 10)}, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())

	req := FeedRequest{Timeline: ownedPostsFeed(owner), ViewerID: 2, Limit: 10}
	first, err := r.GetFeed(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := r.GetFeed(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.PostIDs, again.PostIDs)
	}
}

func TestGetFeed_DeniedFeedResolvesEmpty(t *testing.T) {
	owner := userAccount(1, models.PrivacyPrivate)
	feeds := noopFeedRepo()
	feeds.selectFeedEntriesFn = func(_ context.Context, _ repository.FeedQuery) ([]repository.FeedEntry, error) {
		t.Fatal("the feed query must not run for a denied feed")
		return nil, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())

	page, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline: ownedPostsFeed(owner),
		ViewerID: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, page.PostIDs)
	assert.True(t, page.IsLastPage)
}

func TestGetFeed_ViewerScopedFeedsAreOwnerOnly(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feeds := noopFeedRepo()
	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())

	saves := &models.Timeline{ID: 300, OwnerID: 1, Owner: owner, Kind: models.FeedSaves}
	page, err := r.GetFeed(context.Background(), FeedRequest{Timeline: saves, ViewerID: 2})
	require.NoError(t, err)
	assert.Empty(t, page.PostIDs)
	assert.True(t, page.IsLastPage)

	page, err = r.GetFeed(context.Background(), FeedRequest{Timeline: saves, ViewerID: 0})
	require.NoError(t, err)
	assert.Empty(t, page.PostIDs)
	assert.True(t, page.IsLastPage)
}

func TestGetFeed_BanHidesFeed(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	bans := noopBanRepo()
	bans.eitherDirectionFn = func(_ context.Context, a, b uint) (bool, error) {
		return (a == 2 && b == 1) || (a == 1 && b == 2), nil
	}
	r := newResolver(noopFeedRepo(), noopTimelineRepo(), noopSubscriptionRepo(), bans)

	page, err := r.GetFeed(context.Background(), FeedRequest{Timeline: ownedPostsFeed(owner), ViewerID: 2})
	require.NoError(t, err)
	assert.Empty(t, page.PostIDs)
	assert.True(t, page.IsLastPage)
}

func TestGetFeed_RiverClassicMergesLocalBumps(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feed := homeFeed(owner, true)

	subs := noopSubscriptionRepo()
	subs.targetsViaHomeFeedFn = func(_ context.Context, feedID uint) ([]uint, error) {
		require.Equal(t, feed.ID, feedID)
		return []uint{jupiter}, nil
	}
	feeds := noopFeedRepo()
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		assert.Empty(t, q.ActivityByIDs, "with bumps on, activity arrives through the merge")
		return []repository.FeedEntry{entry(l3, luna, 30), entry(l2, luna, 20), entry(l1, luna, 10)}, nil
	}
	feeds.selectActivityEntriesFn = func(_ context.Context, actors []uint, _ repository.FeedQuery) ([]repository.ActivityEntry, error) {
		assert.Equal(t, []uint{jupiter}, actors)
		return []repository.ActivityEntry{
			{PostID: m1, AuthorID: mars, CreatedAt: at(1), UpdatedAt: at(1), BumpedAt: at(45)},
		}, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), subs, noopBanRepo())

	page, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline:       feed,
		ViewerID:       1,
		Limit:          10,
		WithLocalBumps: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{m1, l3, l2, l1}, page.PostIDs)
	assert.True(t, page.IsLastPage)
}

func TestGetFeed_RiverClassicIncludesActivityWithoutBumps(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feed := homeFeed(owner, true)

	subs := noopSubscriptionRepo()
	subs.targetsViaHomeFeedFn = func(_ context.Context, _ uint) ([]uint, error) {
		return []uint{jupiter}, nil
	}
	feeds := noopFeedRepo()
	feeds.selectActivityEntriesFn = func(_ context.Context, _ []uint, _ repository.FeedQuery) ([]repository.ActivityEntry, error) {
		t.Fatal("with bumps off there is no separate activity query")
		return nil, nil
	}
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		assert.Equal(t, []uint{jupiter}, q.ActivityByIDs,
			"turning bumps off must not drop friend-activity posts from the feed")
		return []repository.FeedEntry{entry(l1, luna, 10), entry(m1, mars, 1)}, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), subs, noopBanRepo())

	page, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline: feed,
		ViewerID: 1,
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{l1, m1}, page.PostIDs)
}

func TestGetFeed_RiverFriendsOnlySkipsActivity(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feed := homeFeed(owner, true)

	feeds := noopFeedRepo()
	feeds.selectActivityEntriesFn = func(_ context.Context, _ []uint, _ repository.FeedQuery) ([]repository.ActivityEntry, error) {
		t.Fatal("friends-only mode must not query activity")
		return nil, nil
	}
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		assert.Empty(t, q.ActivityByIDs)
		return []repository.FeedEntry{entry(l1, luna, 10)}, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())

	page, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline:       feed,
		ViewerID:       1,
		Limit:          10,
		HomeFeedMode:   ModeFriendsOnly,
		WithLocalBumps: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{l1}, page.PostIDs)
}

func TestGetFeed_RiverFriendsAllActivityWidensBaseSet(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feed := homeFeed(owner, true)

	subs := noopSubscriptionRepo()
	subs.targetsViaHomeFeedFn = func(_ context.Context, _ uint) ([]uint, error) {
		return []uint{jupiter}, nil
	}
	feeds := noopFeedRepo()
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		assert.Equal(t, []uint{jupiter}, q.ActivityByIDs)
		return nil, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), subs, noopBanRepo())

	_, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline:     feed,
		ViewerID:     1,
		HomeFeedMode: ModeFriendsAllActivity,
	})
	require.NoError(t, err)
}

func TestGetFeed_RiverFriendsAllActivityMergesLocalBumps(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feed := homeFeed(owner, true)

	subs := noopSubscriptionRepo()
	subs.targetsViaHomeFeedFn = func(_ context.Context, _ uint) ([]uint, error) {
		return []uint{jupiter}, nil
	}
	feeds := noopFeedRepo()
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		assert.Empty(t, q.ActivityByIDs, "with bumps on, activity arrives through the merge")
		return []repository.FeedEntry{entry(l3, luna, 30), entry(l2, luna, 20)}, nil
	}
	feeds.selectActivityEntriesFn = func(_ context.Context, actors []uint, _ repository.FeedQuery) ([]repository.ActivityEntry, error) {
		assert.Equal(t, []uint{jupiter}, actors)
		return []repository.ActivityEntry{
			{PostID: m1, AuthorID: mars, CreatedAt: at(1), UpdatedAt: at(1), BumpedAt: at(45)},
		}, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), subs, noopBanRepo())

	page, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline:       feed,
		ViewerID:       1,
		Limit:          10,
		HomeFeedMode:   ModeFriendsAllActivity,
		WithLocalBumps: true,
	})
	require.NoError(t, err)
	// The activity post ranks by its bump time, not its own updated_at.
	assert.Equal(t, []uint{m1, l3, l2}, page.PostIDs)
}

func TestGetFeed_AuxiliaryRiverForcesFriendsOnly(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feed := homeFeed(owner, false)

	feeds := noopFeedRepo()
	feeds.selectActivityEntriesFn = func(_ context.Context, _ []uint, _ repository.FeedQuery) ([]repository.ActivityEntry, error) {
		t.Fatal("auxiliary home feeds must stay friends-only")
		return nil, nil
	}
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		assert.Empty(t, q.ActivityByIDs)
		return nil, nil
	}
	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())

	_, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline:       feed,
		ViewerID:       1,
		HomeFeedMode:   ModeFriendsAllActivity,
		WithLocalBumps: true,
	})
	require.NoError(t, err)
}

func TestGetFeed_VirtualFeedsBehindFlags(t *testing.T) {
	feeds := noopFeedRepo()
	called := ""
	feeds.selectEverythingFn = func(_ context.Context, _ repository.FeedQuery) ([]repository.FeedEntry, error) {
		called = "everything"
		return nil, nil
	}
	feeds.selectBestOfFn = func(_ context.Context, _ repository.FeedQuery) ([]repository.FeedEntry, error) {
		called = "bestof"
		return nil, nil
	}

	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())
	_, err := r.GetFeed(context.Background(), FeedRequest{Virtual: VirtualEverything})
	require.NoError(t, err)
	assert.Equal(t, "everything", called)

	_, err = r.GetFeed(context.Background(), FeedRequest{Virtual: VirtualBestOf, ViewerID: 2})
	require.NoError(t, err)
	assert.Equal(t, "bestof", called)

	off := NewTimelineResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo(),
		featureflags.NewManager("everything=off"))
	_, err = off.GetFeed(context.Background(), FeedRequest{Virtual: VirtualEverything})
	assertNotFound(t, err, "Feed is not available")
}

func TestFeedRequest_Normalize(t *testing.T) {
	req := FeedRequest{Limit: -3, Offset: -1, Sort: "weird", HomeFeedMode: "bogus"}
	req.normalize()
	assert.Equal(t, 0, req.Limit, "negative limits clamp to zero, not to the default")
	assert.Equal(t, 0, req.Offset)
	assert.Equal(t, repository.SortBumped, req.Sort)
	assert.Equal(t, ModeClassic, req.HomeFeedMode)

	req = FeedRequest{Limit: 999}
	req.normalize()
	assert.Equal(t, MaxFeedLimit, req.Limit)
}

func TestGetFeed_ZeroLimitIsAnEmptyNonFinalPage(t *testing.T) {
	owner := userAccount(1, models.PrivacyPublic)
	feeds := noopFeedRepo()
	feeds.selectFeedEntriesFn = func(_ context.Context, q repository.FeedQuery) ([]repository.FeedEntry, error) {
		return []repository.FeedEntry{entry(l1, luna, 10)}[:min(q.Limit, 1)], nil
	}
	r := newResolver(feeds, noopTimelineRepo(), noopSubscriptionRepo(), noopBanRepo())

	page, err := r.GetFeed(context.Background(), FeedRequest{
		Timeline: ownedPostsFeed(owner),
		ViewerID: 2,
		Limit:    0,
	})
	require.NoError(t, err)
	assert.Empty(t, page.PostIDs)
	assert.False(t, page.IsLastPage, "posts exist beyond the empty page")
}
