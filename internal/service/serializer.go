package service

import (
	"context"
	"time"

	"riverfeed/internal/models"
	"riverfeed/internal/repository"
)

// Serialized response shapes. Entities are referenced by UID across the
// sections so clients can join them without extra requests.

// TimelineJSON is the requested feed's header in a feed response.
type TimelineJSON struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	User  string   `json:"user"`
	Posts []string `json:"posts"`
}

// PostJSON is one post in a feed or single-post response. Comments and likes
// are folded beyond their thresholds; the omitted counts let clients render
// an expander.
type PostJSON struct {
	ID               string    `json:"id"`
	Body             string    `json:"body"`
	CreatedBy        string    `json:"createdBy"`
	Comments         []string  `json:"comments"`
	Likes            []string  `json:"likes"`
	OmittedComments  int       `json:"omittedComments"`
	OmittedLikes     int       `json:"omittedLikes"`
	CommentsDisabled bool      `json:"commentsDisabled"`
	PostedTo         []string  `json:"postedTo"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	// likerIDs holds internal liker IDs until account UIDs are resolved;
	// authorID does the same for a post loaded without its author.
	likerIDs []uint
	authorID uint
}

// CommentJSON is one comment, possibly redacted for the viewer.
type CommentJSON struct {
	ID        string                 `json:"id"`
	Body      string                 `json:"body"`
	CreatedBy string                 `json:"createdBy"`
	HideType  models.CommentHideType `json:"hideType"`
	CreatedAt time.Time              `json:"createdAt"`

	// authorID holds the internal author ID until its UID is resolved.
	authorID uint
}

// UserJSON is the public shape of an account.
type UserJSON struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Type     string `json:"type"`
	Privacy  string `json:"privacy"`
}

// FeedResponse is the composite payload served for feeds and single posts.
// Subscribers lists accounts subscribed to the requested feed's owner; it is
// empty for post responses.
type FeedResponse struct {
	Timelines   *TimelineJSON  `json:"timelines,omitempty"`
	Posts       []*PostJSON    `json:"posts"`
	Comments    []*CommentJSON `json:"comments"`
	Users       []*UserJSON    `json:"users"`
	Subscribers []*UserJSON    `json:"subscribers"`
	Attachments []any          `json:"attachments"`
	IsLastPage  bool           `json:"isLastPage"`
}

// Serializer assembles feed responses: it hydrates resolved post IDs,
// inlines a bounded number of comments and likes per post, and redacts
// comments from authors the viewer banned.
type Serializer struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	accounts repository.AccountRepository
	bans     repository.BanRepository
	subs     repository.SubscriptionRepository

	foldComments int
	foldLikes    int
}

// NewSerializer creates a serializer with the given fold thresholds.
func NewSerializer(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	accounts repository.AccountRepository,
	bans repository.BanRepository,
	subs repository.SubscriptionRepository,
	foldComments, foldLikes int,
) *Serializer {
	return &Serializer{
		posts:        posts,
		comments:     comments,
		accounts:     accounts,
		bans:         bans,
		subs:         subs,
		foldComments: foldComments,
		foldLikes:    foldLikes,
	}
}

// FeedResponse hydrates a resolved page for the viewer. Post order follows
// the page exactly.
func (s *Serializer) FeedResponse(ctx context.Context, viewerID uint, feed *models.Timeline, page *FeedPage) (*FeedResponse, error) {
	posts, err := s.posts.GetManyByID(ctx, page.PostIDs)
	if err != nil {
		return nil, err
	}
	// GetManyByID does not promise page order.
	byID := make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]*models.Post, 0, len(posts))
	for _, id := range page.PostIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	resp, err := s.build(ctx, viewerID, ordered)
	if err != nil {
		return nil, err
	}
	resp.IsLastPage = page.IsLastPage

	if feed != nil {
		postUIDs := make([]string, 0, len(ordered))
		for _, p := range ordered {
			postUIDs = append(postUIDs, p.UID)
		}
		resp.Timelines = &TimelineJSON{
			ID:    feed.UID,
			Name:  string(feed.Kind),
			User:  feed.Owner.UID,
			Posts: postUIDs,
		}
		s.collectAccount(resp, feed.Owner)

		subscriberIDs, err := s.subs.SubscriberIDs(ctx, feed.OwnerID)
		if err != nil {
			return nil, err
		}
		if len(subscriberIDs) > 0 {
			subscribers, err := s.accounts.GetManyByID(ctx, subscriberIDs)
			if err != nil {
				return nil, err
			}
			for _, a := range subscribers {
				if a.IsGone {
					continue
				}
				resp.Subscribers = append(resp.Subscribers, &UserJSON{
					ID:       a.UID,
					Username: a.Username,
					Type:     string(a.Type),
					Privacy:  string(a.Privacy),
				})
				s.collectAccount(resp, a)
			}
		}
	}
	return resp, nil
}

// PostResponse hydrates a single visible post with all its comments and
// likes unfolded.
func (s *Serializer) PostResponse(ctx context.Context, viewerID uint, view *PostView) (*FeedResponse, error) {
	unfolded := *s
	unfolded.foldComments = 0
	unfolded.foldLikes = 0
	resp, err := unfolded.build(ctx, viewerID, []*models.Post{view.Post})
	if err != nil {
		return nil, err
	}
	resp.IsLastPage = true
	return resp, nil
}

func (s *Serializer) build(ctx context.Context, viewerID uint, posts []*models.Post) (*FeedResponse, error) {
	resp := &FeedResponse{
		Posts:       []*PostJSON{},
		Comments:    []*CommentJSON{},
		Users:       []*UserJSON{},
		Subscribers: []*UserJSON{},
		Attachments: []any{},
	}

	bannedAuthors := map[uint]bool{}
	if viewerID != 0 {
		ids, err := s.bans.IDsBannedBy(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			bannedAuthors[id] = true
		}
	}

	accountIDs := map[uint]bool{}
	for _, post := range posts {
		pj := &PostJSON{
			ID:               post.UID,
			Body:             post.Body,
			CommentsDisabled: post.CommentsDisabled,
			CreatedAt:        post.CreatedAt,
			UpdatedAt:        post.UpdatedAt,
			Comments:         []string{},
			Likes:            []string{},
			PostedTo:         []string{},
		}
		if post.Author != nil {
			pj.CreatedBy = post.Author.UID
			s.collectAccount(resp, post.Author)
		} else {
			pj.authorID = post.AuthorID
			accountIDs[post.AuthorID] = true
		}
		for _, d := range post.Destinations {
			pj.PostedTo = append(pj.PostedTo, d.UID)
		}

		comments, err := s.comments.ListForPost(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		shown := comments
		if s.foldComments > 0 && len(comments) > s.foldComments {
			// Fold the middle: keep the first ones and the latest, the way
			// clients render "N more comments" between them.
			shown = append([]*models.Comment{}, comments[:s.foldComments-1]...)
			shown = append(shown, comments[len(comments)-1])
			pj.OmittedComments = len(comments) - len(shown)
		}
		for _, c := range shown {
			cj := &CommentJSON{
				ID:        c.UID,
				Body:      c.Body,
				CreatedAt: c.CreatedAt,
			}
			if c.Author != nil {
				cj.CreatedBy = c.Author.UID
				if c.Author.IsGone {
					continue
				}
				s.collectAccount(resp, c.Author)
			} else {
				cj.authorID = c.AuthorID
				accountIDs[c.AuthorID] = true
			}
			if bannedAuthors[c.AuthorID] {
				cj.Body = models.HiddenCommentBody
				cj.HideType = models.CommentHiddenByBan
			}
			pj.Comments = append(pj.Comments, cj.ID)
			resp.Comments = append(resp.Comments, cj)
		}

		likerIDs, err := s.posts.LikerIDs(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		visibleLikers := make([]uint, 0, len(likerIDs))
		for _, id := range likerIDs {
			if bannedAuthors[id] {
				continue
			}
			visibleLikers = append(visibleLikers, id)
		}
		if s.foldLikes > 0 && len(visibleLikers) > s.foldLikes {
			pj.OmittedLikes = len(visibleLikers) - s.foldLikes
			visibleLikers = visibleLikers[:s.foldLikes]
		}
		for _, id := range visibleLikers {
			accountIDs[id] = true
		}
		pj.Likes = make([]string, 0, len(visibleLikers))
		pj.likerIDs = visibleLikers

		resp.Posts = append(resp.Posts, pj)
	}

	if len(accountIDs) > 0 {
		ids := make([]uint, 0, len(accountIDs))
		for id := range accountIDs {
			ids = append(ids, id)
		}
		accounts, err := s.accounts.GetManyByID(ctx, ids)
		if err != nil {
			return nil, err
		}
		uidByID := make(map[uint]string, len(accounts))
		for _, a := range accounts {
			uidByID[a.ID] = a.UID
			s.collectAccount(resp, a)
		}
		for _, pj := range resp.Posts {
			if pj.CreatedBy == "" {
				pj.CreatedBy = uidByID[pj.authorID]
			}
			for _, id := range pj.likerIDs {
				if uid, ok := uidByID[id]; ok {
					pj.Likes = append(pj.Likes, uid)
				}
			}
		}
		for _, cj := range resp.Comments {
			if cj.CreatedBy == "" {
				cj.CreatedBy = uidByID[cj.authorID]
			}
		}
	}
	return resp, nil
}

func (s *Serializer) collectAccount(resp *FeedResponse, account *models.Account) {
	for _, u := range resp.Users {
		if u.ID == account.UID {
			return
		}
	}
	resp.Users = append(resp.Users, &UserJSON{
		ID:       account.UID,
		Username: account.Username,
		Type:     string(account.Type),
		Privacy:  string(account.Privacy),
	})
}
