// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"riverfeed/internal/models"
	"riverfeed/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them through the repositories,
// so seeded data goes through the same invariants as API writes.
type Factory struct {
	db        *gorm.DB
	rng       *rand.Rand
	accounts  repository.AccountRepository
	timelines repository.TimelineRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	subs      repository.SubscriptionRepository
	bans      repository.BanRepository
	groups    repository.GroupRepository
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:        db,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		accounts:  repository.NewAccountRepository(db),
		timelines: repository.NewTimelineRepository(db),
		posts:     repository.NewPostRepository(db),
		comments:  repository.NewCommentRepository(db),
		subs:      repository.NewSubscriptionRepository(db),
		bans:      repository.NewBanRepository(db),
		groups:    repository.NewGroupRepository(db),
	}
}

// pastTime spreads created_at over the last maxDays days.
func (f *Factory) pastTime(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateUser persists a user account with its inherent feeds. All seeded
// users share the password "password123".
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.Account)) (*models.Account, error) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	account := &models.Account{
		Username:       gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Type:           models.AccountTypeUser,
		Privacy:        models.PrivacyPublic,
		HashedPassword: string(hashed),
		CreatedAt:      f.pastTime(365),
	}
	for _, override := range overrides {
		override(account)
	}
	if err := f.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	if err := f.timelines.CreateDefaults(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// CreateGroup persists a group account with its Posts feed and makes admin
// its first administrator.
func (f *Factory) CreateGroup(ctx context.Context, admin *models.Account, overrides ...func(*models.Account)) (*models.Account, error) {
	group := &models.Account{
		Username:  gofakeit.Word() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Type:      models.AccountTypeGroup,
		Privacy:   models.PrivacyPublic,
		CreatedAt: f.pastTime(365),
	}
	for _, override := range overrides {
		override(group)
	}
	if err := f.accounts.Create(ctx, group); err != nil {
		return nil, err
	}
	if err := f.timelines.CreateDefaults(ctx, group); err != nil {
		return nil, err
	}
	if err := f.groups.AddAdmin(ctx, group.ID, admin.ID); err != nil {
		return nil, err
	}
	return group, nil
}

// CreatePost persists a post to the author's own Posts feed, or to the given
// destination feeds when any are supplied.
func (f *Factory) CreatePost(ctx context.Context, author *models.Account, destinations ...*models.Timeline) (*models.Post, error) {
	if len(destinations) == 0 {
		own, err := f.timelines.OwnerFeed(ctx, author.ID, models.FeedPosts)
		if err != nil {
			return nil, err
		}
		destinations = []*models.Timeline{own}
	}

	propagable := false
	ids := make([]uint, 0, len(destinations))
	for _, d := range destinations {
		if d.Kind == models.FeedPosts {
			propagable = true
		}
		ids = append(ids, d.ID)
	}

	post := &models.Post{
		AuthorID:     author.ID,
		Body:         gofakeit.Paragraph(1, 3, 8, "\n"),
		IsPropagable: propagable,
		CreatedAt:    f.pastTime(60),
	}
	if err := f.posts.Create(ctx, post, ids); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment, bumping the post.
func (f *Factory) CreateComment(ctx context.Context, author *models.Account, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Body:     gofakeit.Sentence(gofakeit.Number(4, 18)),
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Like records a like unless the user authored the post.
func (f *Factory) Like(ctx context.Context, user *models.Account, post *models.Post) error {
	if post.AuthorID == user.ID {
		return nil
	}
	return f.posts.Like(ctx, user.ID, post.ID)
}

// Subscribe subscribes user to target via the inherent home feed.
func (f *Factory) Subscribe(ctx context.Context, user, target *models.Account) error {
	home, err := f.timelines.OwnerFeed(ctx, user.ID, models.FeedRiverOfNews)
	if err != nil {
		return err
	}
	return f.subs.Subscribe(ctx, user.ID, target.ID, []uint{home.ID})
}
