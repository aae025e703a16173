package seed

import (
	"context"
	"log"

	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// Seeder populates the database with a connected mesh of demo accounts,
// subscriptions, and posts.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db)}
}

// ClearAll removes every seeded row. Table order follows foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []string{
		"likes", "comments", "post_removals", "hides", "saves",
		"post_destinations", "posts",
		"homefeed_subscriptions", "subscriptions", "bans",
		"group_admins", "group_blocks",
		"timelines", "accounts",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	log.Println("Cleared all tables")
	return nil
}

// SeedSocialMesh creates numUsers users, a handful of groups, a subscription
// mesh, and numPosts posts with comments and likes.
func (s *Seeder) SeedSocialMesh(ctx context.Context, numUsers, numPosts int) error {
	f := s.factory

	users := make([]*models.Account, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		overrides := []func(*models.Account){}
		// A slice of non-public users keeps visibility paths exercised.
		switch i % 10 {
		case 7:
			overrides = append(overrides, func(a *models.Account) { a.Privacy = models.PrivacyProtected })
		case 9:
			overrides = append(overrides, func(a *models.Account) { a.Privacy = models.PrivacyPrivate })
		}
		u, err := f.CreateUser(ctx, overrides...)
		if err != nil {
			return err
		}
		users = append(users, u)
	}
	log.Printf("Created %d users", len(users))

	groups := make([]*models.Account, 0, 3)
	for i := 0; i < 3 && i < len(users); i++ {
		g, err := f.CreateGroup(ctx, users[i])
		if err != nil {
			return err
		}
		groups = append(groups, g)
	}
	log.Printf("Created %d groups", len(groups))

	// Each user follows a few others and maybe a group.
	for i, u := range users {
		follows := f.rng.Intn(6) + 2
		for j := 1; j <= follows; j++ {
			target := users[(i+j*3)%len(users)]
			if target.ID == u.ID || target.Privacy == models.PrivacyPrivate {
				continue
			}
			if err := f.Subscribe(ctx, u, target); err != nil {
				return err
			}
		}
		if len(groups) > 0 && i%2 == 0 {
			if err := f.Subscribe(ctx, u, groups[i%len(groups)]); err != nil {
				return err
			}
		}
	}
	log.Println("Created subscription mesh")

	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		author := users[f.rng.Intn(len(users))]
		var post *models.Post
		var err error
		if len(groups) > 0 && i%7 == 0 {
			group := groups[i%len(groups)]
			feed, ferr := f.timelines.OwnerFeed(ctx, group.ID, models.FeedPosts)
			if ferr != nil {
				return ferr
			}
			post, err = f.CreatePost(ctx, author, feed)
		} else {
			post, err = f.CreatePost(ctx, author)
		}
		if err != nil {
			return err
		}
		posts = append(posts, post)
	}
	log.Printf("Created %d posts", len(posts))

	for _, post := range posts {
		for c := f.rng.Intn(5); c > 0; c-- {
			commenter := users[f.rng.Intn(len(users))]
			if _, err := f.CreateComment(ctx, commenter, post); err != nil {
				return err
			}
		}
		for l := f.rng.Intn(8); l > 0; l-- {
			if err := f.Like(ctx, users[f.rng.Intn(len(users))], post); err != nil {
				return err
			}
		}
	}
	log.Println("Created comments and likes")
	return nil
}
