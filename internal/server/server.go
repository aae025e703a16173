// Package server contains the HTTP handlers for the public API.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"riverfeed/internal/cache"
	"riverfeed/internal/config"
	"riverfeed/internal/database"
	"riverfeed/internal/featureflags"
	"riverfeed/internal/middleware"
	"riverfeed/internal/models"
	"riverfeed/internal/notifications"
	"riverfeed/internal/repository"
	"riverfeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// aclCacheSize bounds the in-process relation cache; entries also expire
// after aclCacheTTL, so relation changes propagate within that window.
const (
	aclCacheSize = 65536
	aclCacheTTL  = 30 * time.Second
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	accountRepo      repository.AccountRepository
	timelineRepo     repository.TimelineRepository
	postRepo         repository.PostRepository
	commentRepo      repository.CommentRepository
	subscriptionRepo repository.SubscriptionRepository
	banRepo          repository.BanRepository
	groupRepo        repository.GroupRepository
	feedRepo         repository.FeedRepository

	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager

	visibility *service.VisibilityService
	gate       *service.AccessGate
	resolver   *service.TimelineResolver
	homeFeeds  *service.HomeFeedService
	postSvc    *service.PostService
	serializer *service.Serializer
}

// NewServer creates a server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB and Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	acl, err := cache.NewACLCache(aclCacheSize, aclCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("acl cache: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("riverfeed-api"),

		accountRepo:      repository.NewAccountRepository(db),
		timelineRepo:     repository.NewTimelineRepository(db),
		postRepo:         repository.NewPostRepository(db),
		commentRepo:      repository.NewCommentRepository(db),
		subscriptionRepo: repository.NewSubscriptionRepository(db),
		banRepo:          repository.NewBanRepository(db),
		groupRepo:        repository.NewGroupRepository(db),
		feedRepo:         repository.NewFeedRepository(db),

		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
	}

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
	}

	s.visibility = service.NewVisibilityService(s.subscriptionRepo, s.banRepo, s.postRepo, acl)
	s.gate = service.NewAccessGate(s.visibility, s.postRepo, s.commentRepo)
	s.resolver = service.NewTimelineResolver(s.feedRepo, s.timelineRepo, s.subscriptionRepo, s.banRepo, s.featureFlags)
	s.homeFeeds = service.NewHomeFeedService(s.timelineRepo, s.subscriptionRepo, s.banRepo, s.accountRepo, s.groupRepo, acl)
	s.postSvc = service.NewPostService(
		s.postRepo, s.commentRepo, s.timelineRepo, s.accountRepo, s.groupRepo,
		s.banRepo, s.subscriptionRepo, s.notifier,
	)
	s.serializer = service.NewSerializer(
		s.postRepo, s.commentRepo, s.accountRepo, s.banRepo, s.subscriptionRepo,
		cfg.FoldCommentsThreshold, cfg.FoldLikesThreshold,
	)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"err": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/v1")

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Feed reads serve anonymous viewers with reduced visibility.
	timelines := api.Group("/timelines", middleware.AuthOptional)

	// Viewer-scoped feeds; the resolver itself refuses non-owners.
	timelines.Get("/home/list", s.ListHomeFeeds)
	timelines.Get("/home/:feedId/posts", s.GetAuxiliaryHomeFeed)
	timelines.Get("/home", s.GetHomeFeed)
	timelines.Get("/filter/discussions", s.GetDiscussionsFeed)
	timelines.Get("/filter/directs", s.GetDirectsFeed)
	timelines.Get("/filter/saves", s.GetSavesFeed)
	timelines.Get("/filter/hides", s.GetHidesFeed)

	// Sitewide virtual feeds, feature-flagged.
	api.Get("/everything", middleware.AuthOptional, s.GetEverythingFeed)
	api.Get("/bestof", middleware.AuthOptional, s.GetBestOfFeed)

	// Account feeds; specific sub-feeds before the generic username route.
	timelines.Get("/:username/likes", s.GetLikesFeed)
	timelines.Get("/:username/comments", s.GetCommentsFeed)
	timelines.Get("/:username", s.GetPostsFeed)

	// Home feed management.
	home := api.Group("/timelines/home", middleware.AuthRequired)
	home.Post("/", s.CreateHomeFeed)
	home.Patch("/", s.ReorderHomeFeeds)
	home.Put("/:feedId", s.RenameHomeFeed)
	home.Delete("/:feedId", s.DeleteHomeFeed)

	posts := api.Group("/posts")
	posts.Post("/", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 30, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:postId/comments", middleware.AuthOptional, s.GetPostComments)
	posts.Post("/:postId/comments", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 60, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:postId/like", middleware.AuthRequired, s.LikePost)
	posts.Delete("/:postId/like", middleware.AuthRequired, s.UnlikePost)
	posts.Post("/:postId/hide", middleware.AuthRequired, s.HidePost)
	posts.Delete("/:postId/hide", middleware.AuthRequired, s.UnhidePost)
	posts.Post("/:postId/save", middleware.AuthRequired, s.SavePost)
	posts.Delete("/:postId/save", middleware.AuthRequired, s.UnsavePost)
	posts.Post("/:postId/removeFromMe", middleware.AuthRequired, s.RemovePostFromMe)
	posts.Get("/:postId", middleware.AuthOptional, s.GetPost)
	posts.Put("/:postId", middleware.AuthRequired, s.UpdatePost)
	posts.Delete("/:postId", middleware.AuthRequired, s.DeletePost)

	comments := api.Group("/comments")
	comments.Get("/:commentId", middleware.AuthOptional, s.GetComment)
	comments.Delete("/:commentId", middleware.AuthRequired, s.DeleteComment)

	users := api.Group("/users", middleware.AuthRequired)
	users.Put("/me", s.UpdateMe)
	users.Post("/:username/subscribe", s.Subscribe)
	users.Post("/:username/unsubscribe", s.Unsubscribe)
	users.Put("/:username/subscription", s.UpdateSubscription)
	users.Post("/:username/ban", s.BanUser)
	users.Post("/:username/unban", s.UnbanUser)

	groups := api.Group("/groups", middleware.AuthRequired)
	groups.Post("/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "create_group"), s.CreateGroup)
	groups.Post("/:groupName/admins/:username", s.AddGroupAdmin)
	groups.Delete("/:groupName/admins/:username", s.RemoveGroupAdmin)
	groups.Post("/:groupName/block/:username", s.BlockFromGroup)
	groups.Post("/:groupName/unblock/:username", s.UnblockFromGroup)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional for
// readiness; the database is not.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "riverfeed",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}
	log.Println("Server shutdown complete")
	return nil
}
