// Package server contains the HTTP and WebSocket handlers of the API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "minisocial/docs" // swagger docs
	"minisocial/internal/cache"
	"minisocial/internal/config"
	"minisocial/internal/database"
	"minisocial/internal/events"
	"minisocial/internal/featureflags"
	"minisocial/internal/middleware"
	"minisocial/internal/models"
	"minisocial/internal/notifications"
	"minisocial/internal/repository"
	"minisocial/internal/service"
	"minisocial/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialised collaborators of a Server. Redis, Media
// and Events may be nil.
type Deps struct {
	DB                *gorm.DB
	Redis             *redis.Client
	Media             storage.ObjectStorage
	Events            events.Backend
	EventsBackendName string
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownFn     context.CancelFunc
	auth           *middleware.Authenticator
	featureFlags   *featureflags.Manager
	dispatcher     *events.Dispatcher
	notifier       *notifications.Notifier
	hub            *notifications.Hub

	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	feedService    *service.FeedService
	userService    *service.UserService
	mediaService   *service.MediaService
}

// NewServer connects to every backing service named in cfg and builds a
// Server on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	media, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, backendName, err := events.NewBackend(ctx, cfg, redisClient)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, Deps{
		DB:                db,
		Redis:             redisClient,
		Media:             media,
		Events:            backend,
		EventsBackendName: backendName,
	})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it with an in-memory database and no Redis.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Media == nil {
		deps.Media = storage.NewLocalStorage(cfg.MediaUploadDir)
	}

	opts := []repository.Option{repository.WithStoreTimeout(cfg.StoreTimeout())}
	userRepo := repository.NewUserRepository(deps.DB, opts...)
	followRepo := repository.NewFollowRepository(deps.DB, opts...)
	postRepo := repository.NewPostRepository(deps.DB, opts...)
	commentRepo := repository.NewCommentRepository(deps.DB, opts...)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	notifier := notifications.NewNotifier(deps.Redis)
	hub := notifications.NewHub()
	dispatcher := events.NewDispatcher(deps.Events, deps.EventsBackendName, cfg.EventsTopic,
		notifications.NewLiveFeed(notifier, hub, flags))

	return &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("minisocial-api"),
		auth:           middleware.NewAuthenticator(cfg),
		featureFlags:   flags,
		dispatcher:     dispatcher,
		notifier:       notifier,
		hub:            hub,
		postService:    service.NewPostService(postRepo, followRepo, dispatcher),
		commentService: service.NewCommentService(commentRepo, dispatcher),
		followService:  service.NewFollowService(followRepo, deps.Redis, dispatcher),
		feedService:    service.NewFeedService(userRepo, followRepo, postRepo),
		userService:    service.NewUserService(userRepo, followRepo, deps.Redis, flags),
		mediaService:   service.NewMediaService(deps.Media, cfg),
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if s.config.MediaBackend == "" || s.config.MediaBackend == "local" {
		if base := s.config.MediaPublicBaseURL; strings.HasPrefix(base, "/") {
			app.Static(base, s.config.MediaUploadDir, fiber.Static{MaxAge: 3600})
		}
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "minisocial metrics"}))

	ws := api.Group("/ws", s.auth.WebSocketAuthRequired())
	ws.Get("/", s.LiveFeedHandler())

	protected := api.Group("", s.auth.AuthRequired())

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/feed", s.GetFeed)
	posts.Post("/:postId/like", middleware.RateLimit(s.redis, 60, time.Minute, "toggle_like"), s.ToggleLike)
	posts.Post("/:postId/comment", middleware.RateLimit(s.redis, 20, time.Minute, "add_comment"), s.AddComment)
	posts.Get("/:postId", s.GetPost)

	users := protected.Group("/users")
	users.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search_users"), s.SearchUsers)
	users.Post("/follow/:userId", middleware.RateLimit(s.redis, 30, time.Minute, "toggle_follow"), s.ToggleFollow)
	users.Get("/:userId", s.GetUserProfile)

	protected.Post("/media", middleware.RateLimit(s.redis, 10, time.Minute, "upload_media"), s.UploadMedia)
	protected.Get("/feature-flags", s.GetFeatureFlags)
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "minisocial",
		BodyLimit: int(s.config.MediaMaxUploadBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start wires the live feed hub to Redis and serves HTTP on addr until the
// app is shut down.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownFn = cancel

	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
			middleware.Logger.Warn("live feed wiring failed; delivering locally only", slog.String("error", err.Error()))
		}
	}

	return s.App().Listen(addr)
}

// Run serves on addr until ctx is cancelled, then shuts down, giving
// in-flight work up to grace to finish.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	middleware.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and releases every backing resource.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down "+s.hub.Name(), slog.String("error", err.Error()))
	}
	if err := s.dispatcher.Close(); err != nil {
		middleware.Logger.Error("error closing events backend", slog.String("error", err.Error()))
	}

	database.Close(s.db)

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
