// Package server contains the HTTP and WebSocket handlers of the SheRise API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "sherise/docs" // swagger docs
	"sherise/internal/bootstrap"
	"sherise/internal/coach"
	"sherise/internal/config"
	"sherise/internal/database"
	"sherise/internal/featureflags"
	"sherise/internal/fixtures"
	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/repository"
	"sherise/internal/service"
	"sherise/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store        *store.Store
	bus          *notifications.Bus
	notifier     *notifications.Notifier
	relay        *notifications.Relay
	hub          *notifications.Hub
	detachHub    func()
	catalog      *fixtures.Catalog
	featureFlags *featureflags.Manager

	accounts *service.AccountService
	profiles *service.ProfileService
	follows  *service.FollowService
	explore  *service.ExploreService
	feed     *service.FeedService
	hirings  *service.HiringService
	cart     *service.CartService
	messages *service.MessageService
	shop     *service.ShopService
	coach    *coach.Coach
}

// Deps are the collaborators NewServerWithDeps does not build from config itself.
// A nil Fixtures reads the configured fixture source; a nil Generator builds the Gemini client.
type Deps struct {
	Fixtures  fixtures.Source
	Generator coach.Generator
}

// NewServer connects the database and Redis and builds a server from cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb, Deps{})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the server then runs without cache, rate limits and cross-instance events.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps Deps) (*Server, error) {
	ctx := context.Background()

	src := deps.Fixtures
	if src == nil {
		var err error
		if src, err = fixtures.NewSource(ctx, cfg); err != nil {
			return nil, fmt.Errorf("fixture source: %w", err)
		}
	}

	generator := deps.Generator
	if generator == nil {
		gemini, err := coach.NewGeminiGenerator(ctx, coach.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.GeminiTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("coach generator: %w", err)
		}
		if !gemini.Configured() {
			middleware.Logger.Info("GEMINI_API_KEY not set; coach uses the offline fallback")
		}
		generator = gemini
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("sherise-api"),
		store:          store.New(repository.NewSliceRepository(db, redisClient)),
		bus:            notifications.NewBus(),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		catalog:        fixtures.NewCatalog(src, redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.relay = notifications.NewRelay(s.bus, s.notifier)
	s.detachHub = s.hub.Attach(s.bus)

	s.profiles = service.NewProfileService(s.store, s.bus, s.catalog)
	s.accounts = service.NewAccountService(repository.NewAccountRepository(db), s.store, s.profiles, cfg.JWTSecret)
	s.follows = service.NewFollowService(s.store, s.bus, s.profiles)
	s.explore = service.NewExploreService(s.store, s.bus, s.catalog, s.profiles)
	s.feed = service.NewFeedService(s.store, s.bus, s.catalog, s.profiles)
	s.hirings = service.NewHiringService(s.store, s.bus, s.catalog)
	s.cart = service.NewCartService(s.store, s.bus)
	s.messages = service.NewMessageService(s.store, s.bus, cfg.MessageReplyDelay())
	s.shop = service.NewShopService(s.catalog)
	s.coach = coach.New(s.store, s.bus, s.catalog, generator, s.featureFlags)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-Match, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    "ETag",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
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

	// Fixture files, served as stored
	for _, name := range fixtures.Names {
		app.Get("/"+name, s.GetFixture(name))
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/trends", s.GetTrends)
	api.Get("/products", s.GetProducts)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	protected := api.Group("", s.AuthRequired())

	protected.Get("/feature-flags", s.GetFeatureFlags)

	slices := protected.Group("/slices")
	slices.Get("/:key", s.GetSlice)
	slices.Put("/:key", s.PutSlice)
	slices.Delete("/:key", s.DeleteSlice)

	protected.Post("/events/:name", s.PublishEvent)
	protected.Post("/ws/ticket", s.IssueWSTicket)

	// WebSocket: auth accepts a single-use ticket here since browsers cannot set headers
	api.Get("/ws", s.AuthRequired(), s.LiveEventsEnabled(), s.RequireUpgrade, s.WebsocketHandler())

	hirings := protected.Group("/hirings")
	hirings.Get("/", s.ListHirings)
	hirings.Post("/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_hiring"), s.CreateHiring)
	hirings.Get("/categories", s.GetHiringCategories)
	hirings.Post("/open-form", s.OpenHiringForm)

	posts := protected.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/like", s.TogglePostLike)

	protected.Get("/follows", s.GetFollows)
	protected.Post("/follows/:userId/toggle", s.ToggleFollow)
	protected.Get("/connections", s.GetConnections)

	explore := protected.Group("/explore")
	explore.Get("/", s.ListExplore)
	explore.Post("/:id/like", s.ToggleExploreLike)
	explore.Post("/:id/save", s.ToggleExploreSave)

	// /me before the generic /:id
	profiles := protected.Group("/profiles")
	profiles.Get("/", s.ListProfiles)
	profiles.Get("/me", s.GetMyProfile)
	profiles.Put("/me", s.UpdateMyProfile)
	profiles.Get("/:id", s.GetProfile)

	coachGroup := protected.Group("/coach")
	coachGroup.Get("/", s.GetCoachTranscript)
	coachGroup.Post("/messages", middleware.RateLimit(s.redis, 20, time.Minute, "coach"), s.SendCoachMessage)
	coachGroup.Delete("/", s.ResetCoach)
	coachGroup.Get("/suggestions", s.GetCoachSuggestions)

	messages := protected.Group("/messages")
	messages.Get("/:userId", s.GetThread)
	messages.Post("/:userId", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)

	cart := protected.Group("/cart")
	cart.Get("/", s.GetCart)
	cart.Post("/items", s.AddCartItem)
	cart.Patch("/items/:index", s.UpdateCartItem)
	cart.Delete("/items/:index", s.RemoveCartItem)

	protected.Get("/checkout", s.GetCheckout)
	protected.Post("/checkout/:action", s.TransitionCheckout)

	protected.Get("/orders", s.GetOrders)
	protected.Post("/orders", s.PlaceOrder)
}

// newApp builds the Fiber app with middleware and routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "SheRise API",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "Unhandled request error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the database and Redis. Redis is optional: its absence
// degrades the report but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
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
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
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

// Start starts the server and blocks until it stops listening.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	go func() {
		if err := s.relay.Start(s.shutdownCtx); err != nil {
			middleware.Logger.Error("Failed to start event relay", slog.String("error", err.Error()))
		}
	}()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	s.relay.Stop()
	s.messages.Close()
	if s.detachHub != nil {
		s.detachHub()
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("Error shutting down event hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("Error closing database", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("Error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
