// Package server contains the HTTP and WebSocket handlers of the campus API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "campus/docs" // swagger docs
	"campus/internal/bootstrap"
	"campus/internal/config"
	"campus/internal/featureflags"
	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/notifications"
	"campus/internal/repository"
	"campus/internal/service"
	"campus/internal/storage"

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

// bodyLimitSlack is the multipart overhead allowed on top of the upload cap.
const bodyLimitSlack = 1 << 20

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	blobs          storage.BlobStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	notifier     *notifications.Notifier
	hub          *notifications.VariantHub
	featureFlags *featureflags.Manager

	authService       *service.AuthService
	membershipService *service.MembershipService
	resourceService   *service.ResourceService
	evaluationService *service.EvaluationService
	catalogService    *service.CatalogService
	sweeper           *service.OrphanSweeper
}

// NewServer connects the database, Redis and blob storage, then wires the services.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{SeedCatalog: cfg.SeedCatalog})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Blobs)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; token revocation, caching and realtime events are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs storage.BlobStore) (*Server, error) {
	if db == nil {
		return nil, errors.New("server requires a database")
	}
	if blobs == nil {
		return nil, errors.New("server requires a blob store")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		blobs:          blobs,
		promMiddleware: middleware.InitMetrics("campus-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewVariantHub()
	}

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL(), redisClient)
	s.authService = service.NewAuthService(userRepo, tokens)
	s.membershipService = service.NewMembershipService(membershipRepo)
	s.catalogService = service.NewCatalogService(catalogRepo, redisClient)
	s.evaluationService = service.NewEvaluationService(evaluationRepo, resourceRepo, s.membershipService, s.featureFlags)

	resourceCfg := service.ResourceServiceConfig{
		MaxUploadBytes: cfg.ResourceMaxUploadBytes(),
		Flags:          s.featureFlags,
	}
	// A nil *Notifier inside the interface would not compare equal to nil.
	if s.notifier != nil {
		resourceCfg.Events = s.notifier
	}
	s.resourceService = service.NewResourceService(resourceRepo, s.membershipService, blobs, resourceCfg)

	s.sweeper = service.NewOrphanSweeper(resourceRepo, blobs, service.SweeperConfig{
		Schedule:    cfg.SweepSchedule,
		StageMaxAge: cfg.SweepStageMaxAge(),
	})

	return s, nil
}

// App builds the Fiber application with middleware and routes. It is used by
// Start and by handler tests.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Campus API",
		BodyLimit: int(s.config.ResourceMaxUploadBytes()) + bodyLimitSlack,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(fiber.Map{"ok": false, "msg": fiberErrorMsg(fe)})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error",
				slog.String("path", c.Path()), slog.Any("error", err))
			return respondJSONError(c, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Downloads are rendered inline by the browser's PDF viewer.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:4200,http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    "Content-Disposition",
		AllowCredentials: true,
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
				"ok":  false,
				"msg": "too-many-requests",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Campus Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := s.AuthRequired()
	quota := middleware.NewLimiter(s.redis, s.config.RateLimited())

	auth := api.Group("/auth")
	auth.Post("/register", quota.Middleware(middleware.Rule{
		Name: "register", Limit: 5, Window: 10 * time.Minute}), s.Register)
	auth.Post("/login", quota.Middleware(middleware.Rule{
		Name: "login", Limit: 10, Window: 5 * time.Minute}), s.Login)
	auth.Get("/check", authRequired, s.CheckAuth)
	auth.Post("/logout", authRequired, s.Logout)

	api.Get("/subjects", authRequired, s.GetSubjects)
	variants := api.Group("/variants", authRequired)
	variants.Get("/", s.GetVariants)
	variants.Get("/bySubject", s.GetVariantsBySubject)

	subscriptions := api.Group("/subscriptions", authRequired)
	subscriptions.Post("/", s.CreateSubscription)
	subscriptions.Put("/state", s.UpdateSubscriptionState)
	subscriptions.Get("/user", s.GetMySubscriptions)
	subscriptions.Get("/", s.GetSubscriptions)

	userVariants := api.Group("/userVariants", authRequired)
	userVariants.Post("/", s.GrantRole)
	userVariants.Put("/", s.UpdateRole)
	userVariants.Get("/", s.GetMyMemberships)

	// Downloads answer auth failures in plain text, so the resource group
	// attaches authentication per route instead of group-wide.
	resources := api.Group("/resources")
	resources.Get("/download", s.PlainAuthRequired(), s.DownloadResource)
	resources.Post("/", authRequired, quota.Middleware(middleware.Rule{
		Name: "upload", Limit: 20, Window: 10 * time.Minute}), s.CreateResource)
	resources.Get("/byUser", authRequired, s.GetResourcesByUser)
	resources.Get("/byVariant", authRequired, s.GetResourcesByVariant)
	resources.Delete("/", authRequired, s.DeleteResource)

	evaluations := api.Group("/evaluations", authRequired)
	evaluations.Post("/", s.CreateEvaluation)
	evaluations.Get("/byResource", s.GetEvaluationsByResource)
	evaluations.Put("/", s.UpdateEvaluation)

	api.Get("/feature-flags", authRequired, s.GetFeatureFlags)

	api.Get("/ws", s.WebSocketAuthRequired(), s.VariantEventsUpgrade, s.VariantEventsHandler())
}

// AuthRequired enforces a bearer token and answers failures with JSON.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(middleware.AuthConfig{
		Secret: s.config.JWTSecret,
		Redis:  s.redis,
	})
}

// PlainAuthRequired enforces a bearer token and answers failures with a text body.
func (s *Server) PlainAuthRequired() fiber.Handler {
	return middleware.AuthRequired(middleware.AuthConfig{
		Secret:    s.config.JWTSecret,
		Redis:     s.redis,
		PlainText: true,
	})
}

// WebSocketAuthRequired also accepts ?token= because browsers cannot set
// headers on websocket upgrades.
func (s *Server) WebSocketAuthRequired() fiber.Handler {
	return middleware.AuthRequired(middleware.AuthConfig{
		Secret:          s.config.JWTSecret,
		Redis:           s.redis,
		AllowQueryToken: true,
	})
}

// HealthCheck keeps the original {status:"ok"} contract.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports 503 while the database, or a configured Redis, does
// not answer. Redis is optional, so running without it is still ready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"storage":  s.blobs.Backend(),
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.Any("error", err))
			}
		}()
	}

	if err := s.sweeper.Start(s.shutdownCtx); err != nil {
		return fmt.Errorf("start orphan sweeper: %w", err)
	}

	middleware.Logger.Info("Server starting",
		slog.String("port", s.config.Port),
		slog.String("storage", s.blobs.Backend()))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.Any("error", err))
		}
	}

	s.sweeper.Stop(ctx)

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", s.hub.Name()), slog.Any("error", err))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.Any("error", cerr))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.Any("error", rerr))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
