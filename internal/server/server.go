// Package server contains the HTTP handlers and routing for the city events API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "cityevents/docs" // swagger docs
	"cityevents/internal/bootstrap"
	"cityevents/internal/config"
	"cityevents/internal/database"
	"cityevents/internal/middleware"
	"cityevents/internal/models"
	"cityevents/internal/repository"
	"cityevents/internal/service"
	"cityevents/internal/storage"

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
	store          storage.ImageStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	authService     *service.AuthService
	eventService    *service.EventService
	ratingService   *service.RatingService
	categoryService *service.CategoryService
	adminService    *service.AdminService
	imageService    *service.ImageService
}

// NewServer initializes the runtime and image storage and builds a Server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("image storage unavailable: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ImageStore) *Server {
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	events := service.NewEventService(eventRepo, categoryRepo)

	return &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		store:           store,
		promMiddleware:  middleware.InitMetrics("cityevents-api"),
		authService:     service.NewAuthService(userRepo, cfg),
		eventService:    events,
		ratingService:   service.NewRatingService(eventRepo, ratingRepo),
		categoryService: service.NewCategoryService(categoryRepo),
		adminService:    service.NewAdminService(userRepo, eventRepo, categoryRepo, ratingRepo),
		imageService:    service.NewImageService(events, store, cfg),
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "City Events API",
		BodyLimit:    int(s.imageService.MaxUploadBytes()) + 1<<20,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler renders errors that escape handlers, including Fiber's own
// routing errors, in the standard error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			code = models.CodeValidation
		case fiber.StatusMethodNotAllowed:
			code = models.CodeNotFound
		}
		if code == models.CodeInternal && fe.Code < fiber.StatusInternalServerError {
			code = models.CodeValidation
		}
		return models.RespondWithError(c, fe.Code, &models.AppError{Code: code, Message: fe.Message})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, models.StatusForError(err), err)
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
		// Event images are loaded cross-origin by the web client.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		MaxAge:       86400,
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
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    models.CodeRateLimited,
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static(storage.LocalMediaPrefix, local.Root(), fiber.Static{
			MaxAge: 86400,
		})
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	categories := api.Group("/categories")
	categories.Get("/", s.GetCategories)
	categories.Post("/", s.AuthRequired(),
		middleware.RequireCapability(models.CapManageCategories), s.CreateCategory)
	categories.Delete("/:id", s.AuthRequired(),
		middleware.RequireCapability(models.CapManageCategories), s.DeleteCategory)

	events := api.Group("/events")
	events.Get("/", s.GetEvents)
	events.Get("/:id", s.GetEvent)
	events.Post("/", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, 10*time.Minute, "create_event"), s.CreateEvent)
	events.Post("/:id/rate", s.AuthRequired(),
		middleware.RateLimit(s.redis, 30, time.Minute, "rate_event"), s.RateEvent)
	events.Post("/:id/image", s.AuthRequired(), s.UploadEventImage)
	events.Put("/:id", s.AuthRequired(), s.UpdateEvent)
	events.Delete("/:id", s.AuthRequired(), s.DeleteEvent)

	admin := api.Group("/admin", s.AuthRequired(), middleware.RequireRole(models.RoleAdmin))
	admin.Get("/events/pending", s.GetPendingEvents)
	admin.Post("/events/:id/approve", s.ApproveEvent)
	admin.Post("/events/:id/reject", s.RejectEvent)
	admin.Get("/users", s.GetUsers)
	admin.Put("/users/:id/role", s.ChangeUserRole)
	admin.Get("/stats", s.GetStats)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only a
// configured but unreachable Redis makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// AuthRequired verifies the bearer token and attaches the caller's identity.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			message := "Authorization required"
			if errors.Is(err, middleware.ErrMalformedHeader) {
				message = "Invalid authorization header format"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(message))
		}

		identity, claims, err := s.authService.Authenticate(c.UserContext(), token)
		if err != nil {
			return s.respondWithAppError(c, err)
		}

		middleware.SetIdentity(c, identity)
		c.Locals(middleware.LocalsTokenJTI, claims.JTI)
		c.Locals(middleware.LocalsTokenExp, claims.ExpiresAt)
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
