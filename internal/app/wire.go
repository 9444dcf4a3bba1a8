package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/destinos/platform/internal/auth"
	"github.com/destinos/platform/internal/gamification"
	"github.com/destinos/platform/internal/guard"
	"github.com/destinos/platform/internal/handler"
	adminhandler "github.com/destinos/platform/internal/handler/admin"
	"github.com/destinos/platform/internal/repository"
	"github.com/destinos/platform/internal/service"
	"github.com/destinos/platform/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool   *pgxpool.Pool
	JWTMgr *auth.JWTManager
	Logger *slog.Logger
	Engine *gamification.Engine
	Season adminhandler.SeasonResetter
	Images storage.ImageStore
	// UploadDir is served under /upload when images are stored locally.
	UploadDir   string
	CORSOrigins []string
	// Signup and login requests per client IP and window.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Repositories
	userRepo := repository.NewPgUserRepository()
	destRepo := repository.NewDestinationRepository()
	reviewRepo := repository.NewReviewRepository()
	categoryRepo := repository.NewCategoryRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Guards
	idem := guard.NewIdempotencyGuard(guard.DefaultIdempotencyTTL)
	authLimiter := guard.NewRateLimiter(deps.AuthRateLimit, deps.AuthRateWindow)

	// Services
	authSvc := service.NewAuthService(pool, userRepo, outboxRepo, jwtMgr, logger)
	destSvc := service.NewDestinationService(pool, destRepo, reviewRepo, userRepo, outboxRepo,
		deps.Engine, deps.Images, idem, logger)
	reviewSvc := service.NewReviewService(pool, reviewRepo, destRepo)
	userSvc := service.NewUserService(pool, userRepo, deps.Engine)
	categorySvc := service.NewCategoryService(pool, categoryRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	destHandler := handler.NewDestinationHandler(destSvc)
	searchHandler := handler.NewSearchHandler(destSvc, userSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	userHandler := handler.NewUserHandler(userSvc, destSvc)
	categoryHandler := handler.NewCategoryHandler(categorySvc)

	// Admin handlers
	userAdmin := adminhandler.NewUserAdminHandler(userSvc)
	destAdmin := adminhandler.NewDestinationAdminHandler(destSvc)
	reviewAdmin := adminhandler.NewReviewAdminHandler(reviewSvc)
	seasonAdmin := adminhandler.NewSeasonHandler(deps.Season, logger)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins...))

	// Uploaded images keep the content type the file server detects.
	if deps.UploadDir != "" {
		r.Handle("/upload/*", http.StripPrefix("/upload/", http.FileServer(http.Dir(deps.UploadDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)

		// Health (no auth)
		r.Get("/health", handler.HealthHandler(pool))

		// Auth routes (no auth, rate limited)
		r.Route("/auth", func(r chi.Router) {
			r.With(handler.RateLimit(authLimiter, "signup")).Post("/signup", authHandler.Signup)
			r.With(handler.RateLimit(authLimiter, "login")).Post("/login", authHandler.Login)
			r.With(auth.Authenticate(jwtMgr)).Get("/renew", authHandler.Renew)
		})

		// Public reads
		r.Get("/search", searchHandler.Search)
		r.Get("/categories", categoryHandler.List)
		r.Route("/destinations", func(r chi.Router) {
			r.Get("/", destHandler.List)
			r.Get("/featured", destHandler.Featured)
			r.Get("/slug/{slug}", destHandler.GetBySlug)
			r.Get("/{id}", destHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate(jwtMgr))
				r.Post("/", destHandler.Suggest)
				r.Put("/{id}", destHandler.Update)
				r.Delete("/{id}", destHandler.Delete)
			})
		})
		r.Get("/users/top", userHandler.Top)
		r.Get("/users/{id}", userHandler.Get)
		r.Get("/users/{id}/destinations", userHandler.Destinations)
		r.Get("/users/{id}/reviews", reviewHandler.ListByUser)
		r.Get("/users/{id}/gamification", userHandler.Gamification)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(jwtMgr))

			r.Post("/reviews", reviewHandler.Create)
			r.Put("/users/me", userHandler.UpdateMe)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Authenticate(jwtMgr))

			// Moderators and admins
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.ModerationRoles()...))

				r.Route("/destinations", func(r chi.Router) {
					r.Get("/all", destAdmin.ListAll)
					r.Get("/pending", destAdmin.ListPending)
					r.Patch("/{id}/approve", destAdmin.Approve)
					r.Patch("/{id}/reject", destAdmin.Reject)
					r.Put("/{id}", destAdmin.Update)
					r.Delete("/{id}", destAdmin.Delete)
				})
				r.Delete("/reviews/{id}", reviewAdmin.Delete)
				r.Get("/categories", categoryHandler.List)
			})

			// Admins only
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))

				r.Route("/users", func(r chi.Router) {
					r.Get("/", userAdmin.List)
					r.Get("/{id}", userAdmin.Get)
					r.Put("/{id}", userAdmin.Update)
					r.Patch("/{id}/role", userAdmin.ChangeRole)
					r.Delete("/{id}", userAdmin.Delete)
				})
				r.Post("/season/reset", seasonAdmin.Reset)
			})
		})
	})

	return r
}
