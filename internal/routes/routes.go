package routes

import (
	"time"

	"github.com/chapterwise/chapterwise-backend/internal/config"
	"github.com/chapterwise/chapterwise-backend/internal/handlers"
	"github.com/chapterwise/chapterwise-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	notesHandler *handlers.NotesHandler,
	accountHandler *handlers.AccountHandler,
	extractHandler *handlers.ExtractHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth routes are public with a stricter per-IP limit
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Metered and account endpoints (JWT required)
	api.Post("/notes", middleware.JWTProtected(cfg), notesHandler.Generate)
	api.Post("/extract", middleware.JWTProtected(cfg), extractHandler.Extract)
	api.Get("/me", middleware.JWTProtected(cfg), accountHandler.Me)
	api.Post("/subscription/cancel", middleware.JWTProtected(cfg), accountHandler.Cancel)
	api.Post("/subscription/reactivate", middleware.JWTProtected(cfg), accountHandler.Reactivate)

	// Admin
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Post("/grant-subscription", accountHandler.GrantSubscription)

	// Webhooks are authenticated by signature, not JWT
	api.Post("/webhooks/billing", webhookHandler.HandleBilling)
}
