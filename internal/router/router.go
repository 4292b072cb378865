package router

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Azora-OS/azora-sub011/internal/config"
	"github.com/Azora-OS/azora-sub011/internal/handler"
	"github.com/Azora-OS/azora-sub011/internal/middleware"
	"github.com/Azora-OS/azora-sub011/internal/service"
)

// Setup wires all middleware and routes onto the Fiber app.
func Setup(app *fiber.App, cfg *config.Config, mint *service.MintService, cache *service.CacheService, pool *pgxpool.Pool) {
	app.Use(middleware.NewCORS(strings.Split(cfg.CORSOrigins, ",")))
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())

	contributions := handler.NewContributionHandler(mint)
	proofs := handler.NewProofHandler(mint)
	users := handler.NewUserHandler(mint)
	stats := handler.NewStatsHandler(mint)
	health := handler.NewHealthHandler(pool, cache, mint)

	submitLimit := middleware.NewSubmitRateLimit()
	settleLimit := middleware.NewSettleRateLimit()
	readLimit := middleware.NewReadRateLimit()

	api := app.Group("/api")
	api.Post("/contributions", contributions.Submit, submitLimit)
	api.Post("/proofs/:proofId/settle", proofs.Settle, settleLimit)
	api.Get("/proofs/:proofId", proofs.Get, readLimit)
	api.Get("/users/:userId/proofs", users.GetProofs, readLimit)
	api.Get("/users/:userId/stats", users.GetStats, readLimit)
	api.Get("/stats", stats.GetStats, readLimit)
	api.Get("/leaderboard", stats.GetLeaderboard, readLimit)

	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)
	app.Get("/metrics", handler.MetricsHandler())
}
