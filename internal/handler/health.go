package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Azora-OS/azora-sub011/internal/service"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pool    *pgxpool.Pool
	cache   *service.CacheService
	mint    *service.MintService
	started time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, cache *service.CacheService, mint *service.MintService) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		cache:   cache,
		mint:    mint,
		started: time.Now(),
	}
}

// Live handles GET /health/live: the process is up.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready handles GET /health/ready: reports per-dependency status. Postgres
// and Redis are optional; a configured but unreachable dependency degrades
// the response to 503.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Ping(c.RequestCtx()); err != nil {
			checks["postgres"] = "unreachable"
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	} else {
		checks["postgres"] = "disabled"
	}

	if rdb := h.cache.Client(); rdb != nil {
		if err := rdb.Ping(c.RequestCtx()).Err(); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "disabled"
	}

	checks["settlement"] = h.mint.SettlerName()

	status := "ok"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}
