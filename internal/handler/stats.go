package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Azora-OS/azora-sub011/internal/service"
)

const leaderboardSize = 10

// StatsHandler serves global pipeline statistics and the leaderboard.
type StatsHandler struct {
	mint *service.MintService
}

func NewStatsHandler(mint *service.MintService) *StatsHandler {
	return &StatsHandler{mint: mint}
}

// GetStats handles GET /api/stats.
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	stats := h.mint.GetStats(c.RequestCtx(), leaderboardSize)
	return c.JSON(stats)
}

// GetLeaderboard handles GET /api/leaderboard.
func (h *StatsHandler) GetLeaderboard(c fiber.Ctx) error {
	stats := h.mint.GetStats(c.RequestCtx(), leaderboardSize)
	return c.JSON(fiber.Map{
		"leaderboard": stats.TopContributors,
	})
}
