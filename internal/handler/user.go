package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Azora-OS/azora-sub011/internal/middleware"
	"github.com/Azora-OS/azora-sub011/internal/service"
)

// UserHandler serves per-user proof and statistics endpoints.
type UserHandler struct {
	mint *service.MintService
}

func NewUserHandler(mint *service.MintService) *UserHandler {
	return &UserHandler{mint: mint}
}

// GetProofs handles GET /api/users/:userId/proofs, newest first.
func (h *UserHandler) GetProofs(c fiber.Ctx) error {
	userID, err := middleware.ValidateUserID(c)
	if err != nil {
		return err
	}
	limit := middleware.ParseLimit(c)

	proofs := h.mint.GetUserProofs(userID, limit)
	return c.JSON(fiber.Map{
		"userId": userID,
		"proofs": proofs,
		"count":  len(proofs),
	})
}

// GetStats handles GET /api/users/:userId/stats.
func (h *UserHandler) GetStats(c fiber.Ctx) error {
	userID, err := middleware.ValidateUserID(c)
	if err != nil {
		return err
	}

	stats := h.mint.GetUserStats(c.RequestCtx(), userID)
	return c.JSON(stats)
}
