package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Azora-OS/azora-sub011/internal/middleware"
	"github.com/Azora-OS/azora-sub011/internal/model"
	"github.com/Azora-OS/azora-sub011/internal/service"
	"github.com/Azora-OS/azora-sub011/pkg/hash"
)

// ContributionHandler serves the contribution submission endpoint.
type ContributionHandler struct {
	mint *service.MintService
}

func NewContributionHandler(mint *service.MintService) *ContributionHandler {
	return &ContributionHandler{mint: mint}
}

// originFrom resolves the origin identifier for rate limiting: the
// X-Origin-ID header when present, otherwise a short hash of the client IP.
func originFrom(c fiber.Ctx) string {
	if origin := c.Get("X-Origin-ID"); origin != "" {
		return origin
	}
	return "ip-" + hash.ShortHash(c.IP(), 12)
}

// Submit handles POST /api/contributions: scores the contribution, runs
// anti-gaming checks, records a value proof and attempts settlement.
func (h *ContributionHandler) Submit(c fiber.Ctx) error {
	var req model.SubmitRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.mint.Submit(c.RequestCtx(), req.UserID, originFrom(c), &req.Contribution)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, verr.Error())
		}

		var gerr *model.GamingRejectedError
		if errors.As(err, &gerr) {
			GuardActionsTotal.WithLabelValues(string(model.GuardReject)).Inc()
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":      "contribution rejected",
				"reasons":    gerr.Reasons,
				"confidence": gerr.Confidence,
			})
		}

		middleware.Logger.Error().Err(err).Msg("submit contribution")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "internal error")
	}

	ProofsTotal.WithLabelValues(string(req.Contribution.Kind)).Inc()
	if action, ok := result.Proof.Metadata[model.MetaGuardAction].(string); ok {
		GuardActionsTotal.WithLabelValues(action).Inc()
	}
	if result.Settled {
		SettlementsTotal.WithLabelValues(h.mint.SettlerName(), "ok").Inc()
		RewardsSettledTotal.Add(float64(result.Proof.Reward))
	} else if result.SettlementError != "" {
		SettlementsTotal.WithLabelValues(h.mint.SettlerName(), "failed").Inc()
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
