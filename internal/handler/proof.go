package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Azora-OS/azora-sub011/internal/middleware"
	"github.com/Azora-OS/azora-sub011/internal/model"
	"github.com/Azora-OS/azora-sub011/internal/service"
)

// ProofHandler serves proof lookup and settlement retry endpoints.
type ProofHandler struct {
	mint *service.MintService
}

func NewProofHandler(mint *service.MintService) *ProofHandler {
	return &ProofHandler{mint: mint}
}

// Get handles GET /api/proofs/:proofId.
func (h *ProofHandler) Get(c fiber.Ctx) error {
	proofID, err := middleware.ValidateProofID(c)
	if err != nil {
		return err
	}

	proof, err := h.mint.GetProof(proofID)
	if err != nil {
		if errors.Is(err, model.ErrProofNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "proof not found")
		}
		middleware.Logger.Error().Err(err).Msg("get proof")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "internal error")
	}

	return c.JSON(proof)
}

// Settle handles POST /api/proofs/:proofId/settle, retrying settlement for a
// proof whose initial settlement failed.
func (h *ProofHandler) Settle(c fiber.Ctx) error {
	proofID, err := middleware.ValidateProofID(c)
	if err != nil {
		return err
	}

	ref, err := h.mint.Settle(c.RequestCtx(), proofID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrProofNotFound):
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "proof not found")
		case errors.Is(err, model.ErrAlreadySettled):
			return middleware.ErrorResponse(c, fiber.StatusConflict, "proof already settled")
		case errors.Is(err, model.ErrSettlementInFlight):
			return middleware.ErrorResponse(c, fiber.StatusConflict, "settlement already in progress")
		case errors.Is(err, model.ErrSettlementUnavailable):
			SettlementsTotal.WithLabelValues(h.mint.SettlerName(), "unavailable").Inc()
			return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "settlement backend unavailable")
		case errors.Is(err, model.ErrSettlementFailed):
			SettlementsTotal.WithLabelValues(h.mint.SettlerName(), "failed").Inc()
			return middleware.ErrorResponse(c, fiber.StatusBadGateway, "settlement failed")
		default:
			middleware.Logger.Error().Err(err).Str("proof_id", proofID).Msg("settle proof")
			return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "internal error")
		}
	}

	SettlementsTotal.WithLabelValues(h.mint.SettlerName(), "ok").Inc()
	if proof, perr := h.mint.GetProof(proofID); perr == nil {
		RewardsSettledTotal.Add(float64(proof.Reward))
	}

	return c.JSON(model.SettleResponse{
		ProofID:       proofID,
		SettlementRef: ref,
	})
}
