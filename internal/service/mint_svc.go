package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Azora-OS/azora-sub011/internal/model"
	"github.com/Azora-OS/azora-sub011/internal/settlement"
	"github.com/Azora-OS/azora-sub011/pkg/hash"
)

const settleTimeout = 60 * time.Second

// MintService drives the full pipeline: scoring, anti-gaming evaluation,
// reward computation, proof creation, and settlement with its liquidity
// side-mint. The settlement path is fixed at construction.
type MintService struct {
	scores  *ScoreService
	rewards *RewardCalculator
	guard   *GuardService
	ledger  *ProofLedger
	settler settlement.Settler
	views   settlement.LedgerViews // nil unless the direct-contract path is active
	cache   *CacheService

	liquidityShare   int64
	liquidityAccount string
}

// NewMintService wires the pipeline. settler may be nil, in which case every
// settlement attempt fails with ErrSettlementUnavailable but submissions
// still create unverified proofs.
func NewMintService(
	scores *ScoreService,
	rewards *RewardCalculator,
	guard *GuardService,
	ledger *ProofLedger,
	settler settlement.Settler,
	cache *CacheService,
	liquidityShare int64,
	liquidityAccount string,
) *MintService {
	svc := &MintService{
		scores:           scores,
		rewards:          rewards,
		guard:            guard,
		ledger:           ledger,
		settler:          settler,
		cache:            cache,
		liquidityShare:   liquidityShare,
		liquidityAccount: liquidityAccount,
	}
	if views, ok := settler.(settlement.LedgerViews); ok {
		svc.views = views
	}
	return svc
}

// Submit evaluates and settles one contribution. On a gaming rejection no
// proof is created and the rate/duplicate bookkeeping is the only trace. On
// settlement failure the proof stays unverified and the failure is reported
// in the result so the caller can retry settlement by proof id.
func (s *MintService) Submit(ctx context.Context, userID, origin string, contrib *model.Contribution) (*model.SubmitResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &model.ValidationError{Field: "userId", Reason: "userId is required"}
	}

	vs, err := s.scores.Score(contrib)
	if err != nil {
		return nil, err
	}

	content := contrib.ContentSource()
	check := s.guard.CheckProof(userID, origin, content, vs.Score)

	// Bookkeeping happens for every evaluated submission, including rejects:
	// spam still consumes quota.
	s.guard.RecordSubmission(userID, origin, content)

	if check.Action == model.GuardReject {
		return nil, &model.GamingRejectedError{Reasons: check.Reasons, Confidence: check.Confidence}
	}

	reward := s.rewards.Reward(vs.Score, vs.Multiplier)

	proof := &model.ValueProof{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      contrib.Kind,
		Score:     vs.Score,
		Reward:    reward,
		CreatedAt: time.Now().UTC(),
		Metadata: map[string]any{
			model.MetaGuardAction:     string(check.Action),
			model.MetaGuardReasons:    check.Reasons,
			model.MetaGuardConfidence: check.Confidence,
			model.MetaContentHash:     hash.ContentHash(NormalizeContent(content)),
		},
	}
	if err := s.ledger.Append(ctx, proof); err != nil {
		return nil, err
	}

	result := &model.SubmitResult{}
	if _, err := s.Settle(ctx, proof.ID); err != nil {
		result.SettlementError = err.Error()
	} else {
		result.Settled = true
	}

	// Re-read so the response reflects the settled state.
	final, err := s.ledger.Get(proof.ID)
	if err != nil {
		return nil, err
	}
	result.Proof = final
	return result, nil
}

// Settle executes the settlement for one proof. Idempotent per proof id:
// the second call returns ErrAlreadySettled. On failure the proof remains
// unverified and the claim is released for a later retry.
func (s *MintService) Settle(ctx context.Context, proofID string) (string, error) {
	proof, err := s.ledger.BeginSettlement(proofID)
	if err != nil {
		return "", err
	}

	if s.settler == nil {
		s.ledger.AbortSettlement(proofID)
		return "", model.ErrSettlementUnavailable
	}

	settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	ref, err := s.settler.Settle(settleCtx, settlement.Request{
		UserID:  proof.UserID,
		Amount:  proof.Reward,
		Reason:  "contribution reward",
		ProofID: proof.ID,
		Metadata: map[string]string{
			"kind": string(proof.Kind),
		},
	})
	if err != nil {
		s.ledger.AbortSettlement(proofID)
		return "", fmt.Errorf("settle proof %s: %w", proofID, err)
	}

	if err := s.ledger.CompleteSettlement(ctx, proofID, ref); err != nil {
		// A settler returning an empty reference lands here; release the
		// claim so the proof does not wedge behind ErrSettlementInFlight.
		s.ledger.AbortSettlement(proofID)
		return "", err
	}
	log.Printf("mint: proof %s settled via %s (ref=%s reward=%d)", proofID, s.settler.Name(), ref, proof.Reward)

	if s.cache != nil {
		s.cache.InvalidateStats(ctx)
	}

	s.settleLiquidityShare(ctx, proof)
	return ref, nil
}

// settleLiquidityShare issues the secondary liquidity-pool settlement after a
// successful primary settlement. Its failure is logged and swallowed: it
// never affects the primary proof.
func (s *MintService) settleLiquidityShare(ctx context.Context, proof *model.ValueProof) {
	if s.liquidityShare <= 0 || s.liquidityAccount == "" {
		return
	}
	amount := proof.Reward * s.liquidityShare / 100
	if amount <= 0 {
		return
	}

	settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	ref, err := s.settler.Settle(settleCtx, settlement.Request{
		UserID:  s.liquidityAccount,
		Amount:  amount,
		Reason:  "liquidity pool share",
		ProofID: proof.ID,
		Metadata: map[string]string{
			model.MetaSourceProof: proof.ID,
		},
	})
	if err != nil {
		log.Printf("mint: liquidity side-mint for proof %s failed (non-fatal): %v", proof.ID, err)
		return
	}
	log.Printf("mint: liquidity side-mint %d tokens for proof %s (ref=%s)", amount, proof.ID, ref)
}

// GetProof returns one proof by id.
func (s *MintService) GetProof(proofID string) (*model.ValueProof, error) {
	return s.ledger.Get(proofID)
}

// GetUserProofs returns the user's proofs, most recent first.
func (s *MintService) GetUserProofs(userID string, limit int) []*model.ValueProof {
	return s.ledger.ListByUser(userID, limit)
}

// GetUserStats returns the user's settled totals and running average score.
// When the direct-contract path is active the on-chain balance is included.
func (s *MintService) GetUserStats(ctx context.Context, userID string) *model.UserStatsResponse {
	agg := s.ledger.UserAggregate(userID)
	avg, _ := s.ledger.AverageScore(userID)

	resp := &model.UserStatsResponse{
		UserID:        userID,
		TotalScore:    agg.TotalScore,
		TotalRewards:  agg.TotalRewards,
		ProofCount:    agg.ProofCount,
		VerifiedCount: agg.VerifiedCount,
		AverageScore:  avg,
	}
	if s.views != nil {
		if bal, err := s.views.BalanceOf(ctx, userID); err == nil {
			resp.TokenBalance = bal.String()
		}
	}
	return resp
}

// GetStats returns global pipeline statistics with the leaderboard, served
// from cache when possible.
func (s *MintService) GetStats(ctx context.Context, topN int) *model.StatsResponse {
	if s.cache != nil {
		if cached := s.cache.GetStats(ctx); cached != nil {
			return cached
		}
	}

	stats := s.ledger.Stats()
	stats.TopContributors = s.ledger.TopContributors(topN)
	if s.views != nil {
		if supply, err := s.views.TotalSupply(ctx); err == nil {
			stats.TokenSupply = supply.String()
		}
	}

	if s.cache != nil {
		s.cache.SetStats(ctx, &stats)
	}
	return &stats
}

// SettlerName reports the active settlement path for health checks.
func (s *MintService) SettlerName() string {
	if s.settler == nil {
		return "none"
	}
	return s.settler.Name()
}
