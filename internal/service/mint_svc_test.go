package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Azora-OS/azora-sub011/internal/config"
	"github.com/Azora-OS/azora-sub011/internal/model"
	"github.com/Azora-OS/azora-sub011/internal/settlement"
)

// fakeSettler records requests and can fail on demand, either for every call
// or only from a given call number onward.
type fakeSettler struct {
	mu        sync.Mutex
	requests  []settlement.Request
	err       error
	errAfter  int // fail calls numbered > errAfter (0 disables)
	emptyRefs bool
	seen      int
	refSeq    int
}

func (f *fakeSettler) Name() string { return "fake" }

func (f *fakeSettler) Settle(_ context.Context, req settlement.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen++
	if f.err != nil && (f.errAfter == 0 || f.seen > f.errAfter) {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	if f.emptyRefs {
		return "", nil
	}
	f.refSeq++
	return fmt.Sprintf("ref-%d", f.refSeq), nil
}

func (f *fakeSettler) calls() []settlement.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]settlement.Request(nil), f.requests...)
}

type mintFixture struct {
	mint    *MintService
	settler *fakeSettler
	ledger  *ProofLedger
}

func newMintFixture(t *testing.T, cfg config.GuardConfig, liquidityShare int64, liquidityAccount string) *mintFixture {
	t.Helper()

	ledger := NewProofLedger(nil)
	rates := NewRateTracker(cfg.UserHourlyLimit, cfg.OriginHourlyLimit, cfg.GlobalHourlyLimit)
	guard := NewGuardService(cfg, rates, NewSubmissionLog(), ledger)
	settler := &fakeSettler{}

	mint := NewMintService(
		NewScoreService(),
		NewRewardCalculator(10),
		guard,
		ledger,
		settler,
		nil,
		liquidityShare,
		liquidityAccount,
	)
	return &mintFixture{mint: mint, settler: settler, ledger: ledger}
}

func submitKnowledge(t *testing.T, f *mintFixture, userID string, quality, impact float64) *model.SubmitResult {
	t.Helper()
	result, err := f.mint.Submit(context.Background(), userID, "web", &model.Contribution{
		Kind: model.KindKnowledge,
		Knowledge: &model.KnowledgeContribution{
			Quality:     quality,
			Impact:      impact,
			ContentKind: model.ContentArticle,
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return result
}

func TestSubmitSettlesImmediately(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")

	result := submitKnowledge(t, f, "alice", 80, 70)

	if !result.Settled {
		t.Fatalf("not settled: %s", result.SettlementError)
	}
	if !result.Proof.Verified || result.Proof.SettlementRef == "" {
		t.Errorf("proof = %+v, want verified with a reference", result.Proof)
	}
	// score 65 at base rate 10 rounds to 7
	if result.Proof.Reward != 7 {
		t.Errorf("reward = %d, want 7", result.Proof.Reward)
	}

	calls := f.settler.calls()
	if len(calls) != 1 {
		t.Fatalf("settler calls = %d, want 1", len(calls))
	}
	if calls[0].UserID != "alice" || calls[0].Amount != 7 {
		t.Errorf("settle request = %+v", calls[0])
	}
}

func TestSubmitRequiresUserID(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")

	_, err := f.mint.Submit(context.Background(), "  ", "web", &model.Contribution{
		Kind:      model.KindKnowledge,
		Knowledge: &model.KnowledgeContribution{Quality: 50, Impact: 50, ContentKind: model.ContentArticle},
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestSubmitSettlementFailureKeepsProof(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")
	f.settler.err = model.ErrSettlementUnavailable

	result := submitKnowledge(t, f, "alice", 80, 70)

	if result.Settled {
		t.Fatal("settlement should have failed")
	}
	if result.SettlementError == "" {
		t.Error("settlement error should be reported")
	}
	if result.Proof.Verified {
		t.Error("proof must stay unverified after a failed settlement")
	}

	// The proof can be settled later by id.
	f.settler.err = nil
	ref, err := f.mint.Settle(context.Background(), result.Proof.ID)
	if err != nil {
		t.Fatalf("retry settle: %v", err)
	}
	if ref == "" {
		t.Error("expected a settlement reference")
	}
}

func TestSettleIsIdempotentPerProof(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")

	result := submitKnowledge(t, f, "alice", 80, 70)

	if _, err := f.mint.Settle(context.Background(), result.Proof.ID); !errors.Is(err, model.ErrAlreadySettled) {
		t.Errorf("err = %v, want ErrAlreadySettled", err)
	}
	if calls := f.settler.calls(); len(calls) != 1 {
		t.Errorf("settler calls = %d, want exactly one mint", len(calls))
	}
}

func TestSettleUnknownProof(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")

	if _, err := f.mint.Settle(context.Background(), "nope"); !errors.Is(err, model.ErrProofNotFound) {
		t.Errorf("err = %v, want ErrProofNotFound", err)
	}
}

func TestSettleWithoutBackend(t *testing.T) {
	cfg := config.DefaultGuardConfig()
	ledger := NewProofLedger(nil)
	rates := NewRateTracker(cfg.UserHourlyLimit, cfg.OriginHourlyLimit, cfg.GlobalHourlyLimit)
	guard := NewGuardService(cfg, rates, NewSubmissionLog(), ledger)

	mint := NewMintService(NewScoreService(), NewRewardCalculator(10), guard, ledger, nil, nil, 0, "")

	result, err := mint.Submit(context.Background(), "alice", "web", &model.Contribution{
		Kind:      model.KindKnowledge,
		Knowledge: &model.KnowledgeContribution{Quality: 80, Impact: 70, ContentKind: model.ContentArticle},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Settled {
		t.Error("no backend: must not report settled")
	}
	if !strings.Contains(result.SettlementError, model.ErrSettlementUnavailable.Error()) {
		t.Errorf("settlement error = %q", result.SettlementError)
	}

	// The claim must be released so a retry can succeed once a backend exists.
	if _, err := mint.Settle(context.Background(), result.Proof.ID); !errors.Is(err, model.ErrSettlementUnavailable) {
		t.Errorf("err = %v, want ErrSettlementUnavailable", err)
	}
}

func TestSubmitRejectedCreatesNoProof(t *testing.T) {
	cfg := config.DefaultGuardConfig()
	cfg.UserHourlyLimit = 1
	f := newMintFixture(t, cfg, 0, "")

	submitKnowledge(t, f, "alice", 80, 70)

	// Second identical submission: rate-limited AND a duplicate -> reject.
	_, err := f.mint.Submit(context.Background(), "alice", "web", &model.Contribution{
		Kind:      model.KindKnowledge,
		Knowledge: &model.KnowledgeContribution{Quality: 80, Impact: 70, ContentKind: model.ContentArticle},
	})
	var gerr *model.GamingRejectedError
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want GamingRejectedError", err)
	}
	if len(gerr.Reasons) == 0 || gerr.Confidence == 0 {
		t.Errorf("rejection = %+v, want reasons and confidence", gerr)
	}

	if got := f.ledger.ListByUser("alice", 10); len(got) != 1 {
		t.Errorf("proofs = %d, want 1 (rejection creates none)", len(got))
	}
	if calls := f.settler.calls(); len(calls) != 1 {
		t.Errorf("settler calls = %d, want 1", len(calls))
	}
}

func TestSubmitFlaggedStillMints(t *testing.T) {
	cfg := config.DefaultGuardConfig()
	cfg.SuspiciousPatterns = []string{"quality"}
	f := newMintFixture(t, cfg, 0, "")

	result := submitKnowledge(t, f, "alice", 80, 70)

	if !result.Settled {
		t.Fatalf("flagged submission should still settle: %s", result.SettlementError)
	}
	if action := result.Proof.Metadata[model.MetaGuardAction]; action != string(model.GuardFlag) {
		t.Errorf("guard action = %v, want flag", action)
	}
}

func TestLiquidityShareSideMint(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 20, "liquidity-pool")

	result := submitKnowledge(t, f, "alice", 100, 100)

	calls := f.settler.calls()
	if len(calls) != 2 {
		t.Fatalf("settler calls = %d, want primary + liquidity", len(calls))
	}

	primary, side := calls[0], calls[1]
	if side.UserID != "liquidity-pool" {
		t.Errorf("side mint target = %s", side.UserID)
	}
	// floor(reward * share / 100)
	want := primary.Amount * 20 / 100
	if side.Amount != want {
		t.Errorf("side amount = %d, want %d", side.Amount, want)
	}
	if side.Metadata[model.MetaSourceProof] != result.Proof.ID {
		t.Errorf("side metadata = %v, want source proof id", side.Metadata)
	}
}

func TestLiquidityShareFailureKeepsPrimarySettled(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 20, "liquidity-pool")
	// Primary settlement succeeds, the liquidity side-mint fails.
	f.settler.err = errors.New("liquidity account frozen")
	f.settler.errAfter = 1

	result := submitKnowledge(t, f, "alice", 100, 100)

	if !result.Settled {
		t.Fatalf("primary settlement should succeed: %s", result.SettlementError)
	}
	if !result.Proof.Verified || result.Proof.SettlementRef == "" {
		t.Errorf("proof = %+v, want verified with its reference despite the side-mint failure", result.Proof)
	}
	if result.SettlementError != "" {
		t.Errorf("settlement error = %q, side-mint failure must not surface", result.SettlementError)
	}

	got, err := f.ledger.Get(result.Proof.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Verified {
		t.Error("side-mint failure must not revert the ledger's verified state")
	}
}

func TestSettleEmptyReferenceReleasesClaim(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")
	f.settler.emptyRefs = true

	result := submitKnowledge(t, f, "alice", 80, 70)
	if result.Settled {
		t.Fatal("an empty settlement reference must not settle the proof")
	}

	// The claim must be released: a retry should reach the settler again
	// rather than fail with ErrSettlementInFlight.
	f.settler.emptyRefs = false
	ref, err := f.mint.Settle(context.Background(), result.Proof.ID)
	if err != nil {
		t.Fatalf("retry after empty-reference failure: %v", err)
	}
	if ref == "" {
		t.Error("expected a settlement reference on retry")
	}
}

func TestLiquidityShareSkippedWhenTiny(t *testing.T) {
	// score 65 -> reward 7; 7*10/100 = 0, so no side mint.
	f := newMintFixture(t, config.DefaultGuardConfig(), 10, "liquidity-pool")

	submitKnowledge(t, f, "alice", 80, 70)

	if calls := f.settler.calls(); len(calls) != 1 {
		t.Errorf("settler calls = %d, want 1 (zero side mint skipped)", len(calls))
	}
}

func TestGetUserStats(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")

	submitKnowledge(t, f, "alice", 80, 70)
	submitKnowledge(t, f, "alice", 90, 90)

	stats := f.mint.GetUserStats(context.Background(), "alice")
	if stats.ProofCount != 2 || stats.VerifiedCount != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AverageScore <= 0 {
		t.Errorf("average score = %v", stats.AverageScore)
	}
}

func TestGetStatsLeaderboard(t *testing.T) {
	f := newMintFixture(t, config.DefaultGuardConfig(), 0, "")

	submitKnowledge(t, f, "alice", 80, 70)
	submitKnowledge(t, f, "bob", 90, 90)

	stats := f.mint.GetStats(context.Background(), 10)
	if stats.TotalProofs != 2 || stats.VerifiedProofs != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.TopContributors) != 2 || stats.TopContributors[0].UserID != "bob" {
		t.Errorf("leaderboard = %+v, want bob first", stats.TopContributors)
	}
}
