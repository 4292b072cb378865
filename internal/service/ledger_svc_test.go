package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Azora-OS/azora-sub011/internal/model"
)

func unverifiedProof(id, userID string, score float64, reward int64) *model.ValueProof {
	return &model.ValueProof{
		ID:     id,
		UserID: userID,
		Kind:   model.KindKnowledge,
		Score:  score,
		Reward: reward,
	}
}

func TestLedgerAppendAndGet(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	p := unverifiedProof("p1", "alice", 65, 7)
	if err := ledger.Append(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := ledger.Get("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "alice" || got.Score != 65 {
		t.Errorf("got = %+v", got)
	}
	if got.Verified {
		t.Error("appended proof must start unverified")
	}

	// Returned copies must not alias ledger state.
	got.Verified = true
	again, _ := ledger.Get("p1")
	if again.Verified {
		t.Error("mutating a returned proof leaked into the ledger")
	}

	if _, err := ledger.Get("missing"); !errors.Is(err, model.ErrProofNotFound) {
		t.Errorf("err = %v, want ErrProofNotFound", err)
	}
}

func TestLedgerAppendRejectsDuplicatesAndVerified(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	if err := ledger.Append(ctx, unverifiedProof("p1", "alice", 50, 5)); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Append(ctx, unverifiedProof("p1", "alice", 50, 5)); err == nil {
		t.Error("duplicate id should be rejected")
	}

	verified := unverifiedProof("p2", "alice", 50, 5)
	verified.Verified = true
	if err := ledger.Append(ctx, verified); err == nil {
		t.Error("pre-verified proof should be rejected")
	}
}

func TestLedgerSettlementLifecycle(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	if err := ledger.Append(ctx, unverifiedProof("p1", "alice", 65, 7)); err != nil {
		t.Fatal(err)
	}

	claimed, err := ledger.BeginSettlement("p1")
	if err != nil {
		t.Fatal(err)
	}
	if claimed.Verified {
		t.Error("claimed proof should be unverified")
	}

	// A concurrent settlement of the same proof must be refused.
	if _, err := ledger.BeginSettlement("p1"); !errors.Is(err, model.ErrSettlementInFlight) {
		t.Errorf("err = %v, want ErrSettlementInFlight", err)
	}

	if err := ledger.CompleteSettlement(ctx, "p1", "0xabc"); err != nil {
		t.Fatal(err)
	}

	got, _ := ledger.Get("p1")
	if !got.Verified || got.SettlementRef != "0xabc" {
		t.Errorf("got = %+v, want verified with ref 0xabc", got)
	}

	// Settlement is once-only.
	if _, err := ledger.BeginSettlement("p1"); !errors.Is(err, model.ErrAlreadySettled) {
		t.Errorf("err = %v, want ErrAlreadySettled", err)
	}

	agg := ledger.UserAggregate("alice")
	if agg.TotalScore != 65 || agg.TotalRewards != 7 || agg.VerifiedCount != 1 {
		t.Errorf("aggregate = %+v", agg)
	}
}

func TestLedgerAbortReleasesClaim(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	if err := ledger.Append(ctx, unverifiedProof("p1", "alice", 50, 5)); err != nil {
		t.Fatal(err)
	}

	if _, err := ledger.BeginSettlement("p1"); err != nil {
		t.Fatal(err)
	}
	ledger.AbortSettlement("p1")

	if _, err := ledger.BeginSettlement("p1"); err != nil {
		t.Errorf("retry after abort failed: %v", err)
	}

	got, _ := ledger.Get("p1")
	if got.Verified {
		t.Error("aborted settlement must leave the proof unverified")
	}
}

func TestLedgerCompleteRequiresReference(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	if err := ledger.Append(ctx, unverifiedProof("p1", "alice", 50, 5)); err != nil {
		t.Fatal(err)
	}
	if err := ledger.CompleteSettlement(ctx, "p1", ""); err == nil {
		t.Error("empty settlement reference should be rejected")
	}
}

func TestLedgerListByUserNewestFirst(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		p := unverifiedProof(fmt.Sprintf("p%d", i), "alice", 50, 5)
		if err := ledger.Append(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	got := ledger.ListByUser("alice", 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "p4" || got[2].ID != "p2" {
		t.Errorf("order = %s..%s, want p4..p2", got[0].ID, got[2].ID)
	}
}

func TestLedgerStatsAndLeaderboard(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	for i, tc := range []struct {
		user   string
		score  float64
		reward int64
		settle bool
	}{
		{"alice", 80, 8, true},
		{"alice", 60, 6, true},
		{"bob", 90, 9, true},
		{"carol", 99, 10, false},
	} {
		id := fmt.Sprintf("p%d", i)
		if err := ledger.Append(ctx, unverifiedProof(id, tc.user, tc.score, tc.reward)); err != nil {
			t.Fatal(err)
		}
		if tc.settle {
			if _, err := ledger.BeginSettlement(id); err != nil {
				t.Fatal(err)
			}
			if err := ledger.CompleteSettlement(ctx, id, "ref-"+id); err != nil {
				t.Fatal(err)
			}
		}
	}

	stats := ledger.Stats()
	if stats.TotalProofs != 4 || stats.VerifiedProofs != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalRewardsSettled != 23 {
		t.Errorf("TotalRewardsSettled = %d, want 23", stats.TotalRewardsSettled)
	}

	top := ledger.TopContributors(10)
	if len(top) != 2 {
		t.Fatalf("leaderboard size = %d, want 2 (unsettled users excluded)", len(top))
	}
	if top[0].UserID != "alice" || top[0].TotalScore != 140 {
		t.Errorf("top[0] = %+v, want alice with 140", top[0])
	}
	if top[1].UserID != "bob" {
		t.Errorf("top[1] = %+v, want bob", top[1])
	}
}

func TestLedgerAverageScoreCoversUnsettledProofs(t *testing.T) {
	ledger := NewProofLedger(nil)
	ctx := context.Background()

	ledger.Append(ctx, unverifiedProof("p1", "alice", 40, 4))
	ledger.Append(ctx, unverifiedProof("p2", "alice", 60, 6))

	avg, n := ledger.AverageScore("alice")
	if n != 2 || avg != 50 {
		t.Errorf("avg = %v over %d, want 50 over 2", avg, n)
	}

	if _, n := ledger.AverageScore("nobody"); n != 0 {
		t.Errorf("n = %d, want 0 for unknown user", n)
	}
}

// fakeStore records calls and can fail on demand.
type fakeStore struct {
	saved    []*model.ValueProof
	settled  map[string]string
	loadWith []*model.ValueProof
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{settled: make(map[string]string)}
}

func (f *fakeStore) SaveProof(_ context.Context, p *model.ValueProof) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakeStore) MarkSettled(_ context.Context, proofID, ref string) error {
	f.settled[proofID] = ref
	return nil
}

func (f *fakeStore) LoadProofs(_ context.Context) ([]*model.ValueProof, error) {
	return f.loadWith, nil
}

func TestLedgerWriteThroughStore(t *testing.T) {
	store := newFakeStore()
	ledger := NewProofLedger(store)
	ctx := context.Background()

	if err := ledger.Append(ctx, unverifiedProof("p1", "alice", 65, 7)); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(store.saved))
	}

	ledger.BeginSettlement("p1")
	ledger.CompleteSettlement(ctx, "p1", "0xabc")
	if store.settled["p1"] != "0xabc" {
		t.Errorf("settled = %v", store.settled)
	}
}

func TestLedgerPersistFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	ledger := NewProofLedger(store)

	if err := ledger.Append(context.Background(), unverifiedProof("p1", "alice", 65, 7)); err != nil {
		t.Errorf("store failure must not fail the append: %v", err)
	}
	if _, err := ledger.Get("p1"); err != nil {
		t.Errorf("proof should still be in memory: %v", err)
	}
}

func TestLedgerHydrate(t *testing.T) {
	store := newFakeStore()
	settled := unverifiedProof("p1", "alice", 65, 7)
	settled.Verified = true
	settled.SettlementRef = "0xabc"
	store.loadWith = []*model.ValueProof{
		settled,
		unverifiedProof("p2", "bob", 50, 5),
	}

	ledger := NewProofLedger(store)
	if err := ledger.Hydrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	stats := ledger.Stats()
	if stats.TotalProofs != 2 || stats.VerifiedProofs != 1 || stats.TotalRewardsSettled != 7 {
		t.Errorf("stats = %+v", stats)
	}
	agg := ledger.UserAggregate("alice")
	if agg.VerifiedCount != 1 || agg.TotalRewards != 7 {
		t.Errorf("aggregate = %+v", agg)
	}
}
