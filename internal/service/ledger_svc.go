package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Azora-OS/azora-sub011/internal/model"
)

// ProofStore is the optional durable backing for the in-memory ledger.
// Implemented by repository.ProofRepo; nil disables persistence.
type ProofStore interface {
	SaveProof(ctx context.Context, p *model.ValueProof) error
	MarkSettled(ctx context.Context, proofID, settlementRef string) error
	LoadProofs(ctx context.Context) ([]*model.ValueProof, error)
}

// userSubmitted accumulates created-proof stats per user, independent of
// settlement. The anti-gaming value-anomaly check reads the running average
// from here.
type userSubmitted struct {
	count    int
	scoreSum float64
}

// ProofLedger owns all value proofs for the process lifetime. Append-only:
// proofs are never removed, and Verified flips false→true exactly once via
// the Begin/Complete settlement pair. All access is mutex-guarded so two
// concurrent settlements of one proof cannot both mint.
type ProofLedger struct {
	mu         sync.RWMutex
	proofs     map[string]*model.ValueProof
	byUser     map[string][]string // proof ids per user, append order
	aggregates map[string]*model.UserAggregate
	submitted  map[string]*userSubmitted
	settling   map[string]bool // per-proof in-flight settlement marks

	totalRewardsSettled int64

	store ProofStore
}

// NewProofLedger creates an empty ledger. store may be nil for a purely
// in-memory ledger.
func NewProofLedger(store ProofStore) *ProofLedger {
	return &ProofLedger{
		proofs:     make(map[string]*model.ValueProof),
		byUser:     make(map[string][]string),
		aggregates: make(map[string]*model.UserAggregate),
		submitted:  make(map[string]*userSubmitted),
		settling:   make(map[string]bool),
		store:      store,
	}
}

// Hydrate loads previously persisted proofs into memory. Called once at
// startup before the ledger is shared.
func (l *ProofLedger) Hydrate(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	proofs, err := l.store.LoadProofs(ctx)
	if err != nil {
		return fmt.Errorf("hydrate proof ledger: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range proofs {
		l.insertLocked(p)
	}
	log.Printf("proof-ledger: hydrated %d proofs from store", len(proofs))
	return nil
}

// Append records a newly created, unverified proof.
func (l *ProofLedger) Append(ctx context.Context, p *model.ValueProof) error {
	if p.Verified {
		return fmt.Errorf("proof %s: cannot append an already-verified proof", p.ID)
	}

	l.mu.Lock()
	if _, exists := l.proofs[p.ID]; exists {
		l.mu.Unlock()
		return fmt.Errorf("proof %s: duplicate id", p.ID)
	}
	l.insertLocked(p)
	l.mu.Unlock()

	if l.store != nil {
		// Persistence is write-through but non-fatal: the in-memory ledger
		// stays authoritative for this process.
		if err := l.store.SaveProof(ctx, p); err != nil {
			log.Printf("proof-ledger: persist %s failed: %v", p.ID, err)
		}
	}
	return nil
}

// insertLocked adds a proof to all indexes. Caller holds l.mu.
func (l *ProofLedger) insertLocked(p *model.ValueProof) {
	cp := *p
	l.proofs[p.ID] = &cp
	l.byUser[p.UserID] = append(l.byUser[p.UserID], p.ID)

	sub := l.submitted[p.UserID]
	if sub == nil {
		sub = &userSubmitted{}
		l.submitted[p.UserID] = sub
	}
	sub.count++
	sub.scoreSum += p.Score

	agg := l.aggregateLocked(p.UserID)
	agg.ProofCount++
	if p.Verified {
		agg.TotalScore += p.Score
		agg.TotalRewards += p.Reward
		agg.VerifiedCount++
		l.totalRewardsSettled += p.Reward
	}
}

func (l *ProofLedger) aggregateLocked(userID string) *model.UserAggregate {
	agg := l.aggregates[userID]
	if agg == nil {
		agg = &model.UserAggregate{UserID: userID}
		l.aggregates[userID] = agg
	}
	return agg
}

// Get returns a copy of the proof.
func (l *ProofLedger) Get(proofID string) (*model.ValueProof, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.proofs[proofID]
	if !ok {
		return nil, model.ErrProofNotFound
	}
	cp := *p
	return &cp, nil
}

// ListByUser returns up to limit proofs for a user, most recent first.
func (l *ProofLedger) ListByUser(userID string, limit int) []*model.ValueProof {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byUser[userID]
	out := make([]*model.ValueProof, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *l.proofs[ids[i]]
		out = append(out, &cp)
	}
	return out
}

// BeginSettlement atomically claims the proof for settlement. It fails with
// ErrAlreadySettled for verified proofs and ErrSettlementInFlight when
// another settlement of the same proof is in progress. The returned copy is
// what the orchestrator settles against.
func (l *ProofLedger) BeginSettlement(proofID string) (*model.ValueProof, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.proofs[proofID]
	if !ok {
		return nil, model.ErrProofNotFound
	}
	if p.Verified {
		return nil, model.ErrAlreadySettled
	}
	if l.settling[proofID] {
		return nil, model.ErrSettlementInFlight
	}
	l.settling[proofID] = true
	cp := *p
	return &cp, nil
}

// CompleteSettlement marks the proof verified, stores the settlement
// reference, and additively updates the user aggregate.
func (l *ProofLedger) CompleteSettlement(ctx context.Context, proofID, settlementRef string) error {
	if settlementRef == "" {
		return fmt.Errorf("proof %s: empty settlement reference", proofID)
	}

	l.mu.Lock()
	p, ok := l.proofs[proofID]
	if !ok {
		l.mu.Unlock()
		return model.ErrProofNotFound
	}
	delete(l.settling, proofID)
	if p.Verified {
		l.mu.Unlock()
		return model.ErrAlreadySettled
	}
	p.Verified = true
	p.SettlementRef = settlementRef

	agg := l.aggregateLocked(p.UserID)
	agg.TotalScore += p.Score
	agg.TotalRewards += p.Reward
	agg.VerifiedCount++
	l.totalRewardsSettled += p.Reward
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.MarkSettled(ctx, proofID, settlementRef); err != nil {
			log.Printf("proof-ledger: persist settlement of %s failed: %v", proofID, err)
		}
	}
	return nil
}

// AbortSettlement releases the in-flight claim after a failed settlement,
// leaving the proof unverified so it can be retried.
func (l *ProofLedger) AbortSettlement(proofID string) {
	l.mu.Lock()
	delete(l.settling, proofID)
	l.mu.Unlock()
}

// AverageScore returns the user's running average score over all created
// proofs and the number of proofs it covers.
func (l *ProofLedger) AverageScore(userID string) (float64, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sub := l.submitted[userID]
	if sub == nil || sub.count == 0 {
		return 0, 0
	}
	return sub.scoreSum / float64(sub.count), sub.count
}

// UserAggregate returns a copy of the user's settled totals.
func (l *ProofLedger) UserAggregate(userID string) model.UserAggregate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if agg := l.aggregates[userID]; agg != nil {
		return *agg
	}
	return model.UserAggregate{UserID: userID}
}

// Stats returns the global aggregate statistics.
func (l *ProofLedger) Stats() model.StatsResponse {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.proofs)
	verified := 0
	scoreSum := 0.0
	for _, p := range l.proofs {
		if p.Verified {
			verified++
		}
		scoreSum += p.Score
	}
	mean := 0.0
	if total > 0 {
		mean = scoreSum / float64(total)
	}

	return model.StatsResponse{
		TotalProofs:         total,
		VerifiedProofs:      verified,
		TotalRewardsSettled: l.totalRewardsSettled,
		MeanScore:           mean,
	}
}

// TopContributors returns up to n contributors ranked by settled total score.
func (l *ProofLedger) TopContributors(n int) []model.ContributorRank {
	l.mu.RLock()
	ranks := make([]model.ContributorRank, 0, len(l.aggregates))
	for _, agg := range l.aggregates {
		if agg.VerifiedCount == 0 {
			continue
		}
		ranks = append(ranks, model.ContributorRank{
			UserID:       agg.UserID,
			TotalScore:   agg.TotalScore,
			TotalRewards: agg.TotalRewards,
		})
	}
	l.mu.RUnlock()

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].TotalScore != ranks[j].TotalScore {
			return ranks[i].TotalScore > ranks[j].TotalScore
		}
		return ranks[i].UserID < ranks[j].UserID
	})
	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}
