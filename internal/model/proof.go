package model

import "time"

// GuardAction is the outcome of an anti-gaming evaluation.
type GuardAction string

const (
	GuardAllow     GuardAction = "allow"
	GuardFlag      GuardAction = "flag"
	GuardRateLimit GuardAction = "rate_limit"
	GuardReject    GuardAction = "reject"
)

// GamingCheck is the composite result of the four anti-gaming checks.
type GamingCheck struct {
	IsGaming   bool        `json:"isGaming"`
	Action     GuardAction `json:"action"`
	Reasons    []string    `json:"reasons"`
	Confidence float64     `json:"confidence"`
}

// Proof metadata keys.
const (
	MetaGuardAction     = "guardAction"
	MetaGuardReasons    = "guardReasons"
	MetaGuardConfidence = "guardConfidence"
	MetaContentHash     = "contentHash"
	MetaSourceProof     = "sourceProofId"
)

// ValueProof is the durable record that a contribution was scored and is
// pending or has completed settlement. Verified transitions false→true
// exactly once; a verified proof always carries a settlement reference.
type ValueProof struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	Kind          ContributionKind `json:"kind"`
	Score         float64          `json:"score"`
	Reward        int64            `json:"reward"`
	CreatedAt     time.Time        `json:"createdAt"`
	Verified      bool             `json:"verified"`
	SettlementRef string           `json:"settlementReference,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
}

// UserAggregate accumulates per-user totals. Settled totals grow additively
// on every successful settlement and never decrease.
type UserAggregate struct {
	UserID        string  `json:"userId"`
	TotalScore    float64 `json:"totalScore"`
	TotalRewards  int64   `json:"totalRewards"`
	ProofCount    int     `json:"proofCount"`
	VerifiedCount int     `json:"verifiedCount"`
}
