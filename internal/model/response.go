package model

// SubmitRequest is the API request body for POST /api/contributions.
type SubmitRequest struct {
	UserID       string       `json:"userId"`
	Contribution Contribution `json:"contribution"`
}

// SubmitResult is returned by a submission. Settlement is attempted
// synchronously; when it fails the proof remains unverified and the error is
// reported alongside it so the caller can retry via the settle endpoint.
type SubmitResult struct {
	Proof           *ValueProof `json:"proof"`
	Settled         bool        `json:"settled"`
	SettlementError string      `json:"settlementError,omitempty"`
}

// SettleResponse is the API response for a successful settlement.
type SettleResponse struct {
	ProofID       string `json:"proofId"`
	SettlementRef string `json:"settlementReference"`
}

// ContributorRank is one leaderboard entry, ranked by settled total score.
type ContributorRank struct {
	UserID       string  `json:"userId"`
	TotalScore   float64 `json:"totalScore"`
	TotalRewards int64   `json:"totalRewards"`
}

// StatsResponse is the API response for global pipeline statistics.
type StatsResponse struct {
	TotalProofs         int               `json:"totalProofs"`
	VerifiedProofs      int               `json:"verifiedProofs"`
	TotalRewardsSettled int64             `json:"totalRewardsSettled"`
	MeanScore           float64           `json:"meanScore"`
	TopContributors     []ContributorRank `json:"topContributors"`
	TokenSupply         string            `json:"tokenSupply,omitempty"`
}

// UserStatsResponse is the API response for per-user statistics.
type UserStatsResponse struct {
	UserID        string  `json:"userId"`
	TotalScore    float64 `json:"totalScore"`
	TotalRewards  int64   `json:"totalRewards"`
	ProofCount    int     `json:"proofCount"`
	VerifiedCount int     `json:"verifiedCount"`
	AverageScore  float64 `json:"averageScore"`
	TokenBalance  string  `json:"tokenBalance,omitempty"`
}
