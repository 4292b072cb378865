package service

import (
	"fmt"
	"math"
	"time"

	"github.com/Azora-OS/azora-sub011/internal/config"
	"github.com/Azora-OS/azora-sub011/internal/model"
)

// Confidence levels for rate-limit violations by scope. The narrower the
// scope, the higher the confidence that the user is the problem.
const (
	rateConfidenceUser   = 0.8
	rateConfidenceOrigin = 0.7
	rateConfidenceGlobal = 0.6
)

// Pattern and anomaly confidence tuning.
const (
	patternConfidencePerMatch = 0.3
	patternConfidenceCap      = 0.9
	anomalyConfidenceRange    = 0.8
	anomalyConfidenceDrift    = 0.6

	// A value deviating from the user's running average by more than this
	// ratio is anomalous.
	anomalyDriftRatio = 2.0

	// Rapid-submission heuristic: more than this many submissions within
	// rapidWindow trips the pattern check.
	rapidSubmissionLimit  = 5
	rapidSubmissionWindow = time.Minute
)

// guardActionRank orders actions by severity for the escalation policy.
var guardActionRank = map[model.GuardAction]int{
	model.GuardAllow:     0,
	model.GuardFlag:      1,
	model.GuardRateLimit: 2,
	model.GuardReject:    3,
}

// GuardService is the anti-gaming evaluator. CheckProof is a dry run; the
// caller records accepted submissions separately via RecordSubmission so
// checks can be previewed without consuming quota.
type GuardService struct {
	rates    *RateTracker
	log      *SubmissionLog
	patterns *PatternEngine
	ledger   *ProofLedger

	duplicateThreshold float64
	minValue           float64
	maxValue           float64
}

func NewGuardService(cfg config.GuardConfig, rates *RateTracker, log *SubmissionLog, ledger *ProofLedger) *GuardService {
	return &GuardService{
		rates:              rates,
		log:                log,
		patterns:           NewPatternEngine(cfg.SuspiciousPatterns),
		ledger:             ledger,
		duplicateThreshold: cfg.DuplicateThreshold,
		minValue:           cfg.MinProofValue,
		maxValue:           cfg.MaxProofValue,
	}
}

// CheckProof runs the four anti-gaming checks and combines them under the
// escalation policy: actions only ever escalate (allow < flag < rate_limit
// < reject), a rate-limit violation always yields at least rate_limit, and a
// duplicate found while already rate-limited escalates straight to reject.
func (g *GuardService) CheckProof(userID, origin, content string, proposedValue float64) model.GamingCheck {
	result := model.GamingCheck{Action: model.GuardAllow}

	// 1. Rate limits
	exceeded := g.rates.Exceeded(userID, origin)
	if exceeded.Any() {
		result.Action = model.GuardRateLimit
		conf := 0.0
		if exceeded.Global {
			result.Reasons = append(result.Reasons, "global hourly submission quota exceeded")
			conf = rateConfidenceGlobal
		}
		if exceeded.Origin {
			result.Reasons = append(result.Reasons, "origin hourly submission quota exceeded")
			conf = rateConfidenceOrigin
		}
		if exceeded.User {
			result.Reasons = append(result.Reasons, "user hourly submission quota exceeded")
			conf = rateConfidenceUser
		}
		result.Confidence = math.Max(result.Confidence, conf)
		result.IsGaming = true
	}

	// 2. Duplicate detection
	normalized := NormalizeContent(content)
	recent := g.log.Recent(userID)
	if len(recent) > 0 {
		dups := 0
		for _, prev := range recent {
			if Similarity(normalized, prev) >= g.duplicateThreshold {
				dups++
			}
		}
		if dups > 0 {
			if result.Action == model.GuardRateLimit {
				result.Action = model.GuardReject
			} else {
				result.Action = escalate(result.Action, model.GuardFlag)
			}
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("near-duplicate of %d of %d submissions in the last 24h", dups, len(recent)))
			result.Confidence = math.Max(result.Confidence, float64(dups)/float64(len(recent)))
			result.IsGaming = true
		}
	}

	// 3. Suspicious patterns
	patternReasons := g.patterns.Match(content)
	if g.log.CountSince(userID, rapidSubmissionWindow) > rapidSubmissionLimit {
		patternReasons = append(patternReasons,
			fmt.Sprintf("more than %d submissions within the last minute", rapidSubmissionLimit))
	}
	if len(patternReasons) > 0 {
		result.Action = escalate(result.Action, model.GuardFlag)
		result.Reasons = append(result.Reasons, patternReasons...)
		conf := math.Min(patternConfidencePerMatch*float64(len(patternReasons)), patternConfidenceCap)
		result.Confidence = math.Max(result.Confidence, conf)
		result.IsGaming = true
	}

	// 4. Value anomaly
	if proposedValue < g.minValue || proposedValue > g.maxValue {
		result.Action = escalate(result.Action, model.GuardFlag)
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("proposed value %.1f outside accepted range [%.1f, %.1f]", proposedValue, g.minValue, g.maxValue))
		result.Confidence = math.Max(result.Confidence, anomalyConfidenceRange)
		result.IsGaming = true
	}
	if avg, n := g.ledger.AverageScore(userID); n > 0 && avg > 0 {
		if math.Abs(proposedValue-avg)/avg > anomalyDriftRatio {
			result.Action = escalate(result.Action, model.GuardFlag)
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("proposed value %.1f deviates more than 200%% from user average %.1f", proposedValue, avg))
			result.Confidence = math.Max(result.Confidence, anomalyConfidenceDrift)
			result.IsGaming = true
		}
	}

	return result
}

// RecordSubmission books the submission into the rate tracker and the recent
// submission log. Called once per evaluated submission, whatever the outcome,
// so rejected spam still consumes quota.
func (g *GuardService) RecordSubmission(userID, origin, content string) {
	g.rates.Record(userID, origin)
	g.log.Record(userID, NormalizeContent(content))
}

// escalate returns the more severe of the two actions; it never downgrades.
func escalate(current, proposed model.GuardAction) model.GuardAction {
	if guardActionRank[proposed] > guardActionRank[current] {
		return proposed
	}
	return current
}
