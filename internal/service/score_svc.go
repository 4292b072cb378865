package service

import (
	"math"
	"time"

	"github.com/Azora-OS/azora-sub011/internal/model"
)

// Knowledge scoring weights and the course/tutorial multiplier.
const (
	knowledgeQualityWeight     = 0.30
	knowledgeImpactWeight      = 0.30
	knowledgeEngagementWeight  = 0.20
	knowledgeOriginalityWeight = 0.20

	// Default engagement/originality when the submitter omits them
	knowledgeDefaultPartial = 50.0

	structuredContentMultiplier = 1.2
)

// Code scoring weights.
const (
	codeComplexityWeight = 0.40
	codeSizeWeight       = 0.20
	codeTestsWeight      = 0.30
	codeDocWeight        = 0.10

	// Flat bonus when a change carries both tests and documentation
	codeTestsAndDocsBonus = 10.0

	codeSizeFactorCap = 50.0
	codeSizeFloor     = 10.0
)

// Community base scores per action kind.
var communityBaseScores = map[string]float64{
	model.ActionMentoring:        60,
	model.ActionCodeReview:       40,
	model.ActionGovernanceVote:   20,
	model.ActionBugReport:        30,
	model.ActionFeatureRequest:   25,
	model.ActionKnowledgeSharing: 35,
}

const (
	communityUnknownBase   = 10.0
	communityImpactPivot   = 50.0
	communityRecipientUnit = 2.0
	communityRecipientCap  = 20.0
)

// ScoreService computes value scores for contributions. Pure: no state, no
// side effects, and the result is always within [0,100].
type ScoreService struct{}

func NewScoreService() *ScoreService {
	return &ScoreService{}
}

// Score validates the contribution and computes its value score.
func (s *ScoreService) Score(c *model.Contribution) (*model.ValueScore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var (
		score      float64
		multiplier = 1.0
		breakdown  map[string]float64
	)

	switch c.Kind {
	case model.KindKnowledge:
		score, multiplier, breakdown = scoreKnowledge(c.Knowledge)
	case model.KindCode:
		score, breakdown = scoreCode(c.Code)
	case model.KindCommunity:
		score, breakdown = scoreCommunity(c.Community)
	}

	return &model.ValueScore{
		Score:      clampScore(score),
		Breakdown:  breakdown,
		Multiplier: multiplier,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func scoreKnowledge(k *model.KnowledgeContribution) (float64, float64, map[string]float64) {
	engagement := knowledgeDefaultPartial
	if k.Engagement != nil {
		engagement = *k.Engagement
	}
	originality := knowledgeDefaultPartial
	if k.Originality != nil {
		originality = *k.Originality
	}

	breakdown := map[string]float64{
		"quality":     knowledgeQualityWeight * k.Quality,
		"impact":      knowledgeImpactWeight * k.Impact,
		"engagement":  knowledgeEngagementWeight * engagement,
		"originality": knowledgeOriginalityWeight * originality,
	}

	weighted := breakdown["quality"] + breakdown["impact"] + breakdown["engagement"] + breakdown["originality"]

	multiplier := 1.0
	if k.ContentKind == model.ContentCourse || k.ContentKind == model.ContentTutorial {
		multiplier = structuredContentMultiplier
	}

	return weighted * multiplier, multiplier, breakdown
}

func scoreCode(c *model.CodeContribution) (float64, map[string]float64) {
	churn := float64(c.Additions + c.Deletions)
	sizeFactor := math.Min(math.Log10(math.Max(churn, codeSizeFloor))/2*20, codeSizeFactorCap)

	tests := 0
	if c.TestsAdded != nil {
		tests = *c.TestsAdded
	}
	doc := 0.0
	if c.Documentation != nil {
		doc = *c.Documentation
	}

	breakdown := map[string]float64{
		"complexity": codeComplexityWeight * c.Complexity,
		"size":       codeSizeWeight * sizeFactor,
		"tests":      codeTestsWeight * float64(tests) * 10,
		"docs":       codeDocWeight * doc,
	}
	if tests > 0 && doc > 0 {
		breakdown["synergy"] = codeTestsAndDocsBonus
	}

	score := 0.0
	for _, part := range breakdown {
		score += part
	}
	return score, breakdown
}

func scoreCommunity(c *model.CommunityContribution) (float64, map[string]float64) {
	base, ok := communityBaseScores[c.Action]
	if !ok {
		base = communityUnknownBase
	}

	recipients := 0
	if c.Recipients != nil {
		recipients = *c.Recipients
	}
	reach := math.Min(float64(recipients)*communityRecipientUnit, communityRecipientCap)

	breakdown := map[string]float64{
		"action": base * (c.Impact / communityImpactPivot),
		"reach":  reach,
	}
	return breakdown["action"] + breakdown["reach"], breakdown
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
