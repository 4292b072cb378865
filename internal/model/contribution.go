package model

import (
	"encoding/json"
	"time"
)

// ContributionKind identifies which variant of a contribution was submitted.
type ContributionKind string

const (
	KindKnowledge ContributionKind = "knowledge"
	KindCode      ContributionKind = "code"
	KindCommunity ContributionKind = "community"
)

// Knowledge content kinds. Courses and tutorials earn a score multiplier.
const (
	ContentArticle  = "article"
	ContentVideo    = "video"
	ContentCourse   = "course"
	ContentTutorial = "tutorial"
	ContentResearch = "research"
)

// Community action kinds.
const (
	ActionMentoring        = "mentoring"
	ActionCodeReview       = "code_review"
	ActionGovernanceVote   = "governance_vote"
	ActionBugReport        = "bug_report"
	ActionFeatureRequest   = "feature_request"
	ActionKnowledgeSharing = "knowledge_sharing"
)

// Contribution is the tagged union over the three contribution variants.
// Exactly one of Knowledge, Code, Community must be set, matching Kind.
type Contribution struct {
	Kind      ContributionKind       `json:"kind"`
	Knowledge *KnowledgeContribution `json:"knowledge,omitempty"`
	Code      *CodeContribution      `json:"code,omitempty"`
	Community *CommunityContribution `json:"community,omitempty"`
}

// KnowledgeContribution describes written or recorded educational content.
// Engagement and Originality default to 50 when omitted.
type KnowledgeContribution struct {
	Quality     float64  `json:"quality"`
	Impact      float64  `json:"impact"`
	Engagement  *float64 `json:"engagement,omitempty"`
	Originality *float64 `json:"originality,omitempty"`
	ContentKind string   `json:"contentKind"`
}

// CodeContribution describes a code change.
type CodeContribution struct {
	Additions     int      `json:"additions"`
	Deletions     int      `json:"deletions"`
	FilesChanged  int      `json:"filesChanged"`
	Complexity    float64  `json:"complexity"`
	TestsAdded    *int     `json:"testsAdded,omitempty"`
	Documentation *float64 `json:"documentation,omitempty"`
}

// CommunityContribution describes a community action.
type CommunityContribution struct {
	Action     string  `json:"action"`
	Impact     float64 `json:"impact"`
	Recipients *int    `json:"recipients,omitempty"`
}

var validContentKinds = map[string]bool{
	ContentArticle:  true,
	ContentVideo:    true,
	ContentCourse:   true,
	ContentTutorial: true,
	ContentResearch: true,
}

// ValidActions lists the recognized community action kinds. Unknown actions
// are still scored (with a low base), so this is informational only.
var ValidActions = map[string]bool{
	ActionMentoring:        true,
	ActionCodeReview:       true,
	ActionGovernanceVote:   true,
	ActionBugReport:        true,
	ActionFeatureRequest:   true,
	ActionKnowledgeSharing: true,
}

// Validate checks variant consistency and field ranges.
func (c *Contribution) Validate() error {
	switch c.Kind {
	case KindKnowledge:
		if c.Knowledge == nil {
			return &ValidationError{Field: "knowledge", Reason: "knowledge payload is required for kind=knowledge"}
		}
		return c.Knowledge.validate()
	case KindCode:
		if c.Code == nil {
			return &ValidationError{Field: "code", Reason: "code payload is required for kind=code"}
		}
		return c.Code.validate()
	case KindCommunity:
		if c.Community == nil {
			return &ValidationError{Field: "community", Reason: "community payload is required for kind=community"}
		}
		return c.Community.validate()
	default:
		return &ValidationError{Field: "kind", Reason: "kind must be one of: knowledge, code, community"}
	}
}

func (k *KnowledgeContribution) validate() error {
	if err := inRange("quality", k.Quality); err != nil {
		return err
	}
	if err := inRange("impact", k.Impact); err != nil {
		return err
	}
	if k.Engagement != nil {
		if err := inRange("engagement", *k.Engagement); err != nil {
			return err
		}
	}
	if k.Originality != nil {
		if err := inRange("originality", *k.Originality); err != nil {
			return err
		}
	}
	if !validContentKinds[k.ContentKind] {
		return &ValidationError{Field: "contentKind", Reason: "contentKind must be one of: article, video, course, tutorial, research"}
	}
	return nil
}

func (c *CodeContribution) validate() error {
	if c.Additions < 0 {
		return &ValidationError{Field: "additions", Reason: "additions must be non-negative"}
	}
	if c.Deletions < 0 {
		return &ValidationError{Field: "deletions", Reason: "deletions must be non-negative"}
	}
	if c.FilesChanged < 0 {
		return &ValidationError{Field: "filesChanged", Reason: "filesChanged must be non-negative"}
	}
	if err := inRange("complexity", c.Complexity); err != nil {
		return err
	}
	if c.TestsAdded != nil && *c.TestsAdded < 0 {
		return &ValidationError{Field: "testsAdded", Reason: "testsAdded must be non-negative"}
	}
	if c.Documentation != nil {
		if err := inRange("documentation", *c.Documentation); err != nil {
			return err
		}
	}
	return nil
}

func (c *CommunityContribution) validate() error {
	if c.Action == "" {
		return &ValidationError{Field: "action", Reason: "action is required"}
	}
	if err := inRange("impact", c.Impact); err != nil {
		return err
	}
	if c.Recipients != nil && *c.Recipients < 0 {
		return &ValidationError{Field: "recipients", Reason: "recipients must be non-negative"}
	}
	return nil
}

func inRange(field string, v float64) error {
	if v < 0 || v > 100 {
		return &ValidationError{Field: field, Reason: field + " must be between 0 and 100"}
	}
	return nil
}

// ContentSource returns the canonical string form of the contribution used
// for duplicate detection and for the content hash stored in proof metadata.
// JSON encoding of a struct has a fixed field order, so two identical
// submissions produce identical content sources.
func (c *Contribution) ContentSource() string {
	b, err := json.Marshal(c)
	if err != nil {
		return string(c.Kind)
	}
	return string(b)
}

// ValueScore is the ephemeral result of scoring one contribution.
type ValueScore struct {
	Score      float64            `json:"score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Multiplier float64            `json:"multiplier"`
	Timestamp  time.Time          `json:"timestamp"`
}
