package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Built-in pattern thresholds.
const (
	minRepeatedRun  = 10  // repeated-character run length that trips the check
	minAllCapsLen   = 10  // shorter all-caps strings are too common to flag
	minAllDigitsLen = 8   // e.g. phone numbers, ids pasted as content
	uniformMinLen   = 200 // length before the low-entropy check applies
	uniformMaxRatio = 0.05
)

// PatternEngine matches submission content against a configurable block-list
// plus built-in low-effort-content heuristics. Stateless after construction.
type PatternEngine struct {
	blockRes []*regexp.Regexp
	blockSub []string // entries that failed to compile, matched as substrings
}

// NewPatternEngine compiles the configured block-list. Entries that are not
// valid regular expressions fall back to case-insensitive substring matching.
func NewPatternEngine(blocklist []string) *PatternEngine {
	e := &PatternEngine{}
	for _, raw := range blocklist {
		if raw == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			e.blockSub = append(e.blockSub, strings.ToLower(raw))
			continue
		}
		e.blockRes = append(e.blockRes, re)
	}
	return e
}

// Match returns one human-readable reason per pattern that fired.
func (e *PatternEngine) Match(content string) []string {
	var reasons []string

	for _, re := range e.blockRes {
		if re.MatchString(content) {
			reasons = append(reasons, fmt.Sprintf("content matches blocked pattern %q", re.String()))
		}
	}
	lower := strings.ToLower(content)
	for _, sub := range e.blockSub {
		if strings.Contains(lower, sub) {
			reasons = append(reasons, fmt.Sprintf("content contains blocked phrase %q", sub))
		}
	}

	if run := longestRun(content); run >= minRepeatedRun {
		reasons = append(reasons, fmt.Sprintf("contains a run of %d repeated characters", run))
	}
	if isAllCaps(content) {
		reasons = append(reasons, "content is entirely upper-case")
	}
	if isAllDigits(content) {
		reasons = append(reasons, "content is entirely numeric")
	}
	if isLowEntropy(content) {
		reasons = append(reasons, "long uniform content with very few distinct characters")
	}

	return reasons
}

// longestRun returns the length of the longest run of one repeated rune.
// Go's regexp has no backreferences, so this is a plain scan.
func longestRun(s string) int {
	var prev rune
	run, best := 0, 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= minAllCapsLen
}

func isAllDigits(s string) bool {
	if len(s) < minAllDigitsLen {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isLowEntropy(s string) bool {
	runes := []rune(s)
	if len(runes) < uniformMinLen {
		return false
	}
	distinct := make(map[rune]struct{}, 16)
	for _, r := range runes {
		distinct[r] = struct{}{}
	}
	return float64(len(distinct))/float64(len(runes)) < uniformMaxRatio
}
