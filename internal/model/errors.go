package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the settlement pipeline. Handlers map these to HTTP
// status codes with errors.Is.
var (
	ErrProofNotFound         = errors.New("proof not found")
	ErrAlreadySettled        = errors.New("proof already settled")
	ErrSettlementInFlight    = errors.New("settlement already in flight for this proof")
	ErrSettlementUnavailable = errors.New("no settlement path available")
	ErrSettlementFailed      = errors.New("settlement failed")
)

// ValidationError reports malformed contribution data or out-of-range inputs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GamingRejectedError is returned when the anti-gaming evaluation rejects a
// submission outright. No proof exists when this error is returned.
type GamingRejectedError struct {
	Reasons    []string
	Confidence float64
}

func (e *GamingRejectedError) Error() string {
	return fmt.Sprintf("submission rejected (confidence %.2f): %s",
		e.Confidence, strings.Join(e.Reasons, "; "))
}
