package service

import (
	"sync"
	"time"
)

// SubmissionRetention is how long normalized submissions are kept for
// duplicate detection.
const SubmissionRetention = 24 * time.Hour

type submissionEntry struct {
	content string
	at      time.Time
}

// SubmissionLog keeps each user's recent normalized submissions. It is used
// only for duplicate and rapid-submission detection, never for settlement.
type SubmissionLog struct {
	mu      sync.Mutex
	entries map[string][]submissionEntry
	now     func() time.Time
}

func NewSubmissionLog() *SubmissionLog {
	return &SubmissionLog{
		entries: make(map[string][]submissionEntry),
		now:     time.Now,
	}
}

// Record appends one normalized submission for the user.
func (l *SubmissionLog) Record(userID, normalized string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[userID] = append(l.entries[userID], submissionEntry{
		content: normalized,
		at:      l.now(),
	})
}

// Recent returns the user's submissions from the retention window, oldest
// first. The returned slice is a copy.
func (l *SubmissionLog) Recent(userID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-SubmissionRetention)
	var out []string
	for _, e := range l.entries[userID] {
		if e.at.After(cutoff) {
			out = append(out, e.content)
		}
	}
	return out
}

// CountSince returns how many submissions the user made within the given
// duration. Used by the rapid-submission heuristic.
func (l *SubmissionLog) CountSince(userID string, d time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-d)
	n := 0
	for _, e := range l.entries[userID] {
		if e.at.After(cutoff) {
			n++
		}
	}
	return n
}

// Prune drops entries older than the retention window and returns how many
// were removed. Called by the background prune worker.
func (l *SubmissionLog) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-SubmissionRetention)
	removed := 0
	for userID, entries := range l.entries {
		kept := entries[:0]
		for _, e := range entries {
			if e.at.After(cutoff) {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(l.entries, userID)
		} else {
			l.entries[userID] = kept
		}
	}
	return removed
}
