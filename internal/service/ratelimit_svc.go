package service

import (
	"sync"
	"time"
)

// RateWindowDuration is the rolling quota window for all three scopes.
const RateWindowDuration = time.Hour

// rateWindow tracks submissions for one key within the current hour.
type rateWindow struct {
	count     int
	startedAt time.Time
}

func (w *rateWindow) stale(now time.Time) bool {
	return now.Sub(w.startedAt) >= RateWindowDuration
}

// RateExceeded reports which scopes are over quota for a prospective submission.
type RateExceeded struct {
	User   bool
	Origin bool
	Global bool
}

func (e RateExceeded) Any() bool {
	return e.User || e.Origin || e.Global
}

// RateTracker counts submissions per user, per origin, and globally over
// rolling hourly windows. Checks are separate from recording so the
// anti-gaming evaluator can run dry.
type RateTracker struct {
	mu      sync.Mutex
	users   map[string]*rateWindow
	origins map[string]*rateWindow
	global  rateWindow

	userLimit   int
	originLimit int
	globalLimit int

	now func() time.Time
}

// NewRateTracker creates a tracker with the given hourly quotas.
func NewRateTracker(userLimit, originLimit, globalLimit int) *RateTracker {
	return &RateTracker{
		users:       make(map[string]*rateWindow),
		origins:     make(map[string]*rateWindow),
		userLimit:   userLimit,
		originLimit: originLimit,
		globalLimit: globalLimit,
		now:         time.Now,
	}
}

// Exceeded reports whether recording one more submission would exceed any
// scope's quota. It does not mutate the counters.
func (t *RateTracker) Exceeded(userID, origin string) RateExceeded {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	return RateExceeded{
		User:   windowCount(t.users[userID], now) >= t.userLimit,
		Origin: windowCount(t.origins[origin], now) >= t.originLimit,
		Global: windowCount(&t.global, now) >= t.globalLimit,
	}
}

// Record counts one submission against all three scopes, rolling any window
// that has aged past an hour.
func (t *RateTracker) Record(userID, origin string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.users[userID] = bump(t.users[userID], now)
	t.origins[origin] = bump(t.origins[origin], now)

	if t.global.startedAt.IsZero() || t.global.stale(now) {
		t.global = rateWindow{count: 1, startedAt: now}
	} else {
		t.global.count++
	}
}

// ResetStale drops windows older than an hour. Returns the number of entries
// removed; called by the background prune worker.
func (t *RateTracker) ResetStale() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for key, w := range t.users {
		if w.stale(now) {
			delete(t.users, key)
			removed++
		}
	}
	for key, w := range t.origins {
		if w.stale(now) {
			delete(t.origins, key)
			removed++
		}
	}
	if !t.global.startedAt.IsZero() && t.global.stale(now) {
		t.global = rateWindow{}
		removed++
	}
	return removed
}

func windowCount(w *rateWindow, now time.Time) int {
	if w == nil || w.stale(now) {
		return 0
	}
	return w.count
}

func bump(w *rateWindow, now time.Time) *rateWindow {
	if w == nil || w.stale(now) {
		return &rateWindow{count: 1, startedAt: now}
	}
	w.count++
	return w
}
