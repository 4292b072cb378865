package middleware

import (
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/users/alice/proofs", "/api/users/:userId/proofs"},
		{"/api/proofs/3f1c2a9e-0000-0000-0000-000000000000", "/api/proofs/:proofId"},
		{"/api/stats", "/api/stats"},
		{"/health/ready", "/health/ready"},
	}

	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashIPForLog(t *testing.T) {
	a := hashIPForLog("203.0.113.7")
	b := hashIPForLog("203.0.113.7")
	c := hashIPForLog("203.0.113.8")

	if a != b {
		t.Error("same IP should produce the same hash")
	}
	if a == c {
		t.Error("different IPs should produce different hashes")
	}
	if len(a) != 12 {
		t.Errorf("hash length = %d, want 12", len(a))
	}
	if strings.Contains(a, "203") {
		t.Error("hash should not contain raw IP fragments")
	}
}
