package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/taskhub/taskhub/internal/auth"
)

func TestIssueAndParse(t *testing.T) {
	m := auth.NewManager("test-secret", 30*time.Minute)

	token, err := m.Issue("alice@x.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	subject, expiry, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if subject != "alice@x.com" {
		t.Fatalf("got subject %q, want %q", subject, "alice@x.com")
	}

	wantExpiry := time.Now().UTC().Add(30 * time.Minute)
	if expiry.Before(wantExpiry.Add(-time.Minute)) || expiry.After(wantExpiry.Add(time.Minute)) {
		t.Fatalf("expiry %v not within a minute of %v", expiry, wantExpiry)
	}
}

func TestParseExpiredToken(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute)

	token, err := m.Issue("alice@x.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	_, _, err = m.Parse(token)

	if !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseRejectsForgedToken(t *testing.T) {
	issuer := auth.NewManager("real-secret", 30*time.Minute)
	forger := auth.NewManager("other-secret", 30*time.Minute)

	token, err := forger.Issue("alice@x.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, _, err := issuer.Parse(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong signature, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := auth.NewManager("test-secret", 30*time.Minute)

	for _, tokenStr := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, _, err := m.Parse(tokenStr); !errors.Is(err, auth.ErrInvalidToken) {
			t.Fatalf("Parse(%q): expected ErrInvalidToken, got %v", tokenStr, err)
		}
	}
}
