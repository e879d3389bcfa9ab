package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService("test-secret", time.Hour).WithClock(func() time.Time { return now })

	tok, err := svc.Issue("1.2.3.4")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Verify("Bearer " + tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !claims.Admin {
		t.Fatal("expected admin claim")
	}
	if claims.IP != "1.2.3.4" {
		t.Fatalf("expected ip claim 1.2.3.4, got %q", claims.IP)
	}
	if got := claims.ExpiresAt.Time; !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry %v, got %v", now.Add(time.Hour), got)
	}
}

func TestVerifyMissingToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	for _, header := range []string{"", "Basic abc", "bearer lowercase", "Bearer"} {
		if _, err := svc.Verify(header); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("header %q: expected ErrMissingToken, got %v", header, err)
		}
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService("test-secret", time.Hour).WithClock(func() time.Time { return now })

	tok, err := svc.Issue("1.2.3.4")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(61 * time.Minute)
	if _, err := svc.Verify("Bearer " + tok); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tok, err := svc.Issue("1.2.3.4")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// mutate one character in each of the three segments
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("expected compact JWT, got %q", tok)
	}
	for i := range parts {
		mutated := make([]string, 3)
		copy(mutated, parts)
		seg := []byte(mutated[i])
		if seg[0] == 'A' {
			seg[0] = 'B'
		} else {
			seg[0] = 'A'
		}
		mutated[i] = string(seg)

		if _, err := svc.Verify("Bearer " + strings.Join(mutated, ".")); err == nil {
			t.Fatalf("expected verification failure after mutating segment %d", i)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	tok, err := issuer.Issue("1.2.3.4")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify("Bearer " + tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := NewService("unused", time.Hour)

	if !svc.VerifyPassword("hunter2", "hunter2") {
		t.Fatal("expected matching passwords to verify")
	}
	if svc.VerifyPassword("hunter2", "hunter3") {
		t.Fatal("expected mismatched passwords to fail")
	}
	if svc.VerifyPassword("", "hunter2") {
		t.Fatal("expected empty candidate to fail")
	}
}
