package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nazm-contest-api/internal/auth"
)

func TestJWTResolver_IssueAndResolve(t *testing.T) {
	r := NewJWTResolver("secret", "nazm", time.Hour)
	want := auth.Principal{UserID: "u-1", Name: "Zainab", Role: auth.RoleAdmin}

	token, err := r.Issue(want)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := r.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestJWTResolver_Rejects(t *testing.T) {
	ctx := context.Background()
	r := NewJWTResolver("secret", "nazm", time.Hour)
	user := auth.Principal{UserID: "u-2", Name: "Ali", Role: auth.RoleUser}

	forged, _ := NewJWTResolver("other-secret", "nazm", time.Hour).Issue(user)
	wrongIssuer, _ := NewJWTResolver("secret", "elsewhere", time.Hour).Issue(user)

	expiredIssuer := NewJWTResolver("secret", "nazm", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiredIssuer.Issue(user)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"forged":       forged,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := r.Resolve(ctx, token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestJWTResolver_IssueRequiresKnownRole(t *testing.T) {
	r := NewJWTResolver("secret", "nazm", time.Hour)
	if _, err := r.Issue(auth.Principal{UserID: "u", Role: "judge"}); err == nil {
		t.Error("Expected error for unknown role")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  xyz ": "xyz",
		"Basic abc":    "",
		"":             "",
		"Bearer":       "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
