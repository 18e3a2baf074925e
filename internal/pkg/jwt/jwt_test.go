package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndDecode(t *testing.T) {
	codec := New("test-secret")

	claims := Claims{
		UserID:       7,
		Role:         "bidan",
		Name:         "Siti",
		Email:        "siti@example.com",
		TokenVersion: 3,
	}
	token, err := codec.Issue(claims, 12*time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	got, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got.UserID != 7 || got.Role != "bidan" || got.TokenVersion != 3 {
		t.Fatalf("decoded claims mismatch: %+v", got)
	}
	if got.ExpiresAt == nil {
		t.Fatal("expected exp claim to be set")
	}
	until := time.Until(got.ExpiresAt.Time)
	if until < 11*time.Hour || until > 13*time.Hour {
		t.Fatalf("exp not around 12h from now: %v", until)
	}
}

func TestIssueWithoutTTLOmitsExpiry(t *testing.T) {
	codec := New("test-secret")

	token, err := codec.Issue(Claims{UserID: 1, Role: "admin", TokenVersion: 1}, 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	got, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Fatalf("expected no exp claim, got %v", got.ExpiresAt)
	}
}

func TestDecodeExpired(t *testing.T) {
	codec := New("test-secret")

	token, err := codec.Issue(Claims{UserID: 1, Role: "ibu_hamil", TokenVersion: 1}, -time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	token, err := New("secret-a").Issue(Claims{UserID: 1, Role: "admin", TokenVersion: 1}, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := New("secret-b").Decode(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	codec := New("test-secret")
	for _, raw := range []string{"", "   ", "not-a-token", "a.b"} {
		if _, err := codec.Decode(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q): expected ErrMalformed, got %v", raw, err)
		}
	}
}
