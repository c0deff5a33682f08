package auth

import (
	"testing"
	"time"

	"qrgen/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(config.SessionConfig{Secret: "secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	token, err := svc.GenerateSessionToken("session-1")
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	id, err := svc.ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken() error = %v", err)
	}
	if id != "session-1" {
		t.Errorf("session id = %s, want session-1", id)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	signer, _ := NewTokenService(config.SessionConfig{Secret: "secret", TokenTTL: time.Hour})
	other, _ := NewTokenService(config.SessionConfig{Secret: "other", TokenTTL: time.Hour})
	expired, _ := NewTokenService(config.SessionConfig{Secret: "secret", TokenTTL: -time.Hour})
	expired.ttl = -time.Hour

	validToken, _ := signer.GenerateSessionToken("s")
	expiredToken, _ := expired.GenerateSessionToken("s")

	tests := []struct {
		name  string
		svc   *TokenService
		token string
	}{
		{name: "Wrong Secret", svc: other, token: validToken},
		{name: "Expired", svc: signer, token: expiredToken},
		{name: "Garbage", svc: signer, token: "not-a-token"},
		{name: "Empty", svc: signer, token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.ValidateSessionToken(tt.token); err == nil {
				t.Error("ValidateSessionToken() expected error")
			}
		})
	}
}

func TestTokenService_RandomSecret(t *testing.T) {
	a, err := NewTokenService(config.SessionConfig{})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	b, _ := NewTokenService(config.SessionConfig{})

	token, _ := a.GenerateSessionToken("s")
	if _, err := b.ValidateSessionToken(token); err == nil {
		t.Error("token validated under a different random secret")
	}
	if a.TTL() != 24*time.Hour {
		t.Errorf("TTL() = %v, want 24h default", a.TTL())
	}
}
