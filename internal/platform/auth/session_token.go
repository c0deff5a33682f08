package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"qrgen/internal/platform/config"
)

const issuer = "qrgen"

// TokenService signs and validates the session cookie. The token subject is
// the session id; nothing else about the session lives in the cookie.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService uses cfg.Secret, or a random per-process key when it is
// empty, in which case sessions do not survive a restart.
func NewTokenService(cfg config.SessionConfig) (*TokenService, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		secret = []byte(hex.EncodeToString(key))
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &TokenService{secret: secret, ttl: ttl}, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) GenerateSessionToken(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateSessionToken returns the session id carried by tokenString.
func (s *TokenService) ValidateSessionToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return "", err
	}

	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}

	return claims.Subject, nil
}
