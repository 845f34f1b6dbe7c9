// Package service holds the membership authority, the resource store and the
// supporting authentication, catalog and evaluation services.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"campus/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenManager issues and revokes bearer tokens.
type TokenManager struct {
	secret string
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. rdb may be nil, which makes Revoke a no-op.
func NewTokenManager(secret string, ttl time.Duration, rdb *redis.Client) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: secret, ttl: ttl, rdb: rdb, now: time.Now}
}

// Generate signs a token for the user.
func (m *TokenManager) Generate(userID uint, username string) (string, error) {
	if m.secret == "" {
		return "", errors.New("JWT secret not configured")
	}

	now := m.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      middleware.TokenIssuer,
		"aud":      middleware.TokenAudience,
		"exp":      now.Add(m.ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      generateJTI(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secret))
}

// Revoke blacklists the token id until the token would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, claims *middleware.Claims) error {
	if m.rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.rdb.Set(ctx, middleware.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
}
