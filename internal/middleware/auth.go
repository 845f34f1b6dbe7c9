// Package middleware provides authentication, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer is the iss claim of every token this backend issues.
	TokenIssuer = "campus-api"
	// TokenAudience is the aud claim of every token this backend issues.
	TokenAudience = "campus-client"

	msgNotAuthenticated = "not-authenticated"
)

// ErrInvalidToken is returned for any token that fails parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the caller identity carried by a bearer token.
type Claims struct {
	UserID    uint
	Username  string
	ID        string
	ExpiresAt time.Time
}

// AuthConfig configures AuthRequired.
type AuthConfig struct {
	Secret string
	// Redis holds the jti blacklist; nil disables revocation checks.
	Redis *redis.Client
	// PlainText answers 401 with a text body instead of JSON.
	PlainText bool
	// AllowQueryToken accepts ?token= for clients that cannot set headers (websockets).
	AllowQueryToken bool
}

// BlacklistKey is the Redis key marking a token id as revoked.
func BlacklistKey(jti string) string {
	return "blacklist:" + jti
}

// ParseToken validates an HS256 token issued by this backend and extracts its claims.
func ParseToken(secret, raw string) (*Claims, error) {
	if secret == "" || raw == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	out := &Claims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.ID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// IsRevoked reports whether the token id was blacklisted at logout.
// Redis errors fail open so an outage does not lock every user out.
func IsRevoked(ctx context.Context, rdb *redis.Client, jti string) bool {
	if rdb == nil || jti == "" {
		return false
	}
	n, err := rdb.Exists(ctx, BlacklistKey(jti)).Result()
	return err == nil && n > 0
}

// AuthRequired enforces a valid, unrevoked bearer token and stores the caller in locals
// ("userID", "username", "claims") and in the user context.
func AuthRequired(cfg AuthConfig) fiber.Handler {
	reject := func(c *fiber.Ctx) error {
		if cfg.PlainText {
			return c.Status(fiber.StatusUnauthorized).SendString(msgNotAuthenticated)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"ok":  false,
			"msg": msgNotAuthenticated,
		})
	}

	return func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" && cfg.AllowQueryToken {
			raw = c.Query("token")
		}
		if raw == "" {
			return reject(c)
		}

		claims, err := ParseToken(cfg.Secret, raw)
		if err != nil {
			return reject(c)
		}
		if IsRevoked(c.UserContext(), cfg.Redis, claims.ID) {
			return reject(c)
		}

		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("claims", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))

		return c.Next()
	}
}
