package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(userID string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":      userID,
		"username": "ana",
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      now.Add(time.Hour).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      "jti-1",
	}
}

func newAuthApp(cfg AuthConfig) *fiber.App {
	app := fiber.New()
	app.Get("/protected", AuthRequired(cfg), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userID":   c.Locals("userID"),
			"username": c.Locals("username"),
		})
	})
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestAuthRequired(t *testing.T) {
	app := newAuthApp(AuthConfig{Secret: testSecret})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", validClaims("7")), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, validClaims("7")), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeBody(t, resp)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, false, body["ok"])
				assert.Equal(t, "not-authenticated", body["msg"])
			} else {
				assert.Equal(t, float64(7), body["userID"])
				assert.Equal(t, "ana", body["username"])
			}
		})
	}
}

func TestAuthRequired_RejectsForeignIssuerAndExpired(t *testing.T) {
	app := newAuthApp(AuthConfig{Secret: testSecret})

	foreign := validClaims("7")
	foreign["iss"] = "someone-else"

	expired := validClaims("7")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	noExp := validClaims("7")
	delete(noExp, "exp")

	for name, claims := range map[string]jwt.MapClaims{"issuer": foreign, "expired": expired, "no exp": noExp} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, claims))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	app := newAuthApp(AuthConfig{Secret: testSecret, Redis: rdb})
	token := signToken(t, testSecret, validClaims("7"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, rdb.Set(context.Background(), BlacklistKey("jti-1"), "1", time.Hour).Err())

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_PlainTextAndQueryToken(t *testing.T) {
	app := newAuthApp(AuthConfig{Secret: testSecret, PlainText: true, AllowQueryToken: true})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "not-authenticated", string(raw))

	token := signToken(t, testSecret, validClaims("9"))
	req = httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParseToken(t *testing.T) {
	claims, err := ParseToken(testSecret, signToken(t, testSecret, validClaims("42")))
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "jti-1", claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)

	bad := validClaims("0")
	_, err = ParseToken(testSecret, signToken(t, testSecret, bad))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("", "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
