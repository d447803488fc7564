package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ruestzeit/anmeldung/internal/config"
	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, secret string, adminID uint, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"admin_id": adminID,
		"exp":      time.Now().Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return tokenString
}

func TestJWTMiddleware_SlidingSession(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, nil)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := AdminIDFromContext(r.Context()); !ok || id != 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("TokenRenewed", func(t *testing.T) {
		// Expires in 11 hours, less than TokenDuration/2.
		tokenString := signedToken(t, cfg.JWTSecret, 1, 11*time.Hour)

		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: tokenString})
		rr := httptest.NewRecorder()

		handler.AuthMiddleware(nextHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}

		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == CookieName {
				found = true
				if c.Value == tokenString {
					t.Errorf("expected new token value, but got the old one")
				}
				break
			}
		}
		if !found {
			t.Errorf("expected new auth_token cookie to be set")
		}
	})

	t.Run("TokenNotRenewed", func(t *testing.T) {
		// Expires in 13 hours, more than TokenDuration/2.
		tokenString := signedToken(t, cfg.JWTSecret, 1, 13*time.Hour)

		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: tokenString})
		rr := httptest.NewRecorder()

		handler.AuthMiddleware(nextHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == CookieName {
				t.Errorf("did not expect a new auth_token cookie to be set")
			}
		}
	})

	t.Run("Expired", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: signedToken(t, cfg.JWTSecret, 1, -time.Minute)})
		rr := httptest.NewRecorder()

		handler.AuthMiddleware(nextHandler).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Missing", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()

		handler.AuthMiddleware(nextHandler).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAPIKeyAuthentication(t *testing.T) {
	db := newTestDB(t)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	admin, err := CreateAdmin(context.Background(), db, "api@example.org", "API", "")
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&models.APIKey{AdminID: admin.ID, KeyHash: HashAPIKey("valid-key"), Name: "export"}).Error)
	require.NoError(t, db.Create(&models.APIKey{AdminID: admin.ID, KeyHash: HashAPIKey("old-key"), Name: "old", ExpiresAt: &past}).Error)

	t.Run("Valid", func(t *testing.T) {
		id, err := handler.Authorize(context.Background(), AuthInput{APIKey: "valid-key"})
		require.NoError(t, err)
		assert.Equal(t, admin.ID, id)

		var key models.APIKey
		require.NoError(t, db.Where("key_hash = ?", HashAPIKey("valid-key")).First(&key).Error)
		assert.NotNil(t, key.LastUsedAt)
	})

	t.Run("Expired", func(t *testing.T) {
		_, err := handler.Authorize(context.Background(), AuthInput{APIKey: "old-key"})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-KEY", "old-key")
		rr := httptest.NewRecorder()
		handler.AuthMiddleware(http.NotFoundHandler()).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := handler.Authorize(context.Background(), AuthInput{APIKey: "nope"})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("Middleware", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-KEY", "valid-key")
		rr := httptest.NewRecorder()

		handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := AdminIDFromContext(r.Context())
			assert.Equal(t, admin.ID, id)
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestEmptySecretRejectsSessions(t *testing.T) {
	handler := NewAuthHandler(&config.Config{}, nil)

	_, err := handler.GenerateToken(1)
	assert.Error(t, err)

	forged := signedToken(t, "", 1, time.Hour)
	_, err = handler.Authorize(context.Background(), AuthInput{Cookie: CookieName + "=" + forged})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: forged})
	rr := httptest.NewRecorder()
	handler.AuthMiddleware(http.NotFoundHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
