package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/gorm"
)

type contextKey string

const AdminIDKey contextKey = "admin_id"

var (
	errNoCredentials = errors.New("no credentials")
	errAPIKeyExpired = errors.New("api key expired")
)

// AuthInput carries the credentials of an admin API request.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie"`
	APIKey string `header:"X-API-KEY" doc:"API key"`
}

// AdminIDFromContext returns the admin set by AuthMiddleware.
func AdminIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(AdminIDKey).(uint)
	return id, ok
}

// Authorize resolves the admin of an API request from its API key or session cookie.
func (h *AuthHandler) Authorize(ctx context.Context, input AuthInput) (uint, error) {
	if input.APIKey != "" {
		adminID, err := h.authenticateAPIKey(ctx, input.APIKey)
		if errors.Is(err, errAPIKeyExpired) {
			return 0, huma.Error401Unauthorized("Unauthorized: API Key expired")
		}
		if err == nil {
			return adminID, nil
		}
	}

	if input.Cookie == "" {
		return 0, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	cookies, err := http.ParseCookie(input.Cookie)
	if err != nil {
		return 0, huma.Error400BadRequest("Bad Request")
	}
	for _, c := range cookies {
		if c.Name != CookieName {
			continue
		}
		adminID, _, err := h.parseToken(c.Value)
		if err != nil {
			return 0, huma.Error401Unauthorized("Unauthorized: Invalid token")
		}
		return adminID, nil
	}
	return 0, huma.Error401Unauthorized("Unauthorized: No token found")
}

// HashAPIKey returns the digest under which an API key is stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (h *AuthHandler) authenticateAPIKey(ctx context.Context, key string) (uint, error) {
	var keyModel models.APIKey
	if err := h.db.WithContext(ctx).Where("key_hash = ?", HashAPIKey(key)).First(&keyModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errNoCredentials
		}
		return 0, err
	}
	if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
		return 0, errAPIKeyExpired
	}

	if err := h.db.WithContext(ctx).Model(&keyModel).Update("last_used_at", time.Now()).Error; err != nil {
		log.Printf("Failed to record API key usage: %v", err)
	}
	return keyModel.AdminID, nil
}

func (h *AuthHandler) parseToken(tokenString string) (uint, time.Time, error) {
	if h.cfg.JWTSecret == "" {
		return 0, time.Time{}, errMissingSecret
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, errors.New("invalid token claims")
	}
	adminIDFloat, ok := claims["admin_id"].(float64)
	if !ok {
		return 0, time.Time{}, errors.New("invalid token claims")
	}

	var expiresAt time.Time
	if exp, ok := claims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(exp), 0)
	}
	return uint(adminIDFloat), expiresAt, nil
}

// AuthMiddleware protects plain chi routes such as the CSV export.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Check for API Key Header
		if apiKey := r.Header.Get("X-API-KEY"); apiKey != "" {
			adminID, err := h.authenticateAPIKey(r.Context(), apiKey)
			if errors.Is(err, errAPIKeyExpired) {
				http.Error(w, "Unauthorized: API Key expired", http.StatusUnauthorized)
				return
			}
			if err == nil {
				ctx := context.WithValue(r.Context(), AdminIDKey, adminID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		// 2. Fallback to JWT Cookie
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
			return
		}

		adminID, expiresAt, err := h.parseToken(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		// Sliding session: refresh token if it's more than halfway through its duration
		if !expiresAt.IsZero() && time.Until(expiresAt) < TokenDuration/2 {
			if newToken, err := h.GenerateToken(adminID); err == nil {
				c := SessionCookie(newToken)
				http.SetCookie(w, &c)
			}
		}

		ctx := context.WithValue(r.Context(), AdminIDKey, adminID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
