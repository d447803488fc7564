package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/gorm"
)

const apiKeyPrefix = "rz_"

type APIKeyHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewAPIKeyHandler(db *gorm.DB, authHandler *auth.AuthHandler) *APIKeyHandler {
	return &APIKeyHandler{db: db, authHandler: authHandler}
}

type CreateAPIKeyInput struct {
	auth.AuthInput
	Body struct {
		Name      string `json:"name" minLength:"1" doc:"What the key is used for, e.g. the export script"`
		ValidDays int    `json:"valid_days,omitempty" minimum:"0" maximum:"3650" doc:"Days until the key expires, 0 for no expiry"`
	}
}

type APIKeyResponse struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key,omitempty" doc:"Only returned when the key is created"`
	Hint       string     `json:"hint"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

func newAPIKeyResponse(k models.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		Hint:       k.Hint,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		LastUsedAt: k.LastUsedAt,
	}
}

// keyHint keeps the prefix and the last four characters of a key.
func keyHint(key string) string {
	if len(key) <= len(apiKeyPrefix)+4 {
		return key
	}
	return apiKeyPrefix + "..." + key[len(key)-4:]
}

type CreateAPIKeyOutput struct {
	Body APIKeyResponse
}

// HandleCreate issues a new key. The plain key is only returned here.
func (h *APIKeyHandler) HandleCreate(ctx context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	keyBytes := make([]byte, 24)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate key")
	}
	key := apiKeyPrefix + hex.EncodeToString(keyBytes)

	apiKey := models.APIKey{
		AdminID: adminID,
		KeyHash: auth.HashAPIKey(key),
		Hint:    keyHint(key),
		Name:    input.Body.Name,
	}
	if input.Body.ValidDays > 0 {
		expires := time.Now().UTC().AddDate(0, 0, input.Body.ValidDays)
		apiKey.ExpiresAt = &expires
	}

	if err := h.db.WithContext(ctx).Omit("Admin").Create(&apiKey).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create API key")
	}

	resp := newAPIKeyResponse(apiKey)
	resp.Key = key
	return &CreateAPIKeyOutput{Body: resp}, nil
}

type ListAPIKeysOutput struct {
	Body []APIKeyResponse
}

func (h *APIKeyHandler) HandleList(ctx context.Context, input *auth.AuthInput) (*ListAPIKeysOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, *input)
	if err != nil {
		return nil, err
	}

	var apiKeys []models.APIKey
	if err := h.db.WithContext(ctx).Where("admin_id = ?", adminID).Order("id ASC").Find(&apiKeys).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list API keys")
	}

	response := make([]APIKeyResponse, 0, len(apiKeys))
	for _, k := range apiKeys {
		response = append(response, newAPIKeyResponse(k))
	}
	return &ListAPIKeysOutput{Body: response}, nil
}

type DeleteAPIKeyInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

// HandleDelete revokes a key of the current admin.
func (h *APIKeyHandler) HandleDelete(ctx context.Context, input *DeleteAPIKeyInput) (*struct{}, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	result := h.db.WithContext(ctx).Where("id = ? AND admin_id = ?", input.ID, adminID).Delete(&models.APIKey{})
	if result.Error != nil {
		return nil, huma.Error500InternalServerError("Failed to delete API key")
	}
	if result.RowsAffected == 0 {
		return nil, huma.Error404NotFound("API key not found")
	}
	return nil, nil
}
