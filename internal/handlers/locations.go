package handlers

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/gorm"
)

type LocationHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewLocationHandler(db *gorm.DB, authHandler *auth.AuthHandler) *LocationHandler {
	return &LocationHandler{db: db, authHandler: authHandler}
}

type ListLocationsOutput struct {
	Body []models.Location
}

func (h *LocationHandler) HandleList(ctx context.Context, input *auth.AuthInput) (*ListLocationsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, *input); err != nil {
		return nil, err
	}

	locations := []models.Location{}
	if err := h.db.WithContext(ctx).Order("name ASC").Find(&locations).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list locations")
	}
	return &ListLocationsOutput{Body: locations}, nil
}

type CreateLocationInput struct {
	auth.AuthInput
	Body struct {
		Name       string `json:"name" minLength:"1" maxLength:"255"`
		Street     string `json:"street,omitempty" maxLength:"255"`
		PostalCode string `json:"postal_code,omitempty" maxLength:"16"`
		City       string `json:"city,omitempty" maxLength:"255"`
	}
}

type LocationOutput struct {
	Body models.Location
}

func (h *LocationHandler) HandleCreate(ctx context.Context, input *CreateLocationInput) (*LocationOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	location := models.Location{
		Name:       strings.TrimSpace(input.Body.Name),
		Street:     strings.TrimSpace(input.Body.Street),
		PostalCode: strings.TrimSpace(input.Body.PostalCode),
		City:       strings.TrimSpace(input.Body.City),
	}
	if err := h.db.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create location")
	}
	return &LocationOutput{Body: location}, nil
}
