package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CustomFieldHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewCustomFieldHandler(db *gorm.DB, authHandler *auth.AuthHandler) *CustomFieldHandler {
	return &CustomFieldHandler{db: db, authHandler: authHandler}
}

type CustomFieldBody struct {
	Type     models.CustomFieldType `json:"type" enum:"input,textarea,date,checkbox,radio"`
	Title    string                 `json:"title" minLength:"1" maxLength:"255"`
	Options  []string               `json:"options,omitempty" doc:"Choices for checkbox and radio fields"`
	Optional bool                   `json:"optional,omitempty"`
	Position int                    `json:"position,omitempty"`
}

func (b CustomFieldBody) validate() error {
	if !b.Type.Valid() {
		return huma.Error422UnprocessableEntity("Invalid field type", &huma.ErrorDetail{
			Location: "body.type", Message: "unknown field type", Value: b.Type,
		})
	}
	if b.Type.HasOptions() && len(cleanOptions(b.Options)) == 0 {
		return huma.Error422UnprocessableEntity("Options required", &huma.ErrorDetail{
			Location: "body.options", Message: "checkbox and radio fields need at least one option",
		})
	}
	return nil
}

func cleanOptions(options []string) []string {
	var cleaned []string
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	return cleaned
}

func (b CustomFieldBody) apply(cf *models.CustomField) {
	cf.Type = b.Type
	cf.Title = strings.TrimSpace(b.Title)
	cf.Options = nil
	if b.Type.HasOptions() {
		cf.Options = datatypes.JSONSlice[string](cleanOptions(b.Options))
	}
	cf.Optional = b.Optional
	cf.Position = b.Position
}

type ListCustomFieldsOutput struct {
	Body []models.CustomField
}

func (h *CustomFieldHandler) HandleList(ctx context.Context, input *EventIDInput) (*ListCustomFieldsOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if _, err := ownedEvent(ctx, h.db, adminID, input.ID); err != nil {
		return nil, err
	}

	fields := []models.CustomField{}
	if err := h.db.WithContext(ctx).Where("event_id = ?", input.ID).Order("position ASC").Order("id ASC").Find(&fields).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list custom fields")
	}
	return &ListCustomFieldsOutput{Body: fields}, nil
}

type CreateCustomFieldInput struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body CustomFieldBody
}

type CustomFieldOutput struct {
	Body models.CustomField
}

func (h *CustomFieldHandler) HandleCreate(ctx context.Context, input *CreateCustomFieldInput) (*CustomFieldOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if _, err := ownedEvent(ctx, h.db, adminID, input.ID); err != nil {
		return nil, err
	}
	if err := input.Body.validate(); err != nil {
		return nil, err
	}

	cf := models.CustomField{EventID: input.ID}
	input.Body.apply(&cf)
	if err := h.db.WithContext(ctx).Create(&cf).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create custom field")
	}
	return &CustomFieldOutput{Body: cf}, nil
}

// ownedCustomField loads a custom field whose event belongs to adminID.
func (h *CustomFieldHandler) ownedCustomField(ctx context.Context, adminID, id uint) (*models.CustomField, error) {
	var cf models.CustomField
	err := h.db.WithContext(ctx).
		Joins("JOIN events ON events.id = custom_fields.event_id AND events.deleted_at IS NULL").
		Where("events.admin_id = ?", adminID).
		First(&cf, "custom_fields.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Custom field not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load custom field")
	}
	return &cf, nil
}

type UpdateCustomFieldInput struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body CustomFieldBody
}

func (h *CustomFieldHandler) HandleUpdate(ctx context.Context, input *UpdateCustomFieldInput) (*CustomFieldOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	cf, err := h.ownedCustomField(ctx, adminID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := input.Body.validate(); err != nil {
		return nil, err
	}

	input.Body.apply(cf)
	if err := h.db.WithContext(ctx).Save(cf).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to update custom field")
	}
	return &CustomFieldOutput{Body: *cf}, nil
}

type CustomFieldIDInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

// HandleDelete removes the field from the form. Answers already stored in
// registrations are kept.
func (h *CustomFieldHandler) HandleDelete(ctx context.Context, input *CustomFieldIDInput) (*struct{}, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	cf, err := h.ownedCustomField(ctx, adminID, input.ID)
	if err != nil {
		return nil, err
	}

	if err := h.db.WithContext(ctx).Delete(cf).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete custom field")
	}
	return nil, nil
}
