package handlers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/ruestzeit/anmeldung/internal/registration"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationHandler serves the admin views of the registrations of an event.
type RegistrationHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
	service     *registration.Service
}

func NewRegistrationHandler(db *gorm.DB, authHandler *auth.AuthHandler, service *registration.Service) *RegistrationHandler {
	return &RegistrationHandler{db: db, authHandler: authHandler, service: service}
}

// RegistrationFilter narrows the registration list of an event.
type RegistrationFilter struct {
	Status      string   `query:"status" enum:"active,waitlist" doc:"Only registrations with this status"`
	Landkreis   []string `query:"landkreis,explode" doc:"Regions to include or exclude"`
	LandkreisOp string   `query:"landkreis_op" enum:"in,not_in" default:"in" doc:"not_in also matches registrations without region"`
}

func (f RegistrationFilter) scope(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var regions []string
	for _, l := range f.Landkreis {
		if l = strings.TrimSpace(l); l != "" {
			regions = append(regions, l)
		}
	}
	if len(regions) > 0 {
		if f.LandkreisOp == "not_in" {
			q = q.Where("landkreis IS NULL OR landkreis NOT IN ?", regions)
		} else {
			q = q.Where("landkreis IN ?", regions)
		}
	}
	return q
}

func (h *RegistrationHandler) list(ctx context.Context, eventID uint, filter RegistrationFilter) ([]models.Registration, error) {
	registrations := []models.Registration{}
	err := filter.scope(h.db.WithContext(ctx).Where("event_id = ?", eventID)).
		Order("registration_position ASC").
		Find(&registrations).Error
	return registrations, err
}

type ListRegistrationsInput struct {
	auth.AuthInput
	ID uint `path:"id"`
	RegistrationFilter
}

type ListRegistrationsOutput struct {
	Body []models.Registration
}

func (h *RegistrationHandler) HandleList(ctx context.Context, input *ListRegistrationsInput) (*ListRegistrationsOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if _, err := ownedEvent(ctx, h.db, adminID, input.ID); err != nil {
		return nil, err
	}

	registrations, err := h.list(ctx, input.ID, input.RegistrationFilter)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list registrations")
	}
	return &ListRegistrationsOutput{Body: registrations}, nil
}

// ownedRegistration loads a registration whose event belongs to adminID.
func (h *RegistrationHandler) ownedRegistration(ctx context.Context, adminID, id uint) (*models.Registration, error) {
	var reg models.Registration
	err := h.db.WithContext(ctx).
		Joins("JOIN events ON events.id = registrations.event_id AND events.deleted_at IS NULL").
		Where("events.admin_id = ?", adminID).
		First(&reg, "registrations.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Registration not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load registration")
	}
	return &reg, nil
}

type RegistrationIDInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

type RegistrationOutput struct {
	Body models.Registration
}

func (h *RegistrationHandler) HandleGet(ctx context.Context, input *RegistrationIDInput) (*RegistrationOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	reg, err := h.ownedRegistration(ctx, adminID, input.ID)
	if err != nil {
		return nil, err
	}
	return &RegistrationOutput{Body: *reg}, nil
}

type UpdateRegistrationInput struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Firstname       *string                    `json:"firstname,omitempty" maxLength:"255"`
		Lastname        *string                    `json:"lastname,omitempty" maxLength:"255"`
		Phone           *string                    `json:"phone,omitempty" maxLength:"255"`
		Email           *string                    `json:"email,omitempty" maxLength:"255"`
		PostalCode      *string                    `json:"postalcode,omitempty" maxLength:"255"`
		City            *string                    `json:"city,omitempty" maxLength:"255"`
		Address         *string                    `json:"address,omitempty" maxLength:"255"`
		Birthdate       *time.Time                 `json:"birthdate,omitempty"`
		SchoolClass     *string                    `json:"schoolclass,omitempty" maxLength:"255"`
		RoomRequest     *models.RoomType           `json:"room_request,omitempty" enum:"single,double,multi"`
		Roommate        *string                    `json:"roommate,omitempty" maxLength:"255"`
		Referer         *string                    `json:"referer,omitempty" maxLength:"255"`
		MealType        *models.MealType           `json:"mealtype,omitempty" enum:"omnivore,vegetarian,vegan"`
		AdditionalData1 *string                    `json:"additional_data1,omitempty" maxLength:"255"`
		Notes           *string                    `json:"notes,omitempty" maxLength:"5000"`
		Landkreis       *string                    `json:"landkreis,omitempty" maxLength:"255"`
		Status          *models.RegistrationStatus `json:"status,omitempty" enum:"active,waitlist"`
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// HandleUpdate edits a registration and keeps a snapshot of the new state.
func (h *RegistrationHandler) HandleUpdate(ctx context.Context, input *UpdateRegistrationInput) (*RegistrationOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	reg, err := h.ownedRegistration(ctx, adminID, input.ID)
	if err != nil {
		return nil, err
	}

	b := input.Body
	setString(&reg.Firstname, b.Firstname)
	setString(&reg.Lastname, b.Lastname)
	setString(&reg.Phone, b.Phone)
	setString(&reg.Email, b.Email)
	setString(&reg.PostalCode, b.PostalCode)
	setString(&reg.City, b.City)
	setString(&reg.Address, b.Address)
	setString(&reg.SchoolClass, b.SchoolClass)
	setString(&reg.Roommate, b.Roommate)
	setString(&reg.Referer, b.Referer)
	setString(&reg.AdditionalData1, b.AdditionalData1)
	setString(&reg.Notes, b.Notes)
	if b.Birthdate != nil {
		reg.Birthdate = utc(b.Birthdate)
	}
	if b.RoomRequest != nil {
		reg.RoomRequest = *b.RoomRequest
	}
	if b.MealType != nil {
		reg.MealType = *b.MealType
	}
	if b.Landkreis != nil {
		if l := strings.TrimSpace(*b.Landkreis); l != "" {
			reg.Landkreis = &l
		} else {
			reg.Landkreis = nil
		}
	}
	statusChanged := b.Status != nil && *b.Status != reg.Status
	if b.Status != nil {
		reg.Status = *b.Status
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(reg).Error; err != nil {
			return err
		}

		// Save history snapshot
		history := models.RegistrationHistory{
			RegistrationID:     reg.ID,
			EventID:            reg.EventID,
			ChangedByID:        adminID,
			RegistrationFields: reg.RegistrationFields,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to update registration")
	}

	if statusChanged {
		if _, err := h.service.RefreshMemberCount(ctx, reg.EventID); err != nil {
			log.Printf("Failed to refresh member count of event %d: %v", reg.EventID, err)
		}
	}
	return &RegistrationOutput{Body: *reg}, nil
}

func (h *RegistrationHandler) HandleDelete(ctx context.Context, input *RegistrationIDInput) (*struct{}, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	reg, err := h.ownedRegistration(ctx, adminID, input.ID)
	if err != nil {
		return nil, err
	}

	if err := h.db.WithContext(ctx).Delete(reg).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete registration")
	}
	if _, err := h.service.RefreshMemberCount(ctx, reg.EventID); err != nil {
		log.Printf("Failed to refresh member count of event %d: %v", reg.EventID, err)
	}
	return nil, nil
}

type HistoryOutput struct {
	Body []models.RegistrationHistory
}

func (h *RegistrationHandler) HandleHistory(ctx context.Context, input *RegistrationIDInput) (*HistoryOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if _, err := h.ownedRegistration(ctx, adminID, input.ID); err != nil {
		return nil, err
	}

	history := []models.RegistrationHistory{}
	if err := h.db.WithContext(ctx).Where("registration_id = ?", input.ID).Order("id ASC").Find(&history).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to fetch history")
	}
	return &HistoryOutput{Body: history}, nil
}
