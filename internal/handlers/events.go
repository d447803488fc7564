package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/gorm"
)

type EventHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewEventHandler(db *gorm.DB, authHandler *auth.AuthHandler) *EventHandler {
	return &EventHandler{db: db, authHandler: authHandler}
}

// ownedEvent loads an event that belongs to adminID, answering 404 otherwise.
func ownedEvent(ctx context.Context, db *gorm.DB, adminID, eventID uint) (*models.Event, error) {
	var event models.Event
	err := db.WithContext(ctx).Where("admin_id = ?", adminID).First(&event, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Event not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load event")
	}
	return &event, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type EventBody struct {
	Title         string `json:"title" minLength:"1" maxLength:"255" doc:"Public title of the event"`
	InternalTitle string `json:"internal_title,omitempty" maxLength:"255"`
	CaseNumber    string `json:"case_number,omitempty" maxLength:"255"`
	Description   string `json:"description,omitempty"`

	LocationID *uint `json:"location_id,omitempty"`

	DateFrom           *time.Time `json:"date_from,omitempty"`
	DateTo             *time.Time `json:"date_to,omitempty"`
	RegistrationStart  *time.Time `json:"registration_start,omitempty"`
	RegistrationActive bool       `json:"registration_active,omitempty"`

	MemberLimit int `json:"member_limit,omitempty" minimum:"0" doc:"Maximum number of active registrations, 0 for unlimited"`

	FlyerURL string `json:"flyer_url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`

	ShowLocation            bool   `json:"show_location,omitempty"`
	ShowDates               bool   `json:"show_dates,omitempty"`
	AskSchoolClass          bool   `json:"ask_school_class,omitempty"`
	ShowRoomRequest         bool   `json:"show_room_request,omitempty"`
	ShowRoommate            bool   `json:"show_roommate,omitempty"`
	ShowReferer             bool   `json:"show_referer,omitempty"`
	ShowMealType            bool   `json:"show_meal_type,omitempty"`
	ShowRegistrationAddress bool   `json:"show_registration_address,omitempty"`
	ShowBirthday            bool   `json:"show_birthday,omitempty"`
	AdditionalQuestion1     string `json:"additional_question1,omitempty" maxLength:"255"`

	Password string `json:"password,omitempty" doc:"Opens the form before registration starts"`
}

func (b EventBody) apply(e *models.Event) {
	e.Title = strings.TrimSpace(b.Title)
	e.InternalTitle = b.InternalTitle
	e.CaseNumber = b.CaseNumber
	e.Description = b.Description
	e.LocationID = b.LocationID
	e.DateFrom = utc(b.DateFrom)
	e.DateTo = utc(b.DateTo)
	e.RegistrationStart = utc(b.RegistrationStart)
	e.RegistrationActive = b.RegistrationActive
	e.MemberLimit = b.MemberLimit
	e.FlyerURL = b.FlyerURL
	e.ImageURL = b.ImageURL
	e.ShowLocation = b.ShowLocation
	e.ShowDates = b.ShowDates
	e.AskSchoolClass = b.AskSchoolClass
	e.ShowRoomRequest = b.ShowRoomRequest
	e.ShowRoommate = b.ShowRoommate
	e.ShowReferer = b.ShowReferer
	e.ShowMealType = b.ShowMealType
	e.ShowRegistrationAddress = b.ShowRegistrationAddress
	e.ShowBirthday = b.ShowBirthday
	e.AdditionalQuestion1 = b.AdditionalQuestion1
	e.Password = b.Password
}

type EventResponse struct {
	models.Event
	PasswordLink string `json:"password_link,omitempty"`
}

func newEventResponse(e models.Event) EventResponse {
	return EventResponse{Event: e, PasswordLink: e.PasswordLink()}
}

type ListEventsInput struct {
	auth.AuthInput
	Query string `query:"q" doc:"Search in title and description"`
}

type ListEventsOutput struct {
	Body []EventResponse
}

func (h *EventHandler) HandleList(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx).Preload("Location").Where("admin_id = ?", adminID)
	if term := strings.TrimSpace(input.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(internal_title) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}

	var events []models.Event
	if err := q.Order("registration_start DESC").Order("id DESC").Find(&events).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list events")
	}

	response := make([]EventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, newEventResponse(e))
	}
	return &ListEventsOutput{Body: response}, nil
}

type CreateEventInput struct {
	auth.AuthInput
	Body EventBody
}

type EventOutput struct {
	Body EventResponse
}

func (h *EventHandler) checkLocation(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return huma.Error500InternalServerError("Failed to load location")
	}
	if count == 0 {
		return huma.Error422UnprocessableEntity("Unknown location", &huma.ErrorDetail{
			Location: "body.location_id",
			Message:  "location does not exist",
			Value:    *id,
		})
	}
	return nil
}

func (h *EventHandler) HandleCreate(ctx context.Context, input *CreateEventInput) (*EventOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.checkLocation(ctx, input.Body.LocationID); err != nil {
		return nil, err
	}

	event := models.Event{AdminID: adminID}
	input.Body.apply(&event)

	if err := h.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create event")
	}
	return &EventOutput{Body: newEventResponse(event)}, nil
}

type EventIDInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *EventHandler) HandleGet(ctx context.Context, input *EventIDInput) (*EventOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	var event models.Event
	err = h.db.WithContext(ctx).
		Preload("Location").
		Preload("CustomFields", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("admin_id = ?", adminID).
		First(&event, input.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Event not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load event")
	}
	return &EventOutput{Body: newEventResponse(event)}, nil
}

type UpdateEventInput struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body EventBody
}

func (h *EventHandler) HandleUpdate(ctx context.Context, input *UpdateEventInput) (*EventOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	event, err := ownedEvent(ctx, h.db, adminID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := h.checkLocation(ctx, input.Body.LocationID); err != nil {
		return nil, err
	}

	input.Body.apply(event)
	if err := h.db.WithContext(ctx).Omit("CustomFields", "Location", "Admin").Save(event).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to update event")
	}
	return &EventOutput{Body: newEventResponse(*event)}, nil
}

// HandleGeneratePassword replaces the event password with a random one.
func (h *EventHandler) HandleGeneratePassword(ctx context.Context, input *EventIDInput) (*EventOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	event, err := ownedEvent(ctx, h.db, adminID, input.ID)
	if err != nil {
		return nil, err
	}

	event.Password = uuid.NewString()
	if err := h.db.WithContext(ctx).Model(event).Update("password", event.Password).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to update password")
	}
	return &EventOutput{Body: newEventResponse(*event)}, nil
}
