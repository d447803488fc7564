package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruestzeit/anmeldung/internal/form"
	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/ruestzeit/anmeldung/internal/registration"
)

type EventSummary struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	DateFrom    *time.Time       `json:"date_from,omitempty"`
	DateTo      *time.Time       `json:"date_to,omitempty"`
	Location    *models.Location `json:"location,omitempty"`
	FlyerURL    string           `json:"flyer_url,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Full        bool             `json:"full" doc:"New registrations go to the waitlist"`
}

func newEventSummary(e *models.Event) EventSummary {
	s := EventSummary{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		FlyerURL:    e.FlyerURL,
		ImageURL:    e.ImageURL,
		Full:        e.IsFull(int64(e.MemberCount)),
	}
	if e.ShowDates {
		s.DateFrom = e.DateFrom
		s.DateTo = e.DateTo
	}
	if e.ShowLocation {
		s.Location = e.Location
	}
	return s
}

type FormInput struct {
	Password string `query:"pw" doc:"Event password or bypass token"`
}

type FormOutput struct {
	Body struct {
		Event  EventSummary `json:"event"`
		Open   bool         `json:"open"`
		Fields []form.Field `json:"fields"`
	}
}

func (h *PublicHandler) apiCurrentEvent(ctx context.Context) (*models.Event, error) {
	event, err := h.service.CurrentEvent(ctx, h.now())
	if errors.Is(err, registration.ErrNoEvent) {
		return nil, huma.Error404NotFound(msgNoEvent)
	}
	if err != nil {
		log.Printf("Failed to load current event: %v", err)
		return nil, huma.Error500InternalServerError(msgUnavailable)
	}
	return event, nil
}

// HandleGetForm describes the form of the current event.
func (h *PublicHandler) HandleGetForm(ctx context.Context, input *FormInput) (*FormOutput, error) {
	event, err := h.apiCurrentEvent(ctx)
	if err != nil {
		return nil, err
	}

	out := &FormOutput{}
	out.Body.Event = newEventSummary(event)
	out.Body.Open = registration.Gate(event, input.Password, h.now(), h.bypassToken).Open
	out.Body.Fields = h.service.Schema(event).Fields
	return out, nil
}

type SubmitRegistrationInput struct {
	Password string `query:"pw" doc:"Event password or bypass token"`
	Body     struct {
		Fields map[string]interface{} `json:"fields" doc:"Form values keyed by field key"`
	}
}

type SubmitRegistrationOutput struct {
	Body struct {
		ID       uint                      `json:"id"`
		Position int                       `json:"position"`
		Status   models.RegistrationStatus `json:"status"`
	}
}

// formValues flattens JSON field values into form values.
func formValues(fields map[string]interface{}) url.Values {
	values := url.Values{}
	for key, raw := range fields {
		switch v := raw.(type) {
		case nil:
		case string:
			values.Set(key, v)
		case bool:
			if v {
				values.Set(key, "1")
			}
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		case []interface{}:
			for _, item := range v {
				values.Add(key, fmt.Sprint(item))
			}
		default:
			values.Set(key, fmt.Sprint(v))
		}
	}
	return values
}

func (h *PublicHandler) HandleSubmitRegistration(ctx context.Context, input *SubmitRegistrationInput) (*SubmitRegistrationOutput, error) {
	event, err := h.apiCurrentEvent(ctx)
	if err != nil {
		return nil, err
	}

	if !registration.Gate(event, input.Password, h.now(), h.bypassToken).Open {
		return nil, huma.Error403Forbidden(msgClosed)
	}

	values := formValues(input.Body.Fields)
	if values.Get(form.KeyEvent) == "" {
		values.Set(form.KeyEvent, strconv.FormatUint(uint64(event.ID), 10))
	}

	reg, err := h.service.Submit(ctx, event.ID, values)
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		details := make([]error, 0, len(keys))
		for _, k := range keys {
			details = append(details, &huma.ErrorDetail{
				Location: "body.fields." + k,
				Message:  verr.Fields[k],
				Value:    input.Body.Fields[k],
			})
		}
		return nil, huma.Error422UnprocessableEntity("Validation failed", details...)
	case err != nil:
		log.Printf("Failed to submit registration for event %d: %v", event.ID, err)
		return nil, huma.Error500InternalServerError(msgFailed)
	}

	out := &SubmitRegistrationOutput{}
	out.Body.ID = reg.ID
	out.Body.Position = reg.RegistrationPosition
	out.Body.Status = reg.Status
	return out, nil
}
