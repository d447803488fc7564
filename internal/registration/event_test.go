package registration

import (
	"context"
	"testing"
	"time"

	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestCurrentEvent_PrefersLatestOpenRegistration(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	createEvent(t, db, models.Event{
		Title:             "Osterrüstzeit",
		RegistrationStart: ptr(now.Add(-48 * time.Hour)),
		DateFrom:          ptr(now.AddDate(0, 1, 0)),
	})
	want := createEvent(t, db, models.Event{
		Title:             "Sommerrüstzeit",
		RegistrationStart: ptr(now.Add(-time.Hour)),
		DateFrom:          ptr(now.AddDate(0, 4, 0)),
	})
	createEvent(t, db, models.Event{
		Title:             "Herbstrüstzeit",
		RegistrationStart: ptr(now.Add(24 * time.Hour)),
		DateFrom:          ptr(now.AddDate(0, 7, 0)),
	})
	createEvent(t, db, models.Event{
		Title:             "Winterrüstzeit",
		RegistrationStart: ptr(now.AddDate(0, -3, 0)),
		DateFrom:          ptr(now.AddDate(0, 0, -5)),
	})

	event, err := svc.CurrentEvent(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, want.ID, event.ID)
}

func TestCurrentEvent_FallsBackToNewest(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	createEvent(t, db, models.Event{Title: "Alt", RegistrationStart: ptr(now.AddDate(0, 1, 0))})
	newest := createEvent(t, db, models.Event{Title: "Neu", RegistrationStart: ptr(now.AddDate(0, 2, 0))})

	event, err := svc.CurrentEvent(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, event.ID)
}

func TestCurrentEvent_NoEvent(t *testing.T) {
	svc := NewService(newTestDB(t))

	_, err := svc.CurrentEvent(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrNoEvent)
}

func TestCurrentEvent_LoadsCustomFieldsInOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	event := createEvent(t, db, models.Event{})

	require.NoError(t, db.Create(&models.CustomField{EventID: event.ID, Type: models.CustomFieldInput, Title: "Zweites", Position: 2}).Error)
	require.NoError(t, db.Create(&models.CustomField{EventID: event.ID, Type: models.CustomFieldInput, Title: "Erstes", Position: 1}).Error)

	loaded, err := svc.CurrentEvent(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, loaded.CustomFields, 2)
	assert.Equal(t, "Erstes", loaded.CustomFields[0].Title)
	assert.Equal(t, "Zweites", loaded.CustomFields[1].Title)
}

func TestGate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		event    models.Event
		password string
		want     Access
	}{
		{
			name:  "active without start",
			event: models.Event{RegistrationActive: true},
			want:  Access{Open: true},
		},
		{
			name:  "active and started",
			event: models.Event{RegistrationActive: true, RegistrationStart: ptr(now.Add(-time.Minute))},
			want:  Access{Open: true},
		},
		{
			name:  "active but not started",
			event: models.Event{RegistrationActive: true, RegistrationStart: ptr(now.Add(time.Minute))},
			want:  Access{},
		},
		{
			name:  "inactive",
			event: models.Event{RegistrationActive: false},
			want:  Access{},
		},
		{
			name:     "event password",
			event:    models.Event{Password: "geheim"},
			password: "geheim",
			want:     Access{Open: true, Bypass: true},
		},
		{
			name:     "wrong password",
			event:    models.Event{Password: "geheim"},
			password: "falsch",
			want:     Access{},
		},
		{
			name:     "global token",
			event:    models.Event{},
			password: "token",
			want:     Access{Open: true, Bypass: true},
		},
		{
			name:     "empty password does not match empty event password",
			event:    models.Event{},
			password: "",
			want:     Access{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Gate(&tt.event, tt.password, now, "token"))
		})
	}
}
