package form

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func validValues() url.Values {
	return url.Values{
		KeyEvent:      {"7"},
		KeyFirstname:  {"Maria"},
		KeyLastname:   {"Schneider"},
		KeyPhone:      {"+49 3721 12345"},
		KeyEmail:      {"maria@example.org"},
		KeyNotes:      {""},
		KeyDsgvoAgree: {"1"},
		KeyAgbAgree:   {"on"},
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
	return verr.Fields
}

func TestValidate_Valid(t *testing.T) {
	s := Build(newEvent(), nil)

	sub, err := s.Validate(validValues())
	require.NoError(t, err)

	var r models.Registration
	sub.Apply(&r)

	assert.Equal(t, uint(7), r.EventID)
	assert.Equal(t, "Maria", r.Firstname)
	assert.Equal(t, "Schneider", r.Lastname)
	assert.True(t, r.DsgvoAgree)
	assert.True(t, r.AgbAgree)
	assert.Equal(t, "", r.Notes)
	assert.Nil(t, r.Birthdate)
	assert.Nil(t, r.CustomFieldData)
}

func TestValidate_MissingNotesStoresEmptyString(t *testing.T) {
	s := Build(newEvent(), nil)
	values := validValues()
	values.Del(KeyNotes)

	sub, err := s.Validate(values)
	require.NoError(t, err)

	var r models.Registration
	sub.Apply(&r)
	assert.Equal(t, "", r.Notes)
}

func TestValidate_ConsentRequired(t *testing.T) {
	s := Build(newEvent(), nil)

	for _, key := range []string{KeyDsgvoAgree, KeyAgbAgree} {
		for _, value := range []string{"", "0", "false", "off"} {
			values := validValues()
			values.Set(key, value)

			_, err := s.Validate(values)
			errs := fieldErrors(t, err)
			assert.Contains(t, errs, key)
			assert.Len(t, errs, 1)
		}

		values := validValues()
		values.Del(key)
		_, err := s.Validate(values)
		assert.Contains(t, fieldErrors(t, err), key)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	s := Build(newEvent(), nil)

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing firstname", KeyFirstname, ""},
		{"whitespace lastname", KeyLastname, "   "},
		{"invalid email", KeyEmail, "maria@"},
		{"invalid phone", KeyPhone, "call me"},
		{"wrong event", KeyEvent, "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validValues()
			values.Set(tt.key, tt.value)

			_, err := s.Validate(values)
			errs := fieldErrors(t, err)
			assert.Len(t, errs, 1)
			assert.NotEmpty(t, errs[tt.key])
		})
	}
}

func TestValidate_ConditionalFields(t *testing.T) {
	e := newEvent()
	e.ShowBirthday = true
	e.ShowMealType = true
	e.ShowRoommate = true
	s := Build(e, nil)

	values := validValues()
	values.Set(KeyBirthdate, "31.02.2010")
	values.Set(KeyMealType, "fish")

	_, err := s.Validate(values)
	errs := fieldErrors(t, err)
	assert.Contains(t, errs, KeyBirthdate)
	assert.Contains(t, errs, KeyMealType)
	assert.NotContains(t, errs, KeyRoommate)

	values.Set(KeyBirthdate, "09.05.2010")
	values.Set(KeyMealType, string(models.MealVegan))

	sub, err := s.Validate(values)
	require.NoError(t, err)

	var r models.Registration
	sub.Apply(&r)
	require.NotNil(t, r.Birthdate)
	assert.Equal(t, time.Date(2010, time.May, 9, 0, 0, 0, 0, time.UTC), *r.Birthdate)
	assert.Equal(t, models.MealVegan, r.MealType)
	assert.Equal(t, "", r.Roommate)
}

func TestValidate_IsoDate(t *testing.T) {
	e := newEvent()
	e.ShowBirthday = true
	s := Build(e, nil)

	values := validValues()
	values.Set(KeyBirthdate, "2010-05-09")

	sub, err := s.Validate(values)
	require.NoError(t, err)
	assert.Equal(t, 2010, sub.Dates[KeyBirthdate].Year())
}

func TestValidate_CustomFields(t *testing.T) {
	e := newEvent()
	e.CustomFields = []models.CustomField{
		{Model: gorm.Model{ID: 3}, Type: models.CustomFieldCheckbox, Title: "Workshops", Options: []string{"A", "B"}},
		{Model: gorm.Model{ID: 4}, Type: models.CustomFieldRadio, Title: "Anreise", Options: []string{"Bus", "Auto"}, Optional: true},
		{Model: gorm.Model{ID: 5}, Type: models.CustomFieldDate, Title: "Anreisetag"},
		{Model: gorm.Model{ID: 6}, Type: models.CustomFieldInput, Title: "T-Shirt", Optional: true},
	}
	s := Build(e, nil)

	values := validValues()
	_, err := s.Validate(values)
	errs := fieldErrors(t, err)
	assert.Contains(t, errs, "custom_field_3")
	assert.Contains(t, errs, "custom_field_5")
	assert.NotContains(t, errs, "custom_field_4")
	assert.NotContains(t, errs, "custom_field_6")

	values["custom_field_3"] = []string{"A", "C"}
	values.Set("custom_field_5", "01.08.2026")
	_, err = s.Validate(values)
	assert.Contains(t, fieldErrors(t, err), "custom_field_3")

	values["custom_field_3"] = []string{"A", "B"}
	values.Set("custom_field_4", "Bus")
	sub, err := s.Validate(values)
	require.NoError(t, err)

	var r models.Registration
	sub.Apply(&r)
	assert.Equal(t, []string{"A", "B"}, r.CustomFieldData["3"])
	assert.Equal(t, "Bus", r.CustomFieldData["4"])
	assert.Equal(t, "2026-08-01", r.CustomFieldData["5"])
	assert.Equal(t, "", r.CustomFieldData["6"])
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"lastname": "b", "email": "a"}}
	assert.Equal(t, "validation failed: email: a; lastname: b", err.Error())
}
