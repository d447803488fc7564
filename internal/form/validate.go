package form

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/datatypes"
)

const (
	maxTextLength     = 255
	maxTextareaLength = 5000
)

var dateLayouts = []string{"2.1.2006", "2006-01-02", time.RFC3339}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()/.\-]{4,29}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidationError maps field keys to the message shown next to the field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Submission holds the values of a form that passed validation.
type Submission struct {
	EventID  uint
	Text     map[string]string
	Dates    map[string]time.Time
	Multi    map[string][]string
	Consents map[string]bool

	fields []Field
}

// Validate checks values against the schema. For each field only the first
// failing check is reported. The returned error is a *ValidationError.
func (s *Schema) Validate(values url.Values) (*Submission, error) {
	sub := &Submission{
		EventID:  s.EventID,
		Text:     map[string]string{},
		Dates:    map[string]time.Time{},
		Multi:    map[string][]string{},
		Consents: map[string]bool{},
		fields:   s.Fields,
	}
	errs := map[string]string{}

	for _, f := range s.Fields {
		if msg := s.validateField(f, values[f.Key], sub); msg != "" {
			errs[f.Key] = msg
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return sub, nil
}

func (s *Schema) validateField(f Field, raw []string, sub *Submission) string {
	switch f.Type {
	case TypeConsent:
		agreed := len(raw) > 0 && truthy(raw[0])
		if f.Required && !agreed {
			return s.tr.Translate("error.consent")
		}
		sub.Consents[f.Key] = agreed
		return ""

	case TypeMultiChoice:
		var selected []string
		for _, v := range raw {
			if v = strings.TrimSpace(v); v != "" {
				selected = append(selected, v)
			}
		}
		if len(selected) == 0 {
			if f.Required {
				return s.tr.Translate("error.required")
			}
			return ""
		}
		for _, v := range selected {
			if !f.hasOption(v) {
				return s.tr.Translate("error.choice")
			}
		}
		sub.Multi[f.Key] = selected
		return ""
	}

	value := ""
	if len(raw) > 0 {
		value = strings.TrimSpace(raw[0])
	}
	if value == "" {
		if f.Required {
			return s.tr.Translate("error.required")
		}
		sub.Text[f.Key] = ""
		return ""
	}

	switch f.Type {
	case TypeText, TypeEmail, TypePhone:
		if utf8.RuneCountInString(value) > maxTextLength {
			return s.tr.Translate("error.length")
		}
	case TypeTextarea:
		if utf8.RuneCountInString(value) > maxTextareaLength {
			return s.tr.Translate("error.length")
		}
	}

	switch f.Type {
	case TypeEmail:
		if err := validate.Var(value, "email"); err != nil {
			return s.tr.Translate("error.email")
		}
	case TypePhone:
		if err := validate.Var(value, "phone"); err != nil {
			return s.tr.Translate("error.phone")
		}
	case TypeDate:
		d, ok := parseDate(value)
		if !ok {
			return s.tr.Translate("error.date")
		}
		sub.Dates[f.Key] = d
		return ""
	case TypeChoice:
		if !f.hasOption(value) {
			if f.Key == KeyEvent {
				return s.tr.Translate("error.event")
			}
			return s.tr.Translate("error.choice")
		}
	}

	sub.Text[f.Key] = value
	return ""
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, value); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes", "ja":
		return true
	}
	return false
}

// Apply copies the submitted values into r. Custom field answers are stored under
// the custom field id.
func (sub *Submission) Apply(r *models.Registration) {
	r.EventID = sub.EventID

	f := &r.RegistrationFields
	f.Firstname = sub.Text[KeyFirstname]
	f.Lastname = sub.Text[KeyLastname]
	f.Phone = sub.Text[KeyPhone]
	f.Email = sub.Text[KeyEmail]
	f.PostalCode = sub.Text[KeyPostalCode]
	f.City = sub.Text[KeyCity]
	f.Address = sub.Text[KeyAddress]
	f.SchoolClass = sub.Text[KeySchoolClass]
	f.RoomRequest = models.RoomType(sub.Text[KeyRoomRequest])
	f.Roommate = sub.Text[KeyRoommate]
	f.Referer = sub.Text[KeyReferer]
	f.MealType = models.MealType(sub.Text[KeyMealType])
	f.AdditionalData1 = sub.Text[KeyAdditionalData1]
	f.Notes = sub.Text[KeyNotes]
	f.DsgvoAgree = sub.Consents[KeyDsgvoAgree]
	f.AgbAgree = sub.Consents[KeyAgbAgree]

	if d, ok := sub.Dates[KeyBirthdate]; ok {
		f.Birthdate = &d
	}

	data := datatypes.JSONMap{}
	for _, field := range sub.fields {
		if field.CustomFieldID == 0 {
			continue
		}
		id := strconv.FormatUint(uint64(field.CustomFieldID), 10)
		switch field.Type {
		case TypeMultiChoice:
			if v, ok := sub.Multi[field.Key]; ok {
				data[id] = v
			} else {
				data[id] = []string{}
			}
		case TypeDate:
			if d, ok := sub.Dates[field.Key]; ok {
				data[id] = d.Format("2006-01-02")
			}
		default:
			data[id] = sub.Text[field.Key]
		}
	}
	if len(data) > 0 {
		f.CustomFieldData = data
	}
}
