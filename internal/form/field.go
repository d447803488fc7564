// Package form assembles the registration form of an event from its configuration
// and validates submitted values against it.
package form

import (
	"strconv"

	"github.com/ruestzeit/anmeldung/internal/i18n"
)

type ValueType string

const (
	TypeText        ValueType = "text"
	TypeEmail       ValueType = "email"
	TypePhone       ValueType = "phone"
	TypeTextarea    ValueType = "textarea"
	TypeDate        ValueType = "date"
	TypeChoice      ValueType = "choice"
	TypeMultiChoice ValueType = "multichoice"
	TypeConsent     ValueType = "consent"
)

const (
	KeyEvent           = "event"
	KeyFirstname       = "firstname"
	KeyLastname        = "lastname"
	KeyPhone           = "phone"
	KeyEmail           = "email"
	KeyPostalCode      = "postalcode"
	KeyCity            = "city"
	KeyAddress         = "address"
	KeyBirthdate       = "birthdate"
	KeySchoolClass     = "schoolclass"
	KeyRoomRequest     = "roomRequest"
	KeyRoommate        = "roommate"
	KeyReferer         = "referer"
	KeyMealType        = "mealtype"
	KeyAdditionalData1 = "additional_data1"
	KeyNotes           = "notes"
	KeyDsgvoAgree      = "dsgvo_agree"
	KeyAgbAgree        = "agb_agree"

	customFieldPrefix = "custom_field_"
)

// CustomFieldKey is the form key of the custom field with the given id.
func CustomFieldKey(id uint) string {
	return customFieldPrefix + strconv.FormatUint(uint64(id), 10)
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one input of the registration form.
type Field struct {
	Key           string    `json:"key"`
	Type          ValueType `json:"type"`
	Required      bool      `json:"required"`
	Label         string    `json:"label"`
	Help          string    `json:"help,omitempty"`
	Options       []Option  `json:"options,omitempty"`
	CustomFieldID uint      `json:"custom_field_id,omitempty"`
}

func (f Field) hasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Schema is the ordered field list of one event's form.
type Schema struct {
	EventID uint
	Fields  []Field

	tr i18n.Translator
}

// Keys returns the field keys in form order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
