package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CustomFieldType string

const (
	CustomFieldInput    CustomFieldType = "input"
	CustomFieldTextarea CustomFieldType = "textarea"
	CustomFieldDate     CustomFieldType = "date"
	CustomFieldCheckbox CustomFieldType = "checkbox"
	CustomFieldRadio    CustomFieldType = "radio"
)

func (t CustomFieldType) Valid() bool {
	switch t {
	case CustomFieldInput, CustomFieldTextarea, CustomFieldDate, CustomFieldCheckbox, CustomFieldRadio:
		return true
	}
	return false
}

// HasOptions reports whether the type renders a list of choices.
func (t CustomFieldType) HasOptions() bool {
	return t == CustomFieldCheckbox || t == CustomFieldRadio
}

// CustomField is an extra question an admin attaches to an event's form.
type CustomField struct {
	gorm.Model
	EventID  uint                        `json:"event_id" gorm:"index"`
	Type     CustomFieldType             `json:"type"`
	Title    string                      `json:"title"`
	Options  datatypes.JSONSlice[string] `json:"options"`
	Optional bool                        `json:"optional"`
	Position int                         `json:"position"`
}
