package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RegistrationStatus string

const (
	StatusActive   RegistrationStatus = "active"
	StatusWaitlist RegistrationStatus = "waitlist"
)

type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
	RoomMulti  RoomType = "multi"
)

var RoomTypes = []RoomType{RoomSingle, RoomDouble, RoomMulti}

type MealType string

const (
	MealOmnivore   MealType = "omnivore"
	MealVegetarian MealType = "vegetarian"
	MealVegan      MealType = "vegan"
)

var MealTypes = []MealType{MealOmnivore, MealVegetarian, MealVegan}

type RegistrationFields struct {
	Firstname       string             `json:"firstname"`
	Lastname        string             `json:"lastname"`
	Phone           string             `json:"phone"`
	Email           string             `json:"email"`
	PostalCode      string             `json:"postalcode"`
	City            string             `json:"city"`
	Address         string             `json:"address"`
	Birthdate       *time.Time         `json:"birthdate"`
	SchoolClass     string             `json:"schoolclass"`
	RoomRequest     RoomType           `json:"room_request"`
	Roommate        string             `json:"roommate"`
	Referer         string             `json:"referer"`
	MealType        MealType           `json:"mealtype"`
	AdditionalData1 string             `json:"additional_data1"`
	Notes           string             `json:"notes" gorm:"not null;default:''"`
	DsgvoAgree      bool               `json:"dsgvo_agree"`
	AgbAgree        bool               `json:"agb_agree"`
	Landkreis       *string            `json:"landkreis" gorm:"index"`
	Status          RegistrationStatus `json:"status" gorm:"index"`
	CustomFieldData datatypes.JSONMap  `json:"custom_fields"`
}

// Registration is one participant's submission ("Anmeldung") for an event.
type Registration struct {
	gorm.Model
	EventID              uint  `json:"event_id" gorm:"uniqueIndex:idx_event_position"`
	Event                Event `json:"-"`
	RegistrationPosition int   `json:"registration_position" gorm:"uniqueIndex:idx_event_position"`
	RegistrationFields   `gorm:"embedded"`
}
