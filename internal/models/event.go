package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Event is one retreat offering ("Rüstzeit") together with the configuration of its
// registration form.
type Event struct {
	gorm.Model
	Title         string `json:"title"`
	InternalTitle string `json:"internal_title"`
	CaseNumber    string `json:"case_number"`
	Description   string `json:"description"`

	LocationID *uint     `json:"location_id"`
	Location   *Location `json:"location,omitempty"`

	DateFrom           *time.Time `json:"date_from"`
	DateTo             *time.Time `json:"date_to"`
	RegistrationStart  *time.Time `json:"registration_start"`
	RegistrationActive bool       `json:"registration_active"`

	// MemberLimit bounds the number of active registrations; zero means unlimited.
	MemberLimit int `json:"member_limit"`
	// MemberCount caches the number of active registrations.
	MemberCount int `json:"member_count"`

	FlyerURL string `json:"flyer_url"`
	ImageURL string `json:"image_url"`

	ShowLocation            bool   `json:"show_location"`
	ShowDates               bool   `json:"show_dates"`
	AskSchoolClass          bool   `json:"ask_school_class"`
	ShowRoomRequest         bool   `json:"show_room_request"`
	ShowRoommate            bool   `json:"show_roommate"`
	ShowReferer             bool   `json:"show_referer"`
	ShowMealType            bool   `json:"show_meal_type"`
	ShowRegistrationAddress bool   `json:"show_registration_address"`
	ShowBirthday            bool   `json:"show_birthday"`
	AdditionalQuestion1     string `json:"additional_question1"`

	Password string `json:"password"`

	AdminID uint   `json:"admin_id" gorm:"index"`
	Admin   *Admin `json:"-"`

	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

func (e Event) HasAdditionalQuestion1() bool {
	return strings.TrimSpace(e.AdditionalQuestion1) != ""
}

// IsFull reports whether activeCount active registrations exhaust the member limit.
func (e Event) IsFull(activeCount int64) bool {
	return e.MemberLimit > 0 && activeCount >= int64(e.MemberLimit)
}

// PasswordLink is the public form URL that bypasses the registration gate.
func (e Event) PasswordLink() string {
	if e.Password == "" {
		return ""
	}
	return "/?pw=" + e.Password
}
