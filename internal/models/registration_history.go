package models

import (
	"gorm.io/gorm"
)

// RegistrationHistory is a snapshot of a registration taken whenever an admin edits it.
type RegistrationHistory struct {
	gorm.Model
	RegistrationID     uint `json:"registration_id" gorm:"index"`
	EventID            uint `json:"event_id"`
	ChangedByID        uint `json:"changed_by_id"`
	RegistrationFields `gorm:"embedded"`
}
