package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey grants scripted access to the admin API of one admin. Only the
// SHA-256 digest of the key is stored.
type APIKey struct {
	gorm.Model
	AdminID    uint       `json:"admin_id" gorm:"index"`
	Admin      Admin      `json:"-"`
	KeyHash    string     `json:"-" gorm:"uniqueIndex;size:64"`
	Hint       string     `json:"hint"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
