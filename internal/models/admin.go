package models

import (
	"gorm.io/gorm"
)

type Admin struct {
	gorm.Model
	Email        string  `gorm:"uniqueIndex" json:"email"`
	Name         string  `json:"name"`
	PasswordHash string  `json:"-"`
	Events       []Event `gorm:"foreignKey:AdminID" json:"-"`
}
