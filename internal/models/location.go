package models

import (
	"gorm.io/gorm"
)

type Location struct {
	gorm.Model
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}
