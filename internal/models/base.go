package models

import (
	"time"

	"gorm.io/gorm"
)

// Base is the base model for all entities.
type Base struct {
	ID        uint           `json:"id"         gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}
