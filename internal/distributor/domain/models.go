package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

type Distributor struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UUID         uuid.UUID `json:"uuid" gorm:"type:uuid;not null;uniqueIndex"`
	Code         string    `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	ContactEmail string    `json:"contact_email" gorm:"type:text;not null;default:''"`
	ContactPhone string    `json:"contact_phone" gorm:"type:text;not null;default:''"`
	Status       string    `json:"status" gorm:"type:text;not null;default:'active'"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Distributor) TableName() string { return "distributors" }
