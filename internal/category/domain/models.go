package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category levels form a fixed three level hierarchy. A class contains
// types, a type contains categories, and only categories carry products
// directly.
const (
	LevelClass    = "class"
	LevelType     = "type"
	LevelCategory = "category"
)

type Category struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UUID      uuid.UUID `json:"uuid" gorm:"type:uuid;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Level     string    `json:"level" gorm:"type:text;not null"`
	ParentID  *int64    `json:"parent_id,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Category) TableName() string { return "categories" }

// ChildLevel returns the level expected of a category's children, or
// empty when the level is a leaf.
func ChildLevel(level string) string {
	switch level {
	case LevelClass:
		return LevelType
	case LevelType:
		return LevelCategory
	default:
		return ""
	}
}
