package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

type Product struct {
	ID            int64             `json:"id" gorm:"primaryKey"`
	UUID          uuid.UUID         `json:"uuid" gorm:"type:uuid;not null;uniqueIndex"`
	Code          string            `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name          string            `json:"name" gorm:"type:text;not null"`
	Description   string            `json:"description" gorm:"type:text;not null;default:''"`
	BrandName     string            `json:"brand_name" gorm:"type:text;not null;default:''"`
	DistributorID *int64            `json:"distributor_id,omitempty" gorm:"index"`
	CategoryID    *int64            `json:"category_id,omitempty" gorm:"index"`
	PackSize      string            `json:"pack_size" gorm:"type:text;not null;default:''"`
	EAN           string            `json:"ean" gorm:"column:ean;type:text;not null;default:''"`
	WebHandle     string            `json:"web_handle" gorm:"type:text;not null;uniqueIndex"`
	TradePrice    *decimal.Decimal  `json:"trade_price,omitempty" gorm:"type:decimal(18,4)"`
	RRP           *decimal.Decimal  `json:"rrp,omitempty" gorm:"column:rrp;type:decimal(18,4)"`
	GoPrice       *decimal.Decimal  `json:"go_price,omitempty" gorm:"type:decimal(18,4)"`
	MWP           *decimal.Decimal  `json:"mwp,omitempty" gorm:"column:mwp;type:decimal(18,4)"`
	Status        string            `json:"status" gorm:"type:text;not null;default:'active'"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
