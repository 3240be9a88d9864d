package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Claim states. A claim starts in StatusToCalculate, moves to
// StatusPending once an amount has been computed, and then walks the
// approval and payment steps. StatusPaid is terminal.
const (
	StatusToCalculate = "to_calculate"
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusPaid        = "paid"
)

type RebateClaim struct {
	ID                  int64           `json:"id" gorm:"primaryKey"`
	UUID                uuid.UUID       `json:"uuid" gorm:"type:uuid;not null;uniqueIndex"`
	AgreementID         int64           `json:"agreement_id" gorm:"not null;uniqueIndex:ux_rebate_claims_period,priority:1"`
	ProductID           int64           `json:"product_id" gorm:"not null;uniqueIndex:ux_rebate_claims_period,priority:2"`
	PeriodStart         time.Time       `json:"period_start" gorm:"type:date;not null;uniqueIndex:ux_rebate_claims_period,priority:3"`
	PeriodEnd           time.Time       `json:"period_end" gorm:"type:date;not null;uniqueIndex:ux_rebate_claims_period,priority:4"`
	QuantityAccumulated decimal.Decimal `json:"quantity_accumulated" gorm:"type:decimal(18,4);not null"`
	AmountAccumulated   decimal.Decimal `json:"amount_accumulated" gorm:"type:decimal(18,4);not null"`
	RebateAmount        decimal.Decimal `json:"rebate_amount" gorm:"type:decimal(18,4);not null"`
	Status              string          `json:"status" gorm:"type:text;not null;default:'to_calculate';index"`
	Orphaned            bool            `json:"orphaned" gorm:"not null;default:false"`
	CalculatedAt        *time.Time      `json:"calculated_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RebateClaim) TableName() string { return "rebate_claims" }
