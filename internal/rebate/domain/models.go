package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeVendor   = "vendor"
	TypeCustomer = "customer"

	BasisQuantity = "quantity"
	BasisAmount   = "amount"

	RatePercentage = "percentage"
	RatePerUnit    = "per_unit"
	RateFixed      = "fixed"

	FrequencyInvoice   = "invoice"
	FrequencyDaily     = "daily"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"

	StatusActive  = "active"
	StatusExpired = "expired"
)

// RebateAgreement is a rebate program between the operator and a party.
// Vendor agreements are rebates paid by a vendor to the operator, customer
// agreements are paid by the operator to a customer.
type RebateAgreement struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	UUID             uuid.UUID `json:"uuid" gorm:"type:uuid;not null;uniqueIndex"`
	AgreementType    string    `json:"agreement_type" gorm:"type:text;not null;index:idx_rebate_agreements_party,priority:2"`
	PartyID          int64     `json:"party_id" gorm:"not null;index:idx_rebate_agreements_party,priority:1"`
	Description      string    `json:"description" gorm:"type:text;not null;default:''"`
	StartDate        time.Time `json:"start_date" gorm:"column:valid_from;type:date;not null"`
	EndDate          time.Time `json:"end_date" gorm:"column:valid_to;type:date;not null"`
	CalcFrequency    string    `json:"calc_frequency" gorm:"column:calculation_frequency;type:text;not null"`
	Basis            string    `json:"basis" gorm:"type:text;not null"`
	RateType         string    `json:"rate_type" gorm:"type:text;not null"`
	ApprovalRequired bool      `json:"approval_required" gorm:"not null;default:false"`
	Status           string    `json:"status" gorm:"type:text;not null;default:'active';index"`
	CreatedAt        time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Tiers        []RebateTier             `json:"tiers" gorm:"foreignKey:AgreementID"`
	Associations []RebateAgreementProduct `json:"associations" gorm:"foreignKey:AgreementID"`
}

func (RebateAgreement) TableName() string { return "rebate_agreements" }

// RebateTier is one range of an agreement's basis with its own rate. The
// range lives in the quantity columns or the amount columns depending on
// the owning agreement's basis; the unused pair stays null. A nil upper
// bound means the tier is open ended.
type RebateTier struct {
	ID            int64            `json:"id" gorm:"primaryKey"`
	AgreementID   int64            `json:"agreement_id" gorm:"not null;index"`
	AgreementUUID uuid.UUID        `json:"agreement_uuid" gorm:"type:uuid;not null"`
	FromQuantity  *decimal.Decimal `json:"from_quantity,omitempty" gorm:"type:decimal(18,4)"`
	ToQuantity    *decimal.Decimal `json:"to_quantity,omitempty" gorm:"type:decimal(18,4)"`
	FromAmount    *decimal.Decimal `json:"from_amount,omitempty" gorm:"type:decimal(18,4)"`
	ToAmount      *decimal.Decimal `json:"to_amount,omitempty" gorm:"type:decimal(18,4)"`
	RebateValue   decimal.Decimal  `json:"rebate_value" gorm:"type:decimal(18,4);not null"`
	RebateUnit    string           `json:"rebate_unit" gorm:"type:text;not null"`
	Position      int              `json:"position" gorm:"not null;default:0"`
}

func (RebateTier) TableName() string { return "rebate_tiers" }

// From returns the tier's lower bound for the given basis.
func (t RebateTier) From(basis string) *decimal.Decimal {
	if basis == BasisAmount {
		return t.FromAmount
	}
	return t.FromQuantity
}

// To returns the tier's upper bound for the given basis, nil when open
// ended.
func (t RebateTier) To(basis string) *decimal.Decimal {
	if basis == BasisAmount {
		return t.ToAmount
	}
	return t.ToQuantity
}

// RebateAgreementProduct scopes an agreement to a product or to every
// product under a category. Exactly one of ProductID and CategoryID is
// set.
type RebateAgreementProduct struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	AgreementID int64  `json:"agreement_id" gorm:"not null;index"`
	ProductID   *int64 `json:"product_id,omitempty" gorm:"index"`
	CategoryID  *int64 `json:"category_id,omitempty" gorm:"index"`
}

func (RebateAgreementProduct) TableName() string { return "rebate_agreement_products" }
