package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	// Calculate computes or recomputes the claim for one product and
	// accrual period under an agreement.
	Calculate(ctx context.Context, req CalculateRequest) (*Response, error)

	// Advance moves a claim along the approval and payment workflow.
	Advance(ctx context.Context, req AdvanceRequest) (*Response, error)

	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
}

type CalculateRequest struct {
	AgreementID string          `json:"agreement_id"`
	ProductID   string          `json:"product_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Accumulated decimal.Decimal `json:"accumulated"`
}

type AdvanceRequest struct {
	ID           string `json:"-"`
	TargetStatus string `json:"target_status"`
}

type ListRequest struct {
	AgreementID string
	ProductID   string
	Status      string
	SortBy      string
	OrderBy     string
}

type Response struct {
	ID                  string          `json:"id"`
	UUID                string          `json:"uuid"`
	AgreementID         string          `json:"agreement_id"`
	ProductID           string          `json:"product_id"`
	PeriodStart         time.Time       `json:"period_start"`
	PeriodEnd           time.Time       `json:"period_end"`
	QuantityAccumulated decimal.Decimal `json:"quantity_accumulated"`
	AmountAccumulated   decimal.Decimal `json:"amount_accumulated"`
	RebateAmount        decimal.Decimal `json:"rebate_amount"`
	Status              string          `json:"status"`
	Orphaned            bool            `json:"orphaned,omitempty"`
	CalculatedAt        *time.Time      `json:"calculated_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrNotFound          = errors.New("not_found")
	ErrAgreementNotFound = errors.New("agreement_not_found")
	ErrAgreementInactive = errors.New("agreement_inactive")
	ErrNoTierMatched     = errors.New("no_tier_matched")
	ErrClaimLocked       = errors.New("claim_locked")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrClaimBusy         = errors.New("claim_busy")
)
