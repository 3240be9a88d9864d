package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	GetByUUID(ctx context.Context, id string) (*Response, error)
}

// TierInput defines one tier of a submitted agreement. Bounds are read
// against the agreement's basis.
type TierInput struct {
	From  *decimal.Decimal `json:"from"`
	To    *decimal.Decimal `json:"to"`
	Value decimal.Decimal  `json:"value"`
	Unit  string           `json:"unit"`
}

type CreateRequest struct {
	AgreementType    string      `json:"agreement_type"`
	PartyID          string      `json:"party_id"`
	Description      string      `json:"description"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          time.Time   `json:"end_date"`
	CalcFrequency    string      `json:"calc_frequency"`
	Basis            string      `json:"basis"`
	RateType         string      `json:"rate_type"`
	ApprovalRequired bool        `json:"approval_required"`
	Tiers            []TierInput `json:"tiers"`
	ProductIDs       []string    `json:"product_ids"`
	CategoryIDs      []string    `json:"category_ids"`
}

// UpdateRequest replaces the agreement as a whole. Tiers and associations
// are never patched in place.
type UpdateRequest struct {
	ID               string      `json:"-"`
	AgreementType    string      `json:"agreement_type"`
	PartyID          string      `json:"party_id"`
	Description      string      `json:"description"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          time.Time   `json:"end_date"`
	CalcFrequency    string      `json:"calc_frequency"`
	Basis            string      `json:"basis"`
	RateType         string      `json:"rate_type"`
	ApprovalRequired bool        `json:"approval_required"`
	Tiers            []TierInput `json:"tiers"`
	ProductIDs       []string    `json:"product_ids"`
	CategoryIDs      []string    `json:"category_ids"`
}

type ListRequest struct {
	AgreementType string
	PartyID       string
	Status        string
	SortBy        string
	OrderBy       string
}

type TierResponse struct {
	ID    string           `json:"id"`
	From  *decimal.Decimal `json:"from"`
	To    *decimal.Decimal `json:"to,omitempty"`
	Value decimal.Decimal  `json:"value"`
	Unit  string           `json:"unit"`
}

type Response struct {
	ID               string         `json:"id"`
	UUID             string         `json:"uuid"`
	AgreementType    string         `json:"agreement_type"`
	PartyID          string         `json:"party_id"`
	Description      string         `json:"description,omitempty"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
	CalcFrequency    string         `json:"calc_frequency"`
	Basis            string         `json:"basis"`
	RateType         string         `json:"rate_type"`
	ApprovalRequired bool           `json:"approval_required"`
	Status           string         `json:"status"`
	Tiers            []TierResponse `json:"tiers"`
	ProductIDs       []string       `json:"product_ids"`
	CategoryIDs      []string       `json:"category_ids"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

var (
	ErrInvalidType          = errors.New("invalid_agreement_type")
	ErrInvalidParty         = errors.New("invalid_party")
	ErrInvalidBasis         = errors.New("invalid_basis")
	ErrInvalidRateType      = errors.New("invalid_rate_type")
	ErrInvalidFrequency     = errors.New("invalid_frequency")
	ErrInvalidUnit          = errors.New("invalid_unit")
	ErrInvalidID            = errors.New("invalid_id")
	ErrDateRangeInvalid     = errors.New("date_range_invalid")
	ErrInvalidRange         = errors.New("invalid_range")
	ErrOverlappingTiers     = errors.New("overlapping_tiers")
	ErrOverlappingAgreement = errors.New("overlapping_agreement")
	ErrMissingAssociations  = errors.New("missing_associations")
	ErrNotFound             = errors.New("not_found")
	ErrSubmissionInFlight   = errors.New("submission_in_flight")
)
