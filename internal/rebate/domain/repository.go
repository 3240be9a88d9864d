package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/harborline/catalog/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, agreement *RebateAgreement) error
	FindByID(ctx context.Context, db *gorm.DB, id int64, opts ...option.QueryOption) (*RebateAgreement, error)
	FindByUUID(ctx context.Context, db *gorm.DB, id uuid.UUID, opts ...option.QueryOption) (*RebateAgreement, error)
	FindActiveByParty(ctx context.Context, db *gorm.DB, partyID int64, agreementType string, opts ...option.QueryOption) ([]RebateAgreement, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]RebateAgreement, error)
	Update(ctx context.Context, db *gorm.DB, agreement *RebateAgreement) error
	ReplaceChildren(ctx context.Context, db *gorm.DB, agreement *RebateAgreement) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	OrphanClaims(ctx context.Context, db *gorm.DB, agreementID int64) error
	DeleteClaims(ctx context.Context, db *gorm.DB, agreementID int64) error
}

type ListFilter struct {
	AgreementType string
	PartyID       *int64
	Status        string
	SortBy        string
	OrderBy       string
}
