package domain

import (
	"context"
	"time"

	"github.com/harborline/catalog/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, claim *RebateClaim) error
	FindByID(ctx context.Context, db *gorm.DB, id int64, opts ...option.QueryOption) (*RebateClaim, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, agreementID, productID int64, periodStart, periodEnd time.Time, opts ...option.QueryOption) (*RebateClaim, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]RebateClaim, error)
	Update(ctx context.Context, db *gorm.DB, claim *RebateClaim) error
}

type ListFilter struct {
	AgreementID *int64
	ProductID   *int64
	Status      string
	SortBy      string
	OrderBy     string
}
