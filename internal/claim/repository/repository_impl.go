package repository

import (
	"context"
	"errors"
	"time"

	"github.com/harborline/catalog/internal/claim/domain"
	"github.com/harborline/catalog/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, claim *domain.RebateClaim) error {
	return db.WithContext(ctx).Create(claim).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64, opts ...option.QueryOption) (*domain.RebateClaim, error) {
	stmt := db.WithContext(ctx)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var claim domain.RebateClaim
	err := stmt.Where("id = ?", id).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, agreementID, productID int64, periodStart, periodEnd time.Time, opts ...option.QueryOption) (*domain.RebateClaim, error) {
	stmt := db.WithContext(ctx)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var claim domain.RebateClaim
	err := stmt.
		Where("agreement_id = ? AND product_id = ? AND period_start = ? AND period_end = ?",
			agreementID, productID, periodStart, periodEnd).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.RebateClaim, error) {
	stmt := db.WithContext(ctx).Model(&domain.RebateClaim{})

	if filter.AgreementID != nil {
		stmt = stmt.Where("agreement_id = ?", *filter.AgreementID)
	}
	if filter.ProductID != nil {
		stmt = stmt.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"period_start": true,
		"period_end":   true,
	})).Apply(stmt)

	var claims []domain.RebateClaim
	if err := stmt.Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, claim *domain.RebateClaim) error {
	if claim == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(claim).Error
}
