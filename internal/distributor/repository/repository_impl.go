package repository

import (
	"context"
	"errors"

	"github.com/harborline/catalog/internal/distributor/domain"
	"github.com/harborline/catalog/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, distributor *domain.Distributor) error {
	return db.WithContext(ctx).Create(distributor).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Distributor, error) {
	var d domain.Distributor
	err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Distributor, error) {
	var d domain.Distributor
	err := db.WithContext(ctx).Where("code = ?", code).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Distributor, error) {
	var items []domain.Distributor
	stmt := db.WithContext(ctx).Model(&domain.Distributor{})

	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"code":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, distributor *domain.Distributor) error {
	if distributor == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(distributor).Error
}
