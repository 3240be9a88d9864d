package repository

import (
	"context"
	"errors"

	"github.com/harborline/catalog/internal/product/domain"
	"github.com/harborline/catalog/pkg/db/option"
	"github.com/harborline/catalog/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Product, error) {
	return r.findOne(ctx, db, "code = ?", code)
}

func (r *repo) FindByHandle(ctx context.Context, db *gorm.DB, handle string) (*domain.Product, error) {
	return r.findOne(ctx, db, "web_handle = ?", handle)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Where(query, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) CountByHandlePrefix(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("web_handle = ? OR web_handle LIKE ?", prefix, prefix+"-%").
		Count(&count).Error
	return count, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})

	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
	}
	if filter.BrandName != "" {
		stmt = stmt.Where("brand_name = ?", filter.BrandName)
	}
	if filter.CategoryID != nil {
		stmt = stmt.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.DistributorID != nil {
		stmt = stmt.Where("distributor_id = ?", *filter.DistributorID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	stmt = option.ApplyPagination(page).Apply(stmt)

	if err := stmt.Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(product).Error
}
