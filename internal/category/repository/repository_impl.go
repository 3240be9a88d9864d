package repository

import (
	"context"
	"errors"

	"github.com/harborline/catalog/internal/category/domain"
	"github.com/harborline/catalog/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Category, error) {
	var c domain.Category
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Category, error) {
	var items []domain.Category
	stmt := db.WithContext(ctx).Model(&domain.Category{})

	if filter.Level != "" {
		stmt = stmt.Where("level = ?", filter.Level)
	}
	if filter.ParentID != nil {
		stmt = stmt.Where("parent_id = ?", *filter.ParentID)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindChildren(ctx context.Context, db *gorm.DB, parentIDs []int64) ([]domain.Category, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var items []domain.Category
	err := db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountChildren(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("parent_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repo) CountProducts(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("products").
		Where("category_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repo) ProductIDs(ctx context.Context, db *gorm.DB, categoryIDs []int64) ([]int64, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var ids []int64
	err := db.WithContext(ctx).
		Table("products").
		Where("category_id IN ?", categoryIDs).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	if category == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(category).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Delete(&domain.Category{}, "id = ?", id).Error
}
