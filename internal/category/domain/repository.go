package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, category *Category) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Category, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Category, error)
	FindChildren(ctx context.Context, db *gorm.DB, parentIDs []int64) ([]Category, error)
	CountChildren(ctx context.Context, db *gorm.DB, id int64) (int64, error)
	CountProducts(ctx context.Context, db *gorm.DB, id int64) (int64, error)
	ProductIDs(ctx context.Context, db *gorm.DB, categoryIDs []int64) ([]int64, error)
	Update(ctx context.Context, db *gorm.DB, category *Category) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}

type ListFilter struct {
	Level    string
	ParentID *int64
	SortBy   string
	OrderBy  string
}
