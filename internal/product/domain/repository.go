package domain

import (
	"context"

	"gorm.io/gorm"

	"github.com/harborline/catalog/pkg/db/pagination"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Product, error)
	FindByHandle(ctx context.Context, db *gorm.DB, handle string) (*Product, error)
	CountByHandlePrefix(ctx context.Context, db *gorm.DB, prefix string) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
}

type ListFilter struct {
	Name          string
	Code          string
	BrandName     string
	CategoryID    *int64
	DistributorID *int64
	Status        string
}
