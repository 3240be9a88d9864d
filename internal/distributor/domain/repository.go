package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, distributor *Distributor) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Distributor, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Distributor, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Distributor, error)
	Update(ctx context.Context, db *gorm.DB, distributor *Distributor) error
}
