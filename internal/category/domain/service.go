package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error

	// Descendants returns the given category and every category below it
	// in the hierarchy.
	Descendants(ctx context.Context, id string) ([]Response, error)

	// ExpandProducts resolves a set of category IDs to the IDs of every
	// product attached to those categories or their descendants.
	ExpandProducts(ctx context.Context, categoryIDs []int64) ([]int64, error)
}

type ListRequest struct {
	Level    string
	ParentID string
	SortBy   string
	OrderBy  string
}

type CreateRequest struct {
	Name     string  `json:"name"`
	Level    string  `json:"level"`
	ParentID *string `json:"parent_id"`
}

type UpdateRequest struct {
	ID   string  `json:"-"`
	Name *string `json:"name"`
}

type Response struct {
	ID        string    `json:"id"`
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Level     string    `json:"level"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidLevel  = errors.New("invalid_level")
	ErrInvalidParent = errors.New("invalid_parent")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
	ErrHasChildren   = errors.New("has_children")
	ErrHasProducts   = errors.New("has_products")
	ErrMissingParent = errors.New("missing_parent")
	ErrLevelMismatch = errors.New("level_mismatch")
	ErrRootHasParent = errors.New("root_has_parent")
)
