package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborline/catalog/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	GetByHandle(ctx context.Context, handle string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Archive(ctx context.Context, id string) (*Response, error)
}

// ListRequest pages through the catalog newest first. PageToken is an
// opaque cursor from a previous page.
type ListRequest struct {
	Name          string
	Code          string
	BrandName     string
	CategoryID    string
	DistributorID string
	Status        string
	PageToken     string
	PageSize      int
}

type ListResponse struct {
	Items    []Response          `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type CreateRequest struct {
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	BrandName     string           `json:"brand_name"`
	DistributorID *string          `json:"distributor_id"`
	CategoryID    *string          `json:"category_id"`
	PackSize      string           `json:"pack_size"`
	EAN           string           `json:"ean"`
	TradePrice    *decimal.Decimal `json:"trade_price"`
	RRP           *decimal.Decimal `json:"rrp"`
	GoPrice       *decimal.Decimal `json:"go_price"`
	MWP           *decimal.Decimal `json:"mwp"`
	Metadata      map[string]any   `json:"metadata"`
}

type UpdateRequest struct {
	ID            string           `json:"-"`
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	BrandName     *string          `json:"brand_name"`
	DistributorID *string          `json:"distributor_id"`
	CategoryID    *string          `json:"category_id"`
	PackSize      *string          `json:"pack_size"`
	EAN           *string          `json:"ean"`
	TradePrice    *decimal.Decimal `json:"trade_price"`
	RRP           *decimal.Decimal `json:"rrp"`
	GoPrice       *decimal.Decimal `json:"go_price"`
	MWP           *decimal.Decimal `json:"mwp"`
	Metadata      map[string]any   `json:"metadata"`
}

type Response struct {
	ID            string           `json:"id"`
	UUID          string           `json:"uuid"`
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	BrandName     string           `json:"brand_name,omitempty"`
	DistributorID *string          `json:"distributor_id,omitempty"`
	CategoryID    *string          `json:"category_id,omitempty"`
	PackSize      string           `json:"pack_size,omitempty"`
	EAN           string           `json:"ean,omitempty"`
	WebHandle     string           `json:"web_handle"`
	TradePrice    *decimal.Decimal `json:"trade_price,omitempty"`
	RRP           *decimal.Decimal `json:"rrp,omitempty"`
	GoPrice       *decimal.Decimal `json:"go_price,omitempty"`
	MWP           *decimal.Decimal `json:"mwp,omitempty"`
	Status        string           `json:"status"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

var (
	ErrInvalidCode        = errors.New("invalid_code")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrInvalidDistributor = errors.New("invalid_distributor")
	ErrDuplicateCode      = errors.New("duplicate_code")
	ErrNotFound           = errors.New("not_found")
)
