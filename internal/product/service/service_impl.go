package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/harborline/catalog/internal/cache"
	categorydomain "github.com/harborline/catalog/internal/category/domain"
	"github.com/harborline/catalog/internal/clock"
	distributordomain "github.com/harborline/catalog/internal/distributor/domain"
	"github.com/harborline/catalog/internal/product/domain"
	"github.com/harborline/catalog/pkg/db"
	"github.com/harborline/catalog/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	Categories   categorydomain.Repository
	Distributors distributordomain.Repository
	Expansion    cache.ExpansionCache
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	categories   categorydomain.Repository
	distributors distributordomain.Repository
	expansion    cache.ExpansionCache
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("product.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		categories:   p.Categories,
		distributors: p.Distributors,
		expansion:    p.Expansion,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := validatePrices(req.TradePrice, req.RRP, req.GoPrice, req.MWP); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateCode
	}

	categoryID, err := s.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	distributorID, err := s.resolveDistributor(ctx, req.DistributorID)
	if err != nil {
		return nil, err
	}

	handle, err := s.uniqueHandle(ctx, name)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:            s.genID.Generate().Int64(),
		UUID:          uuid.New(),
		Code:          code,
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		BrandName:     strings.TrimSpace(req.BrandName),
		DistributorID: distributorID,
		CategoryID:    categoryID,
		PackSize:      strings.TrimSpace(req.PackSize),
		EAN:           strings.TrimSpace(req.EAN),
		WebHandle:     handle,
		TradePrice:    req.TradePrice,
		RRP:           req.RRP,
		GoPrice:       req.GoPrice,
		MWP:           req.MWP,
		Status:        domain.StatusActive,
		Metadata:      normalizeMetadata(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}
	if categoryID != nil {
		s.expansion.Invalidate()
	}

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{
		Name:      strings.TrimSpace(req.Name),
		Code:      strings.TrimSpace(req.Code),
		BrandName: strings.TrimSpace(req.BrandName),
		Status:    strings.TrimSpace(req.Status),
	}
	if value := strings.TrimSpace(req.CategoryID); value != "" {
		parsed, err := snowflake.ParseString(value)
		if err != nil {
			return nil, domain.ErrInvalidCategory
		}
		id := parsed.Int64()
		filter.CategoryID = &id
	}
	if value := strings.TrimSpace(req.DistributorID); value != "" {
		parsed, err := snowflake.ParseString(value)
		if err != nil {
			return nil, domain.ErrInvalidDistributor
		}
		id := parsed.Int64()
		filter.DistributorID = &id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: strings.TrimSpace(req.PageToken),
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, pageSize, func(product domain.Product) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        snowflake.ID(product.ID).String(),
			CreatedAt: product.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return &domain.ListResponse{Items: resp, PageInfo: *pageInfo}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) GetByHandle(ctx context.Context, handle string) (*domain.Response, error) {
	item, err := s.repo.FindByHandle(ctx, s.db, strings.TrimSpace(handle))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := validatePrices(req.TradePrice, req.RRP, req.GoPrice, req.MWP); err != nil {
		return nil, err
	}

	categoryChanged := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.BrandName != nil {
		item.BrandName = strings.TrimSpace(*req.BrandName)
	}
	if req.PackSize != nil {
		item.PackSize = strings.TrimSpace(*req.PackSize)
	}
	if req.EAN != nil {
		item.EAN = strings.TrimSpace(*req.EAN)
	}
	if req.CategoryID != nil {
		categoryID, err := s.resolveCategory(ctx, req.CategoryID)
		if err != nil {
			return nil, err
		}
		item.CategoryID = categoryID
		categoryChanged = true
	}
	if req.DistributorID != nil {
		distributorID, err := s.resolveDistributor(ctx, req.DistributorID)
		if err != nil {
			return nil, err
		}
		item.DistributorID = distributorID
	}
	if req.TradePrice != nil {
		item.TradePrice = req.TradePrice
	}
	if req.RRP != nil {
		item.RRP = req.RRP
	}
	if req.GoPrice != nil {
		item.GoPrice = req.GoPrice
	}
	if req.MWP != nil {
		item.MWP = req.MWP
	}
	if req.Metadata != nil {
		item.Metadata = normalizeMetadata(req.Metadata)
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}
	if categoryChanged {
		s.expansion.Invalidate()
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Archive(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Status = domain.StatusArchived
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

// uniqueHandle derives a URL handle from the product name, appending a
// numeric suffix when the base handle is already taken.
func (s *Service) uniqueHandle(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	taken, err := s.repo.CountByHandlePrefix(ctx, s.db, base)
	if err != nil {
		return "", err
	}
	if taken == 0 {
		return base, nil
	}
	return fmt.Sprintf("%s-%d", base, taken+1), nil
}

func (s *Service) resolveCategory(ctx context.Context, raw *string) (*int64, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, domain.ErrInvalidCategory
	}
	category, err := s.categories.FindByID(ctx, s.db, parsed.Int64())
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrInvalidCategory
	}
	id := category.ID
	return &id, nil
}

func (s *Service) resolveDistributor(ctx context.Context, raw *string) (*int64, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, domain.ErrInvalidDistributor
	}
	distributor, err := s.distributors.FindByID(ctx, s.db, parsed.Int64())
	if err != nil {
		return nil, err
	}
	if distributor == nil {
		return nil, domain.ErrInvalidDistributor
	}
	id := distributor.ID
	return &id, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, productID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func normalizeMetadata(input map[string]any) datatypes.JSONMap {
	if input == nil {
		return datatypes.JSONMap{}
	}
	output := datatypes.JSONMap{}
	for k, v := range input {
		output[k] = v
	}
	return output
}

func validatePrices(prices ...*decimal.Decimal) error {
	for _, price := range prices {
		if price != nil && price.IsNegative() {
			return domain.ErrInvalidPrice
		}
	}
	return nil
}

func (s *Service) toResponse(p *domain.Product) domain.Response {
	resp := domain.Response{
		ID:          snowflake.ID(p.ID).String(),
		UUID:        p.UUID.String(),
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		BrandName:   p.BrandName,
		PackSize:    p.PackSize,
		EAN:         p.EAN,
		WebHandle:   p.WebHandle,
		TradePrice:  p.TradePrice,
		RRP:         p.RRP,
		GoPrice:     p.GoPrice,
		MWP:         p.MWP,
		Status:      p.Status,
		Metadata:    map[string]any(p.Metadata),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.CategoryID != nil {
		id := snowflake.ID(*p.CategoryID).String()
		resp.CategoryID = &id
	}
	if p.DistributorID != nil {
		id := snowflake.ID(*p.DistributorID).String()
		resp.DistributorID = &id
	}
	return resp
}
