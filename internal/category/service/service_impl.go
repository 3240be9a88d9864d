package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/harborline/catalog/internal/cache"
	"github.com/harborline/catalog/internal/category/domain"
	"github.com/harborline/catalog/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Expansion cache.ExpansionCache
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	expansion cache.ExpansionCache
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("category.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		expansion: p.Expansion,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	level := strings.TrimSpace(req.Level)
	switch level {
	case domain.LevelClass, domain.LevelType, domain.LevelCategory:
	default:
		return nil, domain.ErrInvalidLevel
	}

	var parentID *int64
	if level == domain.LevelClass {
		if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
			return nil, domain.ErrRootHasParent
		}
	} else {
		if req.ParentID == nil || strings.TrimSpace(*req.ParentID) == "" {
			return nil, domain.ErrMissingParent
		}
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.ParentID))
		if err != nil {
			return nil, domain.ErrInvalidParent
		}
		parent, err := s.repo.FindByID(ctx, s.db, parsed.Int64())
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, domain.ErrInvalidParent
		}
		if domain.ChildLevel(parent.Level) != level {
			return nil, domain.ErrLevelMismatch
		}
		id := parent.ID
		parentID = &id
	}

	now := s.clock.Now()
	c := &domain.Category{
		ID:        s.genID.Generate().Int64(),
		UUID:      uuid.New(),
		Name:      name,
		Level:     level,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, c); err != nil {
		return nil, err
	}
	s.expansion.Invalidate()

	resp := s.toResponse(c)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		Level:   strings.TrimSpace(req.Level),
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}
	if parent := strings.TrimSpace(req.ParentID); parent != "" {
		parsed, err := snowflake.ParseString(parent)
		if err != nil {
			return nil, domain.ErrInvalidParent
		}
		id := parsed.Int64()
		filter.ParentID = &id
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	children, err := s.repo.CountChildren(ctx, s.db, item.ID)
	if err != nil {
		return err
	}
	if children > 0 {
		return domain.ErrHasChildren
	}

	products, err := s.repo.CountProducts(ctx, s.db, item.ID)
	if err != nil {
		return err
	}
	if products > 0 {
		return domain.ErrHasProducts
	}

	if err := s.repo.Delete(ctx, s.db, item.ID); err != nil {
		return err
	}
	s.expansion.Invalidate()
	return nil
}

func (s *Service) Descendants(ctx context.Context, id string) ([]domain.Response, error) {
	root, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	all, err := s.collect(ctx, []domain.Category{*root})
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(all))
	for _, item := range all {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) ExpandProducts(ctx context.Context, categoryIDs []int64) ([]int64, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	if ids, ok := s.expansion.Get(categoryIDs); ok {
		return ids, nil
	}

	roots := make([]domain.Category, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		item, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, domain.ErrNotFound
		}
		roots = append(roots, *item)
	}

	all, err := s.collect(ctx, roots)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(all))
	for _, item := range all {
		ids = append(ids, item.ID)
	}

	productIDs, err := s.repo.ProductIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	s.expansion.Set(categoryIDs, productIDs)
	return productIDs, nil
}

// collect walks the hierarchy breadth first starting from the given
// categories and returns them along with every descendant. The hierarchy
// is at most three levels deep so two rounds of child lookups suffice.
func (s *Service) collect(ctx context.Context, roots []domain.Category) ([]domain.Category, error) {
	all := make([]domain.Category, 0, len(roots))
	all = append(all, roots...)

	frontier := make([]int64, 0, len(roots))
	for _, item := range roots {
		frontier = append(frontier, item.ID)
	}

	for len(frontier) > 0 {
		children, err := s.repo.FindChildren(ctx, s.db, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, child := range children {
			all = append(all, child)
			frontier = append(frontier, child.ID)
		}
	}

	return all, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Category, error) {
	categoryID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, categoryID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) toResponse(c *domain.Category) domain.Response {
	resp := domain.Response{
		ID:        snowflake.ID(c.ID).String(),
		UUID:      c.UUID.String(),
		Name:      c.Name,
		Level:     c.Level,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.ParentID != nil {
		parent := snowflake.ID(*c.ParentID).String()
		resp.ParentID = &parent
	}
	return resp
}
