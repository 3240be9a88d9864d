package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	categorydomain "github.com/harborline/catalog/internal/category/domain"
	claimdomain "github.com/harborline/catalog/internal/claim/domain"
	"github.com/harborline/catalog/internal/clock"
	"github.com/harborline/catalog/internal/config"
	"github.com/harborline/catalog/internal/rebate/domain"
	"github.com/harborline/catalog/internal/rebate/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// categoryStub resolves category expansions from a fixed map.
type categoryStub struct {
	expansions map[int64][]int64
}

func (s *categoryStub) Create(ctx context.Context, req categorydomain.CreateRequest) (*categorydomain.Response, error) {
	return nil, nil
}

func (s *categoryStub) List(ctx context.Context, req categorydomain.ListRequest) ([]categorydomain.Response, error) {
	return nil, nil
}

func (s *categoryStub) Get(ctx context.Context, id string) (*categorydomain.Response, error) {
	return nil, nil
}

func (s *categoryStub) Update(ctx context.Context, req categorydomain.UpdateRequest) (*categorydomain.Response, error) {
	return nil, nil
}

func (s *categoryStub) Delete(ctx context.Context, id string) error { return nil }

func (s *categoryStub) Descendants(ctx context.Context, id string) ([]categorydomain.Response, error) {
	return nil, nil
}

func (s *categoryStub) ExpandProducts(ctx context.Context, categoryIDs []int64) ([]int64, error) {
	var out []int64
	for _, id := range categoryIDs {
		out = append(out, s.expansions[id]...)
	}
	return out, nil
}

func newTestService(t *testing.T, rebateCfg config.RebateConfig, expansions map[int64][]int64) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.RebateAgreement{},
		&domain.RebateTier{},
		&domain.RebateAgreementProduct{},
		&claimdomain.RebateClaim{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(date(2026, time.February, 1)),
		Repo:       repository.Provide(),
		Categories: &categoryStub{expansions: expansions},
		RebateCfg:  config.NewStaticRebateConfigHolder(rebateCfg),
	})
	return svc, db
}

func validCreateRequest() domain.CreateRequest {
	return domain.CreateRequest{
		AgreementType: domain.TypeVendor,
		PartyID:       "7",
		Description:   "vendor rebate",
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.March, 31),
		CalcFrequency: domain.FrequencyMonthly,
		Basis:         domain.BasisQuantity,
		RateType:      domain.RatePercentage,
		Tiers: []domain.TierInput{
			tier(dec("0"), dec("100"), "5", domain.RatePercentage),
			tier(dec("100"), nil, "8", domain.RatePercentage),
		},
		ProductIDs: []string{"55"},
	}
}

func TestAgreementService_CreateAndGet(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultRebateConfig(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.Equal(t, "7", created.PartyID)
	assert.Len(t, created.Tiers, 2)
	assert.Equal(t, []string{"55"}, created.ProductIDs)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.UUID)
	assert.Len(t, got.Tiers, 2)
	assert.True(t, got.Tiers[1].To == nil, "top tier stays open ended")
}

func TestAgreementService_GetByUUID(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultRebateConfig(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	got, err := svc.GetByUUID(ctx, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Tiers, 2)
	assert.Equal(t, []string{"55"}, got.ProductIDs)

	_, err = svc.GetByUUID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.GetByUUID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAgreementService_OverlappingAgreementRejected(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultRebateConfig(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	second := validCreateRequest()
	second.StartDate = date(2026, time.March, 1)
	second.EndDate = date(2026, time.June, 30)
	_, err = svc.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrOverlappingAgreement)
}

func TestAgreementService_DisjointDatesAccepted(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultRebateConfig(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	second := validCreateRequest()
	second.StartDate = date(2026, time.April, 1)
	second.EndDate = date(2026, time.June, 30)
	_, err = svc.Create(ctx, second)
	assert.NoError(t, err)
}

func TestAgreementService_CategoryExpansionConflict(t *testing.T) {
	// Category 9 expands to product 55, so a category-scoped agreement
	// collides with a product-scoped one over the same window.
	svc, _ := newTestService(t, config.DefaultRebateConfig(), map[int64][]int64{9: {55}})
	ctx := context.Background()

	first := validCreateRequest()
	first.ProductIDs = nil
	first.CategoryIDs = []string{"9"}
	_, err := svc.Create(ctx, first)
	require.NoError(t, err)

	second := validCreateRequest()
	_, err = svc.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrOverlappingAgreement)
}

func TestAgreementService_ValidationFailures(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultRebateConfig(), nil)
	ctx := context.Background()

	missing := validCreateRequest()
	missing.ProductIDs = nil
	missing.CategoryIDs = nil
	_, err := svc.Create(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrMissingAssociations)

	badDates := validCreateRequest()
	badDates.EndDate = badDates.StartDate
	_, err = svc.Create(ctx, badDates)
	assert.ErrorIs(t, err, domain.ErrDateRangeInvalid)

	badTiers := validCreateRequest()
	badTiers.Tiers = []domain.TierInput{
		tier(dec("0"), dec("10"), "1", domain.RatePercentage),
		tier(dec("5"), dec("20"), "2", domain.RatePercentage),
	}
	_, err = svc.Create(ctx, badTiers)
	assert.ErrorIs(t, err, domain.ErrOverlappingTiers)

	badType := validCreateRequest()
	badType.AgreementType = "supplier"
	_, err = svc.Create(ctx, badType)
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestAgreementService_UpdateReplacesChildren(t *testing.T) {
	svc, db := newTestService(t, config.DefaultRebateConfig(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	update := domain.UpdateRequest{
		ID:            created.ID,
		AgreementType: domain.TypeVendor,
		PartyID:       "7",
		Description:   "revised",
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.March, 31),
		CalcFrequency: domain.FrequencyMonthly,
		Basis:         domain.BasisQuantity,
		RateType:      domain.RatePercentage,
		Tiers: []domain.TierInput{
			tier(dec("0"), nil, "3", domain.RatePercentage),
		},
		ProductIDs: []string{"55", "56"},
	}
	updated, err := svc.Update(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, updated.UUID)
	assert.Len(t, updated.Tiers, 1)
	assert.ElementsMatch(t, []string{"55", "56"}, updated.ProductIDs)

	var tierCount int64
	require.NoError(t, db.Model(&domain.RebateTier{}).Count(&tierCount).Error)
	assert.Equal(t, int64(1), tierCount, "old tier rows are replaced, not appended")
}

func TestAgreementService_UpdateNotFound(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultRebateConfig(), nil)

	update := domain.UpdateRequest{
		ID:            "12345",
		AgreementType: domain.TypeVendor,
		PartyID:       "7",
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.March, 31),
		CalcFrequency: domain.FrequencyMonthly,
		Basis:         domain.BasisQuantity,
		RateType:      domain.RatePercentage,
		ProductIDs:    []string{"55"},
	}
	_, err := svc.Update(context.Background(), update)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func seedClaim(t *testing.T, db *gorm.DB, agreementID string) int64 {
	t.Helper()
	parsed, err := snowflake.ParseString(agreementID)
	require.NoError(t, err)

	claim := claimdomain.RebateClaim{
		ID:           time.Now().UnixNano(),
		UUID:         uuid.New(),
		AgreementID:  parsed.Int64(),
		ProductID:    55,
		PeriodStart:  date(2026, time.January, 1),
		PeriodEnd:    date(2026, time.January, 31),
		RebateAmount: decimal.RequireFromString("12"),
		Status:       claimdomain.StatusPending,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.Create(&claim).Error)
	return claim.ID
}

func TestAgreementService_DeleteRetainsClaimsAsOrphans(t *testing.T) {
	svc, db := newTestService(t, config.DefaultRebateConfig(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	claimID := seedClaim(t, db, created.ID)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var claim claimdomain.RebateClaim
	require.NoError(t, db.First(&claim, "id = ?", claimID).Error)
	assert.True(t, claim.Orphaned)
}

func TestAgreementService_DeleteCascadesClaimsWhenConfigured(t *testing.T) {
	cfg := config.DefaultRebateConfig()
	cfg.RetainClaimsOnDelete = false
	svc, db := newTestService(t, cfg, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	seedClaim(t, db, created.ID)

	require.NoError(t, svc.Delete(ctx, created.ID))

	var count int64
	require.NoError(t, db.Model(&claimdomain.RebateClaim{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
