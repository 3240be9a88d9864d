package sweeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborline/catalog/internal/clock"
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
)

func newTestSweeper(t *testing.T, now time.Time) (*Sweeper, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&rebatedomain.RebateAgreement{}))

	fake := clock.NewFakeClock(now)
	s, err := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
	})
	require.NoError(t, err)
	return s, db, fake
}

func seedAgreement(t *testing.T, db *gorm.DB, id int64, status string, validTo time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&rebatedomain.RebateAgreement{
		ID:            id,
		UUID:          uuid.New(),
		AgreementType: rebatedomain.TypeVendor,
		PartyID:       7,
		Description:   "seed",
		StartDate:     validTo.AddDate(0, -3, 0),
		EndDate:       validTo,
		CalcFrequency: rebatedomain.FrequencyMonthly,
		Basis:         rebatedomain.BasisQuantity,
		RateType:      rebatedomain.RatePercentage,
		Status:        status,
	}).Error)
}

func TestSweeper_ExpiresLapsedAgreements(t *testing.T) {
	s, db, _ := newTestSweeper(t, time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC))

	seedAgreement(t, db, 1, rebatedomain.StatusActive, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC))
	seedAgreement(t, db, 2, rebatedomain.StatusActive, time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.RunOnce(context.Background()))

	var lapsed, current rebatedomain.RebateAgreement
	require.NoError(t, db.First(&lapsed, 1).Error)
	require.NoError(t, db.First(&current, 2).Error)
	require.Equal(t, rebatedomain.StatusExpired, lapsed.Status)
	require.Equal(t, rebatedomain.StatusActive, current.Status)
}

func TestSweeper_EndDateStillCurrentToday(t *testing.T) {
	s, db, _ := newTestSweeper(t, time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC))

	seedAgreement(t, db, 1, rebatedomain.StatusActive, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.RunOnce(context.Background()))

	var agreement rebatedomain.RebateAgreement
	require.NoError(t, db.First(&agreement, 1).Error)
	require.Equal(t, rebatedomain.StatusActive, agreement.Status)
}

func TestSweeper_AdvancingClockPicksUpNewlyLapsed(t *testing.T) {
	s, db, fake := newTestSweeper(t, time.Date(2026, time.March, 31, 12, 0, 0, 0, time.UTC))

	seedAgreement(t, db, 1, rebatedomain.StatusActive, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.RunOnce(context.Background()))
	var agreement rebatedomain.RebateAgreement
	require.NoError(t, db.First(&agreement, 1).Error)
	require.Equal(t, rebatedomain.StatusActive, agreement.Status)

	fake.Advance(24 * time.Hour)
	require.NoError(t, s.RunOnce(context.Background()))
	require.NoError(t, db.First(&agreement, 1).Error)
	require.Equal(t, rebatedomain.StatusExpired, agreement.Status)
}

func TestSweeper_BatchesLargeBacklogs(t *testing.T) {
	s, db, _ := newTestSweeper(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))
	s.cfg.BatchSize = 2

	for i := int64(1); i <= 5; i++ {
		seedAgreement(t, db, i, rebatedomain.StatusActive, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	}

	require.NoError(t, s.RunOnce(context.Background()))

	var remaining int64
	require.NoError(t, db.Model(&rebatedomain.RebateAgreement{}).
		Where("status = ?", rebatedomain.StatusActive).
		Count(&remaining).Error)
	require.Zero(t, remaining)
}
