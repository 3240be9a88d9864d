// Package sweeper runs the periodic maintenance loop of the rebate engine.
// Its single job today is moving agreements whose validity window has passed
// from active to expired, so they stop participating in conflict checks.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborline/catalog/internal/clock"
	"github.com/harborline/catalog/internal/ratelimit"
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
)

const expireLockKey = "rebate:sweep:expire"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config Config            `optional:"true"`
	Locker *ratelimit.Locker `optional:"true"`
}

type Sweeper struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	cfg    Config
	locker *ratelimit.Locker
}

func New(p Params) (*Sweeper, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Sweeper{
		db:     p.DB,
		log:    p.Log.Named("sweeper"),
		clock:  p.Clock,
		cfg:    p.Config.withDefaults(),
		locker: p.Locker,
	}, nil
}

// RunOnce performs a single sweep. With a locker configured only one
// instance sweeps per interval; the others skip the run.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, expireLockKey, s.cfg.LockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), expireLockKey, token); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	return s.expireAgreements(ctx)
}

func (s *Sweeper) expireAgreements(ctx context.Context) error {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	total := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var ids []int64
		err := s.db.WithContext(ctx).
			Model(&rebatedomain.RebateAgreement{}).
			Where("status = ? AND valid_to < ?", rebatedomain.StatusActive, today).
			Limit(s.cfg.BatchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}

		res := s.db.WithContext(ctx).
			Model(&rebatedomain.RebateAgreement{}).
			Where("id IN ?", ids).
			Update("status", rebatedomain.StatusExpired)
		if res.Error != nil {
			return res.Error
		}
		total += int(res.RowsAffected)
	}

	if total > 0 {
		s.log.Info("expired agreements swept", zap.Int("count", total))
	}
	return nil
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
