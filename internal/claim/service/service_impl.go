package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/harborline/catalog/internal/claim/domain"
	"github.com/harborline/catalog/internal/clock"
	"github.com/harborline/catalog/internal/config"
	"github.com/harborline/catalog/internal/observability/metrics"
	"github.com/harborline/catalog/internal/ratelimit"
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
	"github.com/harborline/catalog/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Agreements rebatedomain.Repository
	RebateCfg  *config.RebateConfigHolder
	Locker     *ratelimit.Locker `optional:"true"`
	Metrics    *metrics.Metrics  `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	agreements rebatedomain.Repository
	rebateCfg  *config.RebateConfigHolder
	locker     *ratelimit.Locker
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("claim.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		agreements: p.Agreements,
		rebateCfg:  p.RebateCfg,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}
}

func (s *Service) Calculate(ctx context.Context, req domain.CalculateRequest) (*domain.Response, error) {
	agreementID, err := snowflake.ParseString(strings.TrimSpace(req.AgreementID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || req.PeriodStart.After(req.PeriodEnd) {
		return nil, domain.ErrInvalidPeriod
	}

	// Recalculation of the same claim is single-writer: the advisory
	// lock rejects a second caller up front and the row lock inside the
	// transaction covers writers that slipped past it.
	release, err := s.acquireClaimLock(ctx, agreementID.Int64(), productID.Int64(), req.PeriodStart)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	var claim *domain.RebateClaim
	var matchedUnit string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		agreement, err := s.agreements.FindByID(ctx, tx, agreementID.Int64())
		if err != nil {
			return err
		}
		if agreement == nil {
			return domain.ErrAgreementNotFound
		}
		if agreement.Status != rebatedomain.StatusActive {
			return domain.ErrAgreementInactive
		}

		existing, err := s.repo.FindByPeriod(ctx, tx,
			agreementID.Int64(), productID.Int64(), req.PeriodStart, req.PeriodEnd,
			option.WithRowLock())
		if err != nil {
			return err
		}
		if existing != nil &&
			(existing.Status == domain.StatusApproved || existing.Status == domain.StatusPaid) {
			return domain.ErrClaimLocked
		}

		tier := matchTier(agreement.Tiers, agreement.Basis, req.Accumulated)
		if tier == nil {
			return domain.ErrNoTierMatched
		}
		matchedUnit = tier.RebateUnit

		amount := computeAmount(tier, req.Accumulated, s.rebateCfg.Current().ClaimRoundingPlaces)
		now := s.clock.Now()

		if existing == nil {
			claim = &domain.RebateClaim{
				ID:           s.genID.Generate().Int64(),
				UUID:         uuid.New(),
				AgreementID:  agreementID.Int64(),
				ProductID:    productID.Int64(),
				PeriodStart:  req.PeriodStart,
				PeriodEnd:    req.PeriodEnd,
				RebateAmount: amount,
				Status:       domain.StatusToCalculate,
				CalculatedAt: &now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			s.setAccumulated(claim, agreement.Basis, req)
			return s.repo.Create(ctx, tx, claim)
		}

		existing.RebateAmount = amount
		existing.Status = domain.StatusPending
		existing.CalculatedAt = &now
		existing.UpdatedAt = now
		s.setAccumulated(existing, agreement.Basis, req)
		claim = existing
		return s.repo.Update(ctx, tx, existing)
	})
	if err != nil {
		metrics.Engine().AddClaimFailure(metrics.ClassifyClaimFailure(err))
		return nil, err
	}

	metrics.Engine().ObserveClaimDuration(matchedUnit, time.Since(start).Seconds())
	if s.metrics != nil {
		s.metrics.RecordClaimCalculated(ctx, matchedUnit)
	}
	s.log.Info("claim calculated",
		zap.Int64("claim_id", claim.ID),
		zap.String("status", claim.Status),
		zap.String("rebate_amount", claim.RebateAmount.String()),
	)

	resp := s.toResponse(claim)
	return &resp, nil
}

func (s *Service) Advance(ctx context.Context, req domain.AdvanceRequest) (*domain.Response, error) {
	claimID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	// Pending is not a valid target here: calculation owns the
	// to_calculate to pending step.
	target := strings.TrimSpace(req.TargetStatus)
	switch target {
	case domain.StatusApproved, domain.StatusPaid:
	default:
		return nil, domain.ErrInvalidStatus
	}

	var claim *domain.RebateClaim
	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, claimID.Int64(), option.WithRowLock())
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if !isTransitionAllowed(current.Status, target) {
			return domain.ErrInvalidTransition
		}

		current.Status = target
		current.UpdatedAt = s.clock.Now()
		claim = current
		return s.repo.Update(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordClaimTransition(ctx, target)
	}

	resp := s.toResponse(claim)
	return &resp, nil
}

// isTransitionAllowed encodes the claim workflow. Calculation owns the
// to_calculate to pending step, so Advance only covers approval and
// payment; nothing moves backwards and paid is terminal.
func isTransitionAllowed(current, target string) bool {
	switch current {
	case domain.StatusPending:
		return target == domain.StatusApproved
	case domain.StatusApproved:
		return target == domain.StatusPaid
	default:
		return false
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		Status:  strings.TrimSpace(req.Status),
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}
	if value := strings.TrimSpace(req.AgreementID); value != "" {
		parsed, err := snowflake.ParseString(value)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		id := parsed.Int64()
		filter.AgreementID = &id
	}
	if value := strings.TrimSpace(req.ProductID); value != "" {
		parsed, err := snowflake.ParseString(value)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		id := parsed.Int64()
		filter.ProductID = &id
	}

	claims, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(claims))
	for i := range claims {
		resp = append(resp, s.toResponse(&claims[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	claimID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	claim, err := s.repo.FindByID(ctx, s.db, claimID.Int64())
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(claim)
	return &resp, nil
}

func (s *Service) acquireClaimLock(ctx context.Context, agreementID, productID int64, periodStart time.Time) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("rebate:claim:%d:%d:%s", agreementID, productID, periodStart.Format("2006-01-02"))
	ttl := s.rebateCfg.Current().ClaimLockTTL

	start := time.Now()
	token, ok, err := s.locker.TryLock(ctx, key, ttl)
	metrics.Engine().ObserveLockWait("claim_calculation", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.RecordRateLimitDenied(ctx, "claim_calculation", "lock_held")
		}
		return nil, domain.ErrClaimBusy
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("release claim lock", zap.Error(err))
		}
	}, nil
}

func (s *Service) setAccumulated(claim *domain.RebateClaim, basis string, req domain.CalculateRequest) {
	if basis == rebatedomain.BasisAmount {
		claim.AmountAccumulated = req.Accumulated
	} else {
		claim.QuantityAccumulated = req.Accumulated
	}
}

func (s *Service) toResponse(claim *domain.RebateClaim) domain.Response {
	return domain.Response{
		ID:                  snowflake.ID(claim.ID).String(),
		UUID:                claim.UUID.String(),
		AgreementID:         snowflake.ID(claim.AgreementID).String(),
		ProductID:           snowflake.ID(claim.ProductID).String(),
		PeriodStart:         claim.PeriodStart,
		PeriodEnd:           claim.PeriodEnd,
		QuantityAccumulated: claim.QuantityAccumulated,
		AmountAccumulated:   claim.AmountAccumulated,
		RebateAmount:        claim.RebateAmount,
		Status:              claim.Status,
		Orphaned:            claim.Orphaned,
		CalculatedAt:        claim.CalculatedAt,
		CreatedAt:           claim.CreatedAt,
		UpdatedAt:           claim.UpdatedAt,
	}
}
