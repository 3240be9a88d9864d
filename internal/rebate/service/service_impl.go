package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	categorydomain "github.com/harborline/catalog/internal/category/domain"
	"github.com/harborline/catalog/internal/clock"
	"github.com/harborline/catalog/internal/config"
	"github.com/harborline/catalog/internal/observability/metrics"
	"github.com/harborline/catalog/internal/ratelimit"
	"github.com/harborline/catalog/internal/rebate/domain"
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
	Categories categorydomain.Service
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
	categories categorydomain.Service
	rebateCfg  *config.RebateConfigHolder
	locker     *ratelimit.Locker
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("rebate.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		categories: p.Categories,
		rebateCfg:  p.RebateCfg,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}
}

// submission is a create or update request after field validation, with
// identifier strings resolved to numeric IDs.
type submission struct {
	agreementType    string
	partyID          int64
	description      string
	startDate        time.Time
	endDate          time.Time
	calcFrequency    string
	basis            string
	rateType         string
	approvalRequired bool
	tiers            []domain.TierInput
	productIDs       []int64
	categoryIDs      []int64
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	sub, err := s.validate(req)
	if err != nil {
		s.recordSubmission(ctx, req.AgreementType, "rejected")
		return nil, err
	}

	release, err := s.acquirePartyLock(ctx, sub.partyID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	agreement := s.buildAgreement(sub, now)
	agreement.ID = s.genID.Generate().Int64()
	agreement.UUID = uuid.New()
	agreement.CreatedAt = now
	s.attachChildren(agreement, sub)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkConflicts(ctx, tx, agreement, sub); err != nil {
			return err
		}
		return s.repo.Create(ctx, tx, agreement)
	})
	if err != nil {
		s.recordSubmission(ctx, sub.agreementType, "rejected")
		return nil, err
	}
	s.recordSubmission(ctx, sub.agreementType, "accepted")

	s.log.Info("agreement created",
		zap.Int64("agreement_id", agreement.ID),
		zap.String("agreement_type", agreement.AgreementType),
	)

	resp := s.toResponse(agreement)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	agreementID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	sub, err := s.validate(reqBody(req))
	if err != nil {
		s.recordSubmission(ctx, req.AgreementType, "rejected")
		return nil, err
	}

	release, err := s.acquirePartyLock(ctx, sub.partyID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *domain.RebateAgreement
	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, agreementID.Int64(), option.WithRowLock())
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		next := s.buildAgreement(sub, now)
		next.ID = current.ID
		next.UUID = current.UUID
		next.CreatedAt = current.CreatedAt
		s.attachChildren(next, sub)

		if err := s.checkConflicts(ctx, tx, next, sub); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, next); err != nil {
			return err
		}
		if err := s.repo.ReplaceChildren(ctx, tx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		s.recordSubmission(ctx, sub.agreementType, "rejected")
		return nil, err
	}
	s.recordSubmission(ctx, sub.agreementType, "accepted")

	resp := s.toResponse(updated)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	agreementID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	retain := s.rebateCfg.Current().RetainClaimsOnDelete
	return s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, agreementID.Int64(), option.WithRowLock())
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		// Historical claims outlive the agreement under the retain
		// policy; they are flagged so downstream reporting can tell
		// they no longer resolve to a live agreement.
		if retain {
			if err := s.repo.OrphanClaims(ctx, tx, current.ID); err != nil {
				return err
			}
		} else {
			if err := s.repo.DeleteClaims(ctx, tx, current.ID); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, tx, current.ID)
	})
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		AgreementType: strings.TrimSpace(req.AgreementType),
		Status:        strings.TrimSpace(req.Status),
		SortBy:        strings.TrimSpace(req.SortBy),
		OrderBy:       strings.TrimSpace(req.OrderBy),
	}
	if party := strings.TrimSpace(req.PartyID); party != "" {
		parsed, err := snowflake.ParseString(party)
		if err != nil {
			return nil, domain.ErrInvalidParty
		}
		id := parsed.Int64()
		filter.PartyID = &id
	}

	agreements, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(agreements))
	for i := range agreements {
		resp = append(resp, s.toResponse(&agreements[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	agreementID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	agreement, err := s.repo.FindByID(ctx, s.db, agreementID.Int64())
	if err != nil {
		return nil, err
	}
	if agreement == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(agreement)
	return &resp, nil
}

// GetByUUID resolves an agreement by its externally shared identifier.
func (s *Service) GetByUUID(ctx context.Context, id string) (*domain.Response, error) {
	agreementUUID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	agreement, err := s.repo.FindByUUID(ctx, s.db, agreementUUID)
	if err != nil {
		return nil, err
	}
	if agreement == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(agreement)
	return &resp, nil
}

func (s *Service) validate(req domain.CreateRequest) (*submission, error) {
	sub := &submission{
		agreementType:    strings.TrimSpace(req.AgreementType),
		description:      strings.TrimSpace(req.Description),
		startDate:        req.StartDate,
		endDate:          req.EndDate,
		calcFrequency:    strings.TrimSpace(req.CalcFrequency),
		basis:            strings.TrimSpace(req.Basis),
		rateType:         strings.TrimSpace(req.RateType),
		approvalRequired: req.ApprovalRequired,
		tiers:            req.Tiers,
	}

	switch sub.agreementType {
	case domain.TypeVendor, domain.TypeCustomer:
	default:
		return nil, domain.ErrInvalidType
	}

	party, err := snowflake.ParseString(strings.TrimSpace(req.PartyID))
	if err != nil {
		return nil, domain.ErrInvalidParty
	}
	sub.partyID = party.Int64()

	switch sub.basis {
	case domain.BasisQuantity, domain.BasisAmount:
	default:
		return nil, domain.ErrInvalidBasis
	}

	switch sub.rateType {
	case domain.RatePercentage, domain.RatePerUnit, domain.RateFixed:
	default:
		return nil, domain.ErrInvalidRateType
	}

	switch sub.calcFrequency {
	case domain.FrequencyInvoice, domain.FrequencyDaily, domain.FrequencyMonthly,
		domain.FrequencyQuarterly, domain.FrequencyYearly:
	default:
		return nil, domain.ErrInvalidFrequency
	}

	if sub.startDate.IsZero() || sub.endDate.IsZero() || !sub.startDate.Before(sub.endDate) {
		return nil, domain.ErrDateRangeInvalid
	}

	if len(req.ProductIDs) == 0 && len(req.CategoryIDs) == 0 {
		return nil, domain.ErrMissingAssociations
	}
	for _, raw := range req.ProductIDs {
		parsed, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		sub.productIDs = append(sub.productIDs, parsed.Int64())
	}
	for _, raw := range req.CategoryIDs {
		parsed, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		sub.categoryIDs = append(sub.categoryIDs, parsed.Int64())
	}

	if err := ValidateTiers(sub.tiers, sub.basis); err != nil {
		return nil, err
	}
	return sub, nil
}

// acquirePartyLock serializes agreement submissions per party. Two racing
// submissions could otherwise both pass the overlap check against a stale
// snapshot; the row locks taken inside the transaction close the window
// for committed rows, and this advisory lock keeps concurrent writers
// from interleaving at all.
func (s *Service) acquirePartyLock(ctx context.Context, partyID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("rebate:submit:%d", partyID)
	ttl := s.rebateCfg.Current().SubmissionLockTTL

	start := time.Now()
	token, ok, err := s.locker.TryLock(ctx, key, ttl)
	metrics.Engine().ObserveLockWait("agreement_submission", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.RecordRateLimitDenied(ctx, "agreement_submission", "lock_held")
		}
		return nil, domain.ErrSubmissionInFlight
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("release submission lock", zap.Error(err))
		}
	}, nil
}

func (s *Service) checkConflicts(ctx context.Context, tx *gorm.DB, agreement *domain.RebateAgreement, sub *submission) error {
	existing, err := s.repo.FindActiveByParty(ctx, tx, sub.partyID, sub.agreementType, option.WithRowLock())
	if err != nil {
		return err
	}

	candidate, err := s.conflictInput(ctx, agreement)
	if err != nil {
		return err
	}
	inputs := make([]ConflictInput, 0, len(existing))
	for i := range existing {
		input, err := s.conflictInput(ctx, &existing[i])
		if err != nil {
			return err
		}
		inputs = append(inputs, input)
	}

	if err := CheckOverlap(candidate, inputs); err != nil {
		metrics.Engine().AddConflictCheck("conflict")
		if s.metrics != nil {
			s.metrics.RecordAgreementConflict(ctx, sub.agreementType)
		}
		return err
	}
	metrics.Engine().AddConflictCheck("clear")
	return nil
}

// conflictInput expands an agreement's category associations to concrete
// product IDs so the overlap check can compare plain sets.
func (s *Service) conflictInput(ctx context.Context, agreement *domain.RebateAgreement) (ConflictInput, error) {
	input := ConflictInput{
		AgreementID:   agreement.ID,
		Description:   agreement.Description,
		PartyID:       agreement.PartyID,
		AgreementType: agreement.AgreementType,
		Status:        agreement.Status,
		StartDate:     agreement.StartDate,
		EndDate:       agreement.EndDate,
		ProductIDs:    make(map[int64]struct{}),
	}

	var categoryIDs []int64
	for _, assoc := range agreement.Associations {
		switch {
		case assoc.ProductID != nil:
			input.ProductIDs[*assoc.ProductID] = struct{}{}
		case assoc.CategoryID != nil:
			categoryIDs = append(categoryIDs, *assoc.CategoryID)
		}
	}
	if len(categoryIDs) > 0 {
		expanded, err := s.categories.ExpandProducts(ctx, categoryIDs)
		if err != nil {
			return ConflictInput{}, err
		}
		for _, id := range expanded {
			input.ProductIDs[id] = struct{}{}
		}
	}
	return input, nil
}

func (s *Service) buildAgreement(sub *submission, now time.Time) *domain.RebateAgreement {
	return &domain.RebateAgreement{
		AgreementType:    sub.agreementType,
		PartyID:          sub.partyID,
		Description:      sub.description,
		StartDate:        sub.startDate,
		EndDate:          sub.endDate,
		CalcFrequency:    sub.calcFrequency,
		Basis:            sub.basis,
		RateType:         sub.rateType,
		ApprovalRequired: sub.approvalRequired,
		Status:           domain.StatusActive,
		UpdatedAt:        now,
	}
}

func (s *Service) attachChildren(agreement *domain.RebateAgreement, sub *submission) {
	agreement.Tiers = make([]domain.RebateTier, 0, len(sub.tiers))
	for i, input := range sub.tiers {
		tier := domain.RebateTier{
			ID:            s.genID.Generate().Int64(),
			AgreementID:   agreement.ID,
			AgreementUUID: agreement.UUID,
			RebateValue:   input.Value,
			RebateUnit:    input.Unit,
			Position:      i,
		}
		if sub.basis == domain.BasisAmount {
			tier.FromAmount = input.From
			tier.ToAmount = input.To
		} else {
			tier.FromQuantity = input.From
			tier.ToQuantity = input.To
		}
		agreement.Tiers = append(agreement.Tiers, tier)
	}

	agreement.Associations = make([]domain.RebateAgreementProduct, 0, len(sub.productIDs)+len(sub.categoryIDs))
	for _, id := range sub.productIDs {
		productID := id
		agreement.Associations = append(agreement.Associations, domain.RebateAgreementProduct{
			ID:          s.genID.Generate().Int64(),
			AgreementID: agreement.ID,
			ProductID:   &productID,
		})
	}
	for _, id := range sub.categoryIDs {
		categoryID := id
		agreement.Associations = append(agreement.Associations, domain.RebateAgreementProduct{
			ID:          s.genID.Generate().Int64(),
			AgreementID: agreement.ID,
			CategoryID:  &categoryID,
		})
	}
}

func (s *Service) recordSubmission(ctx context.Context, agreementType, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAgreementSubmission(ctx, agreementType, outcome)
	}
}

func (s *Service) toResponse(agreement *domain.RebateAgreement) domain.Response {
	resp := domain.Response{
		ID:               snowflake.ID(agreement.ID).String(),
		UUID:             agreement.UUID.String(),
		AgreementType:    agreement.AgreementType,
		PartyID:          snowflake.ID(agreement.PartyID).String(),
		Description:      agreement.Description,
		StartDate:        agreement.StartDate,
		EndDate:          agreement.EndDate,
		CalcFrequency:    agreement.CalcFrequency,
		Basis:            agreement.Basis,
		RateType:         agreement.RateType,
		ApprovalRequired: agreement.ApprovalRequired,
		Status:           agreement.Status,
		Tiers:            make([]domain.TierResponse, 0, len(agreement.Tiers)),
		ProductIDs:       make([]string, 0),
		CategoryIDs:      make([]string, 0),
		CreatedAt:        agreement.CreatedAt,
		UpdatedAt:        agreement.UpdatedAt,
	}
	if resp.Status == domain.StatusActive && agreement.EndDate.Before(s.clock.Now().Truncate(24*time.Hour)) {
		resp.Status = domain.StatusExpired
	}

	for _, tier := range agreement.Tiers {
		resp.Tiers = append(resp.Tiers, domain.TierResponse{
			ID:    snowflake.ID(tier.ID).String(),
			From:  tier.From(agreement.Basis),
			To:    tier.To(agreement.Basis),
			Value: tier.RebateValue,
			Unit:  tier.RebateUnit,
		})
	}
	for _, assoc := range agreement.Associations {
		switch {
		case assoc.ProductID != nil:
			resp.ProductIDs = append(resp.ProductIDs, snowflake.ID(*assoc.ProductID).String())
		case assoc.CategoryID != nil:
			resp.CategoryIDs = append(resp.CategoryIDs, snowflake.ID(*assoc.CategoryID).String())
		}
	}
	return resp
}

func reqBody(req domain.UpdateRequest) domain.CreateRequest {
	return domain.CreateRequest{
		AgreementType:    req.AgreementType,
		PartyID:          req.PartyID,
		Description:      req.Description,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		CalcFrequency:    req.CalcFrequency,
		Basis:            req.Basis,
		RateType:         req.RateType,
		ApprovalRequired: req.ApprovalRequired,
		Tiers:            req.Tiers,
		ProductIDs:       req.ProductIDs,
		CategoryIDs:      req.CategoryIDs,
	}
}
