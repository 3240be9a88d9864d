package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harborline/catalog/internal/rebate/domain"
	"github.com/harborline/catalog/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, agreement *domain.RebateAgreement) error {
	// Child rows ride along through gorm associations so the whole
	// agreement lands in one statement batch.
	return db.WithContext(ctx).Create(agreement).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64, opts ...option.QueryOption) (*domain.RebateAgreement, error) {
	stmt := db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Associations")
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var agreement domain.RebateAgreement
	err := stmt.Where("id = ?", id).First(&agreement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (r *repo) FindByUUID(ctx context.Context, db *gorm.DB, id uuid.UUID, opts ...option.QueryOption) (*domain.RebateAgreement, error) {
	stmt := db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Associations")
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var agreement domain.RebateAgreement
	err := stmt.Where("uuid = ?", id).First(&agreement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (r *repo) FindActiveByParty(ctx context.Context, db *gorm.DB, partyID int64, agreementType string, opts ...option.QueryOption) ([]domain.RebateAgreement, error) {
	stmt := db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Associations")
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var agreements []domain.RebateAgreement
	err := stmt.
		Where("party_id = ? AND agreement_type = ? AND status = ?", partyID, agreementType, domain.StatusActive).
		Find(&agreements).Error
	if err != nil {
		return nil, err
	}
	return agreements, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.RebateAgreement, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.RebateAgreement{}).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Associations")

	if filter.AgreementType != "" {
		stmt = stmt.Where("agreement_type = ?", filter.AgreementType)
	}
	if filter.PartyID != nil {
		stmt = stmt.Where("party_id = ?", *filter.PartyID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"valid_from": true,
		"valid_to":   true,
	})).Apply(stmt)

	var agreements []domain.RebateAgreement
	if err := stmt.Find(&agreements).Error; err != nil {
		return nil, err
	}
	return agreements, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, agreement *domain.RebateAgreement) error {
	if agreement == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Omit("Tiers", "Associations").
		Save(agreement).Error
}

// ReplaceChildren swaps out every tier and association row for the
// agreement. Replace, never append, so reruns of the same update stay
// idempotent.
func (r *repo) ReplaceChildren(ctx context.Context, db *gorm.DB, agreement *domain.RebateAgreement) error {
	if agreement == nil {
		return gorm.ErrInvalidData
	}

	if err := db.WithContext(ctx).
		Where("agreement_id = ?", agreement.ID).
		Delete(&domain.RebateTier{}).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).
		Where("agreement_id = ?", agreement.ID).
		Delete(&domain.RebateAgreementProduct{}).Error; err != nil {
		return err
	}

	if len(agreement.Tiers) > 0 {
		if err := db.WithContext(ctx).Create(&agreement.Tiers).Error; err != nil {
			return err
		}
	}
	if len(agreement.Associations) > 0 {
		if err := db.WithContext(ctx).Create(&agreement.Associations).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	if err := db.WithContext(ctx).
		Where("agreement_id = ?", id).
		Delete(&domain.RebateTier{}).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).
		Where("agreement_id = ?", id).
		Delete(&domain.RebateAgreementProduct{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Delete(&domain.RebateAgreement{}, "id = ?", id).Error
}

func (r *repo) OrphanClaims(ctx context.Context, db *gorm.DB, agreementID int64) error {
	return db.WithContext(ctx).
		Exec(`UPDATE rebate_claims SET orphaned = ? WHERE agreement_id = ?`, true, agreementID).Error
}

func (r *repo) DeleteClaims(ctx context.Context, db *gorm.DB, agreementID int64) error {
	return db.WithContext(ctx).
		Exec(`DELETE FROM rebate_claims WHERE agreement_id = ?`, agreementID).Error
}
