package service

import (
	"testing"
	"time"

	"github.com/harborline/catalog/internal/rebate/domain"
	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func products(ids ...int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestCheckOverlap_SamePartySameProductOverlappingDates(t *testing.T) {
	existing := ConflictInput{
		AgreementID:   1,
		Description:   "Q1 vendor rebate",
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.March, 31),
		ProductIDs:    products(55),
	}
	candidate := ConflictInput{
		AgreementID:   2,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.March, 1),
		EndDate:       date(2026, time.June, 30),
		ProductIDs:    products(55),
	}

	err := CheckOverlap(candidate, []ConflictInput{existing})
	assert.ErrorIs(t, err, domain.ErrOverlappingAgreement)
	assert.Contains(t, err.Error(), "Q1 vendor rebate")
}

func TestCheckOverlap_DisjointDatesAllowed(t *testing.T) {
	existing := ConflictInput{
		AgreementID:   1,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.March, 31),
		ProductIDs:    products(55),
	}
	candidate := ConflictInput{
		AgreementID:   2,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.April, 1),
		EndDate:       date(2026, time.June, 30),
		ProductIDs:    products(55),
	}

	assert.NoError(t, CheckOverlap(candidate, []ConflictInput{existing}))
}

func TestCheckOverlap_DisjointProductsAllowed(t *testing.T) {
	existing := ConflictInput{
		AgreementID:   1,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.December, 31),
		ProductIDs:    products(55),
	}
	candidate := ConflictInput{
		AgreementID:   2,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.December, 31),
		ProductIDs:    products(56),
	}

	assert.NoError(t, CheckOverlap(candidate, []ConflictInput{existing}))
}

func TestCheckOverlap_DifferentPartyOrTypeIgnored(t *testing.T) {
	base := ConflictInput{
		AgreementID:   1,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.December, 31),
		ProductIDs:    products(55),
	}
	candidate := base
	candidate.AgreementID = 2

	otherParty := base
	otherParty.PartyID = 8
	assert.NoError(t, CheckOverlap(candidate, []ConflictInput{otherParty}))

	otherType := base
	otherType.AgreementType = domain.TypeCustomer
	assert.NoError(t, CheckOverlap(candidate, []ConflictInput{otherType}))
}

func TestCheckOverlap_InactiveExistingIgnored(t *testing.T) {
	existing := ConflictInput{
		AgreementID:   1,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusExpired,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.December, 31),
		ProductIDs:    products(55),
	}
	candidate := existing
	candidate.AgreementID = 2
	candidate.Status = domain.StatusActive

	assert.NoError(t, CheckOverlap(candidate, []ConflictInput{existing}))
}

func TestCheckOverlap_SelfExcluded(t *testing.T) {
	agreement := ConflictInput{
		AgreementID:   1,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.December, 31),
		ProductIDs:    products(55),
	}

	assert.NoError(t, CheckOverlap(agreement, []ConflictInput{agreement}))
}

func TestCheckOverlap_TouchingEndpointsConflict(t *testing.T) {
	// Date ranges are inclusive on both ends, so sharing a single day
	// counts as an intersection.
	existing := ConflictInput{
		AgreementID:   1,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.January, 1),
		EndDate:       date(2026, time.March, 31),
		ProductIDs:    products(55),
	}
	candidate := ConflictInput{
		AgreementID:   2,
		PartyID:       7,
		AgreementType: domain.TypeVendor,
		Status:        domain.StatusActive,
		StartDate:     date(2026, time.March, 31),
		EndDate:       date(2026, time.June, 30),
		ProductIDs:    products(55),
	}

	assert.ErrorIs(t, CheckOverlap(candidate, []ConflictInput{existing}), domain.ErrOverlappingAgreement)
}
