package service

import (
	"testing"

	"github.com/harborline/catalog/internal/rebate/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func tier(from, to *decimal.Decimal, value, unit string) domain.TierInput {
	return domain.TierInput{
		From:  from,
		To:    to,
		Value: decimal.RequireFromString(value),
		Unit:  unit,
	}
}

func TestValidateTiers_ContiguousAccepted(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("0"), dec("100"), "5", domain.RatePercentage),
		tier(dec("100"), nil, "8", domain.RatePercentage),
	}
	assert.NoError(t, ValidateTiers(tiers, domain.BasisQuantity))
}

func TestValidateTiers_GapsAccepted(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("0"), dec("50"), "2", domain.RatePercentage),
		tier(dec("80"), dec("200"), "4", domain.RatePercentage),
	}
	assert.NoError(t, ValidateTiers(tiers, domain.BasisAmount))
}

func TestValidateTiers_UnsortedInputAccepted(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("100"), nil, "8", domain.RatePercentage),
		tier(dec("0"), dec("100"), "5", domain.RatePercentage),
	}
	assert.NoError(t, ValidateTiers(tiers, domain.BasisQuantity))
}

func TestValidateTiers_OverlapRejected(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("0"), dec("10"), "1", domain.RatePercentage),
		tier(dec("5"), dec("20"), "2", domain.RatePercentage),
	}
	err := ValidateTiers(tiers, domain.BasisQuantity)
	assert.ErrorIs(t, err, domain.ErrOverlappingTiers)
}

func TestValidateTiers_InvertedRangeRejected(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("50"), dec("50"), "1", domain.RatePercentage),
	}
	err := ValidateTiers(tiers, domain.BasisQuantity)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestValidateTiers_MissingLowerBoundOnlyLeading(t *testing.T) {
	leading := []domain.TierInput{
		tier(nil, dec("100"), "5", domain.RatePercentage),
		tier(dec("100"), nil, "8", domain.RatePercentage),
	}
	assert.NoError(t, ValidateTiers(leading, domain.BasisQuantity))

	nonLeading := []domain.TierInput{
		tier(dec("0"), dec("100"), "5", domain.RatePercentage),
		tier(nil, nil, "8", domain.RatePercentage),
	}
	err := ValidateTiers(nonLeading, domain.BasisQuantity)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestValidateTiers_OpenEndedOnlyOnTop(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("0"), nil, "5", domain.RatePercentage),
		tier(dec("100"), dec("200"), "8", domain.RatePercentage),
	}
	err := ValidateTiers(tiers, domain.BasisQuantity)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestValidateTiers_PerUnitRequiresQuantityBasis(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("0"), dec("50"), "2", domain.RatePerUnit),
	}
	assert.NoError(t, ValidateTiers(tiers, domain.BasisQuantity))
	assert.ErrorIs(t, ValidateTiers(tiers, domain.BasisAmount), domain.ErrInvalidUnit)
}

func TestValidateTiers_UnknownUnitRejected(t *testing.T) {
	tiers := []domain.TierInput{
		tier(dec("0"), dec("50"), "2", "bogus"),
	}
	assert.ErrorIs(t, ValidateTiers(tiers, domain.BasisQuantity), domain.ErrInvalidUnit)
}

func TestValidateTiers_EmptyListAccepted(t *testing.T) {
	assert.NoError(t, ValidateTiers(nil, domain.BasisQuantity))
}
