package service

import (
	"sort"

	"github.com/harborline/catalog/internal/rebate/domain"
	"github.com/shopspring/decimal"
)

// ValidateTiers checks that a submitted tier list is well formed for the
// given basis: lower bounds are present except possibly on the lowest
// tier, every bounded tier has from < to, and sorted ranges do not
// overlap. Touching boundaries (previous.to == next.from) are accepted.
// Only the highest tier may leave its upper bound open.
func ValidateTiers(tiers []domain.TierInput, basis string) error {
	if len(tiers) == 0 {
		return nil
	}
	if basis != domain.BasisQuantity && basis != domain.BasisAmount {
		return domain.ErrInvalidBasis
	}

	sorted := make([]domain.TierInput, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lowerBound(sorted[i]).LessThan(lowerBound(sorted[j]))
	})

	for i, tier := range sorted {
		// A missing lower bound is only tolerated on the lowest tier,
		// where it reads as zero.
		if tier.From == nil && i > 0 {
			return domain.ErrInvalidRange
		}
		if tier.To != nil && !lowerBound(tier).LessThan(*tier.To) {
			return domain.ErrInvalidRange
		}
		// An open upper bound anywhere but the top tier would swallow
		// every tier above it.
		if tier.To == nil && i != len(sorted)-1 {
			return domain.ErrInvalidRange
		}

		switch tier.Unit {
		case domain.RatePercentage, domain.RatePerUnit, domain.RateFixed:
		default:
			return domain.ErrInvalidUnit
		}
		if tier.Unit == domain.RatePerUnit && basis != domain.BasisQuantity {
			return domain.ErrInvalidUnit
		}
	}

	for i := 1; i < len(sorted); i++ {
		previous := sorted[i-1]
		if previous.To == nil {
			continue
		}
		if previous.To.GreaterThan(lowerBound(sorted[i])) {
			return domain.ErrOverlappingTiers
		}
	}

	return nil
}

func lowerBound(tier domain.TierInput) decimal.Decimal {
	if tier.From == nil {
		return decimal.Zero
	}
	return *tier.From
}
