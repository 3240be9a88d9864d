package service

import (
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// matchTier finds the tier whose range contains the accumulated value.
// Lower bounds are inclusive, upper bounds exclusive; an open-ended top
// tier accepts anything at or above its lower bound. Returns nil when no
// tier contains the value.
func matchTier(tiers []rebatedomain.RebateTier, basis string, accumulated decimal.Decimal) *rebatedomain.RebateTier {
	for i := range tiers {
		tier := &tiers[i]

		from := decimal.Zero
		if lower := tier.From(basis); lower != nil {
			from = *lower
		}
		if accumulated.LessThan(from) {
			continue
		}

		to := tier.To(basis)
		if to != nil && !accumulated.LessThan(*to) {
			continue
		}
		return tier
	}
	return nil
}

// computeAmount applies the matched tier's rate to the accumulated value.
// The result only depends on its inputs, so recalculation with the same
// inputs always reproduces the same amount.
func computeAmount(tier *rebatedomain.RebateTier, accumulated decimal.Decimal, places int32) decimal.Decimal {
	var amount decimal.Decimal
	switch tier.RebateUnit {
	case rebatedomain.RatePercentage:
		amount = accumulated.Mul(tier.RebateValue).Div(hundred)
	case rebatedomain.RatePerUnit:
		amount = accumulated.Mul(tier.RebateValue)
	case rebatedomain.RateFixed:
		amount = tier.RebateValue
	}
	return amount.Round(places)
}
