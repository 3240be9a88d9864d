package service

import (
	"fmt"
	"time"

	"github.com/harborline/catalog/internal/rebate/domain"
)

// ConflictInput is the already-expanded view of an agreement the overlap
// check operates on. Category associations are resolved to concrete
// product IDs by the caller so the check itself stays pure.
type ConflictInput struct {
	AgreementID   int64
	Description   string
	PartyID       int64
	AgreementType string
	Status        string
	StartDate     time.Time
	EndDate       time.Time
	ProductIDs    map[int64]struct{}
}

// CheckOverlap rejects the candidate when an existing active agreement
// for the same party and type covers an intersecting date range and at
// least one common product.
func CheckOverlap(candidate ConflictInput, existing []ConflictInput) error {
	for _, other := range existing {
		if other.AgreementID == candidate.AgreementID {
			continue
		}
		if other.PartyID != candidate.PartyID || other.AgreementType != candidate.AgreementType {
			continue
		}
		if other.Status != domain.StatusActive {
			continue
		}
		if !datesIntersect(candidate.StartDate, candidate.EndDate, other.StartDate, other.EndDate) {
			continue
		}
		if !productsIntersect(candidate.ProductIDs, other.ProductIDs) {
			continue
		}
		return fmt.Errorf("%w: conflicts with %q", domain.ErrOverlappingAgreement, other.Description)
	}
	return nil
}

// Date ranges are inclusive on both ends.
func datesIntersect(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

func productsIntersect(a, b map[int64]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for id := range a {
		if _, ok := b[id]; ok {
			return true
		}
	}
	return false
}
