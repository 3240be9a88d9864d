package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("agreement_type", "vendor"),
		attribute.String("party_id", "456"),
		attribute.String("rebate_unit", "percentage"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "party_id" {
			t.Fatalf("expected party_id to be dropped")
		}
	}
}
