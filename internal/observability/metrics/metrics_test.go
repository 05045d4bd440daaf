package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tier", "free"),
		attribute.String("card_number", "4111111111111111"),
		attribute.String("decision", "allowed"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "card_number" {
			t.Fatalf("expected card_number to be dropped")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordDecision(ctx, true, "free")
	m.RecordClassification(ctx, "Visa", true)
	m.RecordBotUpdate(ctx, "history")
	m.RecordPaymentEvent(ctx, "stub", "upgraded")

	var h *HTTPMetrics
	h.Record(ctx, "GET", "/health", 200, 0)
}
