package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	agreementSubmissions metric.Int64Counter
	agreementConflicts   metric.Int64Counter
	claimsCalculated     metric.Int64Counter
	claimTransitions     metric.Int64Counter
	rateLimitDenied      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "catalog"
	}
	meter := provider.Meter(name)

	agreementSubmissions, err := meter.Int64Counter("catalog_rebate_agreement_submissions_total")
	if err != nil {
		return nil, err
	}
	agreementConflicts, err := meter.Int64Counter("catalog_rebate_agreement_conflicts_total")
	if err != nil {
		return nil, err
	}
	claimsCalculated, err := meter.Int64Counter("catalog_rebate_claims_calculated_total")
	if err != nil {
		return nil, err
	}
	claimTransitions, err := meter.Int64Counter("catalog_rebate_claim_transitions_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("catalog_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		agreementSubmissions: agreementSubmissions,
		agreementConflicts:   agreementConflicts,
		claimsCalculated:     claimsCalculated,
		claimTransitions:     claimTransitions,
		rateLimitDenied:      rateLimitDenied,
	}, nil
}

// RecordAgreementSubmission counts create/update submissions by outcome.
func (m *Metrics) RecordAgreementSubmission(ctx context.Context, agreementType, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("agreement_type", strings.TrimSpace(agreementType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.agreementSubmissions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAgreementConflict counts submissions rejected by the overlap check.
func (m *Metrics) RecordAgreementConflict(ctx context.Context, agreementType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("agreement_type", strings.TrimSpace(agreementType)))
	m.agreementConflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordClaimCalculated counts claim computations by rebate unit.
func (m *Metrics) RecordClaimCalculated(ctx context.Context, rebateUnit string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("rebate_unit", strings.TrimSpace(rebateUnit)))
	m.claimsCalculated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordClaimTransition counts lifecycle moves by target status.
func (m *Metrics) RecordClaimTransition(ctx context.Context, target string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("target_status", strings.TrimSpace(target)))
	m.claimTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied counts throttled requests per endpoint.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"agreement_type": {},
	"outcome":        {},
	"rebate_unit":    {},
	"target_status":  {},
	"endpoint":       {},
	"status_code":    {},
	"reason":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Party and product identifiers never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
