package metrics

import (
	"context"
	"fmt"
	"strconv"
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
	quotaDecisions  metric.Int64Counter
	classifications metric.Int64Counter
	botUpdates      metric.Int64Counter
	paymentEvents   metric.Int64Counter
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
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "cardwatch"
	}
	meter := provider.Meter(name)

	quotaDecisions, err := meter.Int64Counter("cardwatch_quota_decisions_total")
	if err != nil {
		return nil, err
	}
	classifications, err := meter.Int64Counter("cardwatch_card_classifications_total")
	if err != nil {
		return nil, err
	}
	botUpdates, err := meter.Int64Counter("cardwatch_bot_updates_total")
	if err != nil {
		return nil, err
	}
	paymentEvents, err := meter.Int64Counter("cardwatch_payment_events_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		quotaDecisions:  quotaDecisions,
		classifications: classifications,
		botUpdates:      botUpdates,
		paymentEvents:   paymentEvents,
	}, nil
}

// RecordDecision increments quota decision counts.
func (m *Metrics) RecordDecision(ctx context.Context, allowed bool, tier string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("decision", decisionLabel(allowed)),
		attribute.String("tier", strings.TrimSpace(tier)),
	)
	m.quotaDecisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordClassification increments card classification counts.
func (m *Metrics) RecordClassification(ctx context.Context, network string, valid bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("network", strings.TrimSpace(network)),
		attribute.String("valid", strconv.FormatBool(valid)),
	)
	m.classifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBotUpdate increments handled bot update counts.
func (m *Metrics) RecordBotUpdate(ctx context.Context, command string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("command", strings.TrimSpace(command)))
	m.botUpdates.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPaymentEvent increments payment confirmation counts.
func (m *Metrics) RecordPaymentEvent(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func decisionLabel(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
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
	"decision":    {},
	"tier":        {},
	"network":     {},
	"valid":       {},
	"command":     {},
	"provider":    {},
	"outcome":     {},
	"endpoint":    {},
	"status_code": {},
	"method":      {},
	"route":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
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
