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
	evaluations         metric.Int64Counter
	groupEvalFailures   metric.Int64Counter
	expressionsRejected metric.Int64Counter
	snapshotRefreshes   metric.Int64Counter
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
		name = "beacon"
	}
	meter := provider.Meter(name)

	evaluations, err := meter.Int64Counter("beacon_evaluations_total")
	if err != nil {
		return nil, err
	}
	groupEvalFailures, err := meter.Int64Counter("beacon_group_eval_failures_total")
	if err != nil {
		return nil, err
	}
	expressionsRejected, err := meter.Int64Counter("beacon_expressions_rejected_total")
	if err != nil {
		return nil, err
	}
	snapshotRefreshes, err := meter.Int64Counter("beacon_snapshot_refreshes_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		evaluations:         evaluations,
		groupEvalFailures:   groupEvalFailures,
		expressionsRejected: expressionsRejected,
		snapshotRefreshes:   snapshotRefreshes,
	}, nil
}

// RecordEvaluation increments evaluation counts by outcome.
func (m *Metrics) RecordEvaluation(ctx context.Context, ruleType string, enabled bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("rule_type", strings.TrimSpace(ruleType)),
		attribute.Bool("enabled", enabled),
	)
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGroupEvalFailure increments swallowed group evaluation errors.
func (m *Metrics) RecordGroupEvalFailure(ctx context.Context, group string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("group", strings.TrimSpace(group)))
	m.groupEvalFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordExpressionRejected increments validator rejections by check kind.
func (m *Metrics) RecordExpressionRejected(ctx context.Context, check string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("check", strings.TrimSpace(check)))
	m.expressionsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSnapshotRefresh increments read-path cache refreshes.
func (m *Metrics) RecordSnapshotRefresh(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.snapshotRefreshes.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"rule_type": {},
	"enabled":   {},
	"group":     {},
	"check":     {},
	"kind":      {},
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
