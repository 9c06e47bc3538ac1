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
	paymentsRecorded   metric.Int64Counter
	amountRecorded     metric.Int64Counter
	paymentFailures    metric.Int64Counter
	auditWriteFailures metric.Int64Counter
	balanceClamps      metric.Int64Counter
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

// New configures the payment ledger instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "revenue"
	}
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(name)

	paymentsRecorded, err := meter.Int64Counter("revenue_payments_recorded_total",
		metric.WithDescription("Payments committed to the ledger."))
	if err != nil {
		return nil, err
	}
	amountRecorded, err := meter.Int64Counter("revenue_payment_amount_minor_total",
		metric.WithDescription("Sum of committed payment amounts in minor units."))
	if err != nil {
		return nil, err
	}
	paymentFailures, err := meter.Int64Counter("revenue_payment_failures_total",
		metric.WithDescription("Rejected or failed payment submissions by stage and reason."))
	if err != nil {
		return nil, err
	}
	auditWriteFailures, err := meter.Int64Counter("revenue_audit_write_failures_total",
		metric.WithDescription("Audit entries that could not be persisted after commit."))
	if err != nil {
		return nil, err
	}
	balanceClamps, err := meter.Int64Counter("revenue_balance_clamp_total",
		metric.WithDescription("Balance updates clamped at zero."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		paymentsRecorded:   paymentsRecorded,
		amountRecorded:     amountRecorded,
		paymentFailures:    paymentFailures,
		auditWriteFailures: auditWriteFailures,
		balanceClamps:      balanceClamps,
	}, nil
}

// RecordPayment counts a committed payment and its amount.
func (m *Metrics) RecordPayment(ctx context.Context, accountType, method, status string, amountMinor int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("account_type", strings.TrimSpace(accountType)),
		attribute.String("method", strings.TrimSpace(method)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
	if amountMinor > 0 {
		m.amountRecorded.Add(ctx, amountMinor, metric.WithAttributes(attrs...))
	}
}

// RecordPaymentFailure counts a submission that did not commit.
func (m *Metrics) RecordPaymentFailure(ctx context.Context, stage, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("stage", strings.TrimSpace(stage)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.paymentFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuditWriteFailure counts an audit entry lost after commit.
func (m *Metrics) RecordAuditWriteFailure(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.auditWriteFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBalanceClamp counts a balance that would have gone negative.
func (m *Metrics) RecordBalanceClamp(ctx context.Context, target string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("target", strings.TrimSpace(target)))
	m.balanceClamps.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"account_type": {},
	"method":       {},
	"status":       {},
	"status_code":  {},
	"stage":        {},
	"reason":       {},
	"action":       {},
	"target":       {},
	"route":        {},
	"http_method":  {},
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
