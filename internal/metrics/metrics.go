package metrics

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Stock decrement outcomes.
const (
	OutcomeOK                = "ok"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeNotFound          = "not_found"
	OutcomeInvalidArgument   = "invalid_argument"
	OutcomeError             = "error"
)

// AppMetrics holds all application metrics. A nil *AppMetrics records nothing.
type AppMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	ProductsCreated      metric.Int64Counter
	StockDecrements      metric.Int64Counter
	StockUnitsSold       metric.Int64Counter
	OrdersConfirmed      metric.Int64Counter
	OrderRevenue         metric.Float64Counter
	EmailFailures        metric.Int64Counter
	ImageCleanupFailures metric.Int64Counter
}

// ProviderConfig selects where metrics are exported.
type ProviderConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// NewProvider builds a meter provider exporting over OTLP/HTTP every ten
// seconds. Without an endpoint the provider has no reader and drops
// everything.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Endpoint != "" {
		exporterOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
		}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)))
		log.Printf("[METRICS] [INFO] exporting to %s/v1/metrics", cfg.Endpoint)
	} else {
		log.Println("[METRICS] [INFO] OTEL_EXPORTER_OTLP_ENDPOINT not set, metrics are not exported")
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)
	return provider, nil
}

// New creates the instruments on meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 2000, 5000, 10000}

	m := &AppMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}
	if m.HTTPRequestsErrors, err = meter.Int64Counter("http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.ProductsCreated, err = meter.Int64Counter("products_created_total",
		metric.WithDescription("Total number of products created"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create products counter: %w", err)
	}
	if m.StockDecrements, err = meter.Int64Counter("stock_decrements_total",
		metric.WithDescription("Stock decrement attempts by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stock decrements counter: %w", err)
	}
	if m.StockUnitsSold, err = meter.Int64Counter("stock_units_decremented_total",
		metric.WithDescription("Units removed from sellable stock"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stock units counter: %w", err)
	}
	if m.OrdersConfirmed, err = meter.Int64Counter("orders_confirmed_total",
		metric.WithDescription("Total number of confirmed orders"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}
	if m.OrderRevenue, err = meter.Float64Counter("order_revenue_total",
		metric.WithDescription("Total value of confirmed orders"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}
	if m.EmailFailures, err = meter.Int64Counter("order_email_failures_total",
		metric.WithDescription("Order confirmation emails that could not be sent"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create email failures counter: %w", err)
	}
	if m.ImageCleanupFailures, err = meter.Int64Counter("image_cleanup_failures_total",
		metric.WithDescription("Stored images that could not be deleted"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create image cleanup counter: %w", err)
	}

	return m, nil
}

func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	if status >= 400 {
		m.HTTPRequestsErrors.Add(ctx, 1, attrs)
	}
	m.HTTPRequestDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

func (m *AppMetrics) RecordStockDecrement(ctx context.Context, outcome string, quantity int) {
	if m == nil {
		return
	}
	m.StockDecrements.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == OutcomeOK && quantity > 0 {
		m.StockUnitsSold.Add(ctx, int64(quantity))
	}
}

func (m *AppMetrics) RecordProductsCreated(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ProductsCreated.Add(ctx, int64(count))
}

func (m *AppMetrics) RecordOrderConfirmed(ctx context.Context, total float64, emailSent bool) {
	if m == nil {
		return
	}
	m.OrdersConfirmed.Add(ctx, 1)
	m.OrderRevenue.Add(ctx, total)
	if !emailSent {
		m.EmailFailures.Add(ctx, 1)
	}
}

func (m *AppMetrics) RecordImageCleanupFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.ImageCleanupFailures.Add(ctx, 1)
}
