package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider     *metric.MeterProvider
	meter             otelmetric.Meter
	inferenceCounter  otelmetric.Int64Counter
	inferenceDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	inferenceCounter, _ := meter.Int64Counter(
		"inference.requests",
		otelmetric.WithDescription("Number of inference requests processed"),
	)

	inferenceDuration, _ := meter.Float64Histogram(
		"inference.duration",
		otelmetric.WithDescription("Inference request duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:     provider,
		meter:             meter,
		inferenceCounter:  inferenceCounter,
		inferenceDuration: inferenceDuration,
	}
}

// RecordInference records one inference request with its outcome.
func (o *Observability) RecordInference(ctx context.Context, modelName string, duration time.Duration, success bool) {
	if o.inferenceCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("model", modelName),
		attribute.Bool("success", success),
	)
	o.inferenceCounter.Add(ctx, 1, attrs)
	o.inferenceDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown() {
	if o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.meterProvider.Shutdown(ctx); err != nil {
		log.Printf("failed to shut down meter provider: %v", err)
	}
}
