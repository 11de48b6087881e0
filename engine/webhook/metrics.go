package webhook

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var overallDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Metrics records webhook-ingress counters and latency histograms.
type Metrics struct {
	received metric.Int64Counter
	overall  metric.Float64Histogram
}

// NewMetrics registers the webhook instruments against meter.
func NewMetrics(_ context.Context, meter metric.Meter) *Metrics {
	m := &Metrics{}
	var err error
	m.received, err = meter.Int64Counter(
		"webhook_received_total",
		metric.WithDescription("Total webhook deliveries received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		panic(fmt.Errorf("webhook metrics: received counter: %w", err))
	}
	m.overall, err = meter.Float64Histogram(
		"webhook_overall_duration_seconds",
		metric.WithDescription("End-to-end webhook processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(overallDurationBuckets...),
	)
	if err != nil {
		panic(fmt.Errorf("webhook metrics: overall duration histogram: %w", err))
	}
	return m
}

// OnReceived records one inbound delivery for slug/workflowID.
func (m *Metrics) OnReceived(ctx context.Context, slug, workflowID string) {
	m.received.Add(ctx, 1, metric.WithAttributes(
		attribute.String("slug", slug),
		attribute.String("workflow_id", workflowID),
	))
}

// ObserveOverall records the end-to-end processing duration for a delivery.
func (m *Metrics) ObserveOverall(ctx context.Context, slug, workflowID string, d time.Duration) {
	m.overall.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("slug", slug),
		attribute.String("workflow_id", workflowID),
	))
}
