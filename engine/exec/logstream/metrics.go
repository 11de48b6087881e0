// Package logstream implements the Execution Logger (C8): a fixed-capacity
// in-memory ring buffer of log entries, with an optional batched persistent
// sink, filtered queries, and per-execution summaries.
package logstream

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var nodeDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Metrics records per-node timing and phase counts. A nil *Metrics is safe
// to call into; every Record method no-ops in that case, so callers that
// don't wire a meter (e.g. in tests) pay no cost.
type Metrics struct {
	duration metric.Float64Histogram
	nodes    metric.Int64Counter
}

// NewMetrics registers the node-execution instruments against meter.
func NewMetrics(_ context.Context, meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	m.duration, err = meter.Float64Histogram(
		"node_duration_seconds",
		metric.WithDescription("Node execution duration by type and subtype"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(nodeDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("logstream metrics: duration histogram: %w", err)
	}
	m.nodes, err = meter.Int64Counter(
		"nodes_total",
		metric.WithDescription("Total node executions by terminal phase"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("logstream metrics: nodes counter: %w", err)
	}
	return m, nil
}

// RecordDuration observes one node's run time, bucketed by type/subtype.
func (m *Metrics) RecordDuration(ctx context.Context, nodeType, nodeSubtype string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("node_type", nodeType),
		attribute.String("node_subtype", nodeSubtype),
	))
}

// RecordPhase increments the terminal-phase counter.
func (m *Metrics) RecordPhase(ctx context.Context, phase string) {
	if m == nil {
		return
	}
	m.nodes.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))
}
