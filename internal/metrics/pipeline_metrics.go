package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("pipeline-metrics")

// PipelineMetrics provides metrics collection for deployment pipeline runs
type PipelineMetrics struct {
	runsStartedCounter     metric.Int64Counter
	runsCompletedCounter   metric.Int64Counter
	runsFailedCounter      metric.Int64Counter
	runDurationHistogram   metric.Float64Histogram
	runsActiveGauge        metric.Int64UpDownCounter
	evaluationsDelivered   metric.Int64Counter
	evaluationsUndelivered metric.Int64Counter
}

// NewPipelineMetrics creates a new pipeline metrics collector
func NewPipelineMetrics() (*PipelineMetrics, error) {
	runsStartedCounter, err := meter.Int64Counter(
		"deploy_orchestrator.runs.started",
		metric.WithDescription("Total number of pipeline runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsCompletedCounter, err := meter.Int64Counter(
		"deploy_orchestrator.runs.completed",
		metric.WithDescription("Total number of pipeline runs completed successfully"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsFailedCounter, err := meter.Int64Counter(
		"deploy_orchestrator.runs.failed",
		metric.WithDescription("Total number of pipeline runs that failed"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDurationHistogram, err := meter.Float64Histogram(
		"deploy_orchestrator.run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runsActiveGauge, err := meter.Int64UpDownCounter(
		"deploy_orchestrator.runs.active",
		metric.WithDescription("Number of currently active pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	evaluationsDelivered, err := meter.Int64Counter(
		"deploy_orchestrator.evaluations.delivered",
		metric.WithDescription("Total number of evaluation callbacks delivered"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, err
	}

	evaluationsUndelivered, err := meter.Int64Counter(
		"deploy_orchestrator.evaluations.undelivered",
		metric.WithDescription("Total number of evaluation callbacks that exhausted retries"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		runsStartedCounter:     runsStartedCounter,
		runsCompletedCounter:   runsCompletedCounter,
		runsFailedCounter:      runsFailedCounter,
		runDurationHistogram:   runDurationHistogram,
		runsActiveGauge:        runsActiveGauge,
		evaluationsDelivered:   evaluationsDelivered,
		evaluationsUndelivered: evaluationsUndelivered,
	}, nil
}

// RecordRunStarted records a new pipeline run
func (pm *PipelineMetrics) RecordRunStarted(ctx context.Context, taskID string, round int) {
	pm.runsStartedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.Int("round", round),
		),
	)
	pm.runsActiveGauge.Add(ctx, 1)
}

// RecordRunCompleted records a successful pipeline run
func (pm *PipelineMetrics) RecordRunCompleted(ctx context.Context, taskID string, round int, duration time.Duration) {
	pm.runsCompletedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.Int("round", round),
			attribute.String("status", "completed"),
		),
	)
	pm.runDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", "completed"),
		),
	)
	pm.runsActiveGauge.Add(ctx, -1)
}

// RecordRunFailed records a failed pipeline run
func (pm *PipelineMetrics) RecordRunFailed(ctx context.Context, taskID string, round int, duration time.Duration) {
	pm.runsFailedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.Int("round", round),
			attribute.String("status", "failed"),
		),
	)
	pm.runDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", "failed"),
		),
	)
	pm.runsActiveGauge.Add(ctx, -1)
}

// RecordEvaluationOutcome records whether the evaluation callback was delivered
func (pm *PipelineMetrics) RecordEvaluationOutcome(ctx context.Context, taskID string, delivered bool) {
	attrs := metric.WithAttributes(attribute.String("task.id", taskID))
	if delivered {
		pm.evaluationsDelivered.Add(ctx, 1, attrs)
		return
	}
	pm.evaluationsUndelivered.Add(ctx, 1, attrs)
}
