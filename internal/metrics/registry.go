package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

// Registry holds the scoring-domain metrics for the application
type Registry struct {
	meter metric.Meter

	ScoringDuration    metric.Float64Histogram
	TransactionsScored metric.Int64Counter
	ValidationFailures metric.Int64Counter
	ScoringFailures    metric.Int64Counter
	TrackedEntities    metric.Int64ObservableGauge
}

// NewRegistry creates the metrics registry. entityCount feeds the
// tracked-entities gauge and is read on every metric export.
func NewRegistry(meterName string, entityCount func() int64) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error

	r.ScoringDuration, err = meter.Float64Histogram(
		"fds.scoring.duration",
		metric.WithDescription("End-to-end transaction scoring duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500),
	)
	if err != nil {
		return nil, err
	}

	r.TransactionsScored, err = meter.Int64Counter(
		"fds.scoring.transactions_total",
		metric.WithDescription("Total number of transactions scored, by verdict"),
	)
	if err != nil {
		return nil, err
	}

	r.ValidationFailures, err = meter.Int64Counter(
		"fds.scoring.validation_failures_total",
		metric.WithDescription("Total number of transactions rejected before touching state"),
	)
	if err != nil {
		return nil, err
	}

	r.ScoringFailures, err = meter.Int64Counter(
		"fds.scoring.failures_total",
		metric.WithDescription("Total number of model scoring failures, by reason"),
	)
	if err != nil {
		return nil, err
	}

	r.TrackedEntities, err = meter.Int64ObservableGauge(
		"fds.state.tracked_entities",
		metric.WithDescription("Number of entities with a live behavioral aggregate"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if entityCount != nil {
				o.Observe(entityCount())
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordScore records a completed scoring request.
func (r *Registry) RecordScore(ctx context.Context, verdict transaction.Verdict, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("verdict", string(verdict)))
	r.ScoringDuration.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
	r.TransactionsScored.Add(ctx, 1, attrs)
}

// RecordValidationFailure records a request rejected during validation.
func (r *Registry) RecordValidationFailure(ctx context.Context, code string) {
	r.ValidationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordScoringFailure records a model call failure.
func (r *Registry) RecordScoringFailure(ctx context.Context, reason string) {
	r.ScoringFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
