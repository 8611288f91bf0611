package scoring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
	apperrors "github.com/fraudscope/transaction-scoring-backend/internal/errors"
	"github.com/fraudscope/transaction-scoring-backend/internal/metrics"
)

// Config holds the tunables of the scoring pipeline
type Config struct {
	// BlockThreshold and ReviewThreshold feed the decision policy
	BlockThreshold  float64
	ReviewThreshold float64
	// ScoreTimeout bounds the model call per request
	ScoreTimeout time.Duration
}

// service implements the Service interface
type service struct {
	store     StateStore
	model     Model
	policy    Policy
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Registry
	publisher ResultPublisher
	tracer    trace.Tracer
}

// NewService creates the scoring pipeline. metrics and publisher are
// optional; logger falls back to slog.Default when nil.
func NewService(
	store StateStore,
	model Model,
	cfg Config,
	logger *slog.Logger,
	registry *metrics.Registry,
	publisher ResultPublisher,
) (Service, error) {
	policy, err := NewPolicy(cfg.BlockThreshold, cfg.ReviewThreshold)
	if err != nil {
		return nil, err
	}

	timeout := cfg.ScoreTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		store:     store,
		model:     model,
		policy:    policy,
		timeout:   timeout,
		logger:    logger,
		metrics:   registry,
		publisher: publisher,
		tracer:    otel.Tracer("service.scoring"),
	}, nil
}

// Score runs the pipeline in strict order: validate, commit the state
// update, derive features from the PRE-update aggregate, score with a
// deadline, decide. A scoring failure after step two is surfaced to the
// caller but the aggregate update is deliberately not rolled back;
// rolling back would reopen the read/compute race the atomic accessor
// exists to close, so the accounting skew of one counted-but-unscored
// transaction is accepted.
func (s *service) Score(ctx context.Context, tx *transaction.Transaction) (*transaction.ScoreResult, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "scoring.Score",
		trace.WithAttributes(attribute.String("entity.key", tx.EntityKey)),
	)
	defer span.End()

	if err := tx.Validate(); err != nil {
		var appErr *apperrors.AppError
		if s.metrics != nil && errors.As(err, &appErr) {
			s.metrics.RecordValidationFailure(ctx, appErr.Code)
		}
		span.RecordError(err)
		return nil, err
	}

	previous, updated := s.store.GetAndUpdate(tx.EntityKey, tx.Amount)
	vector := DeriveFeatures(tx, previous)

	scoreCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	probability, err := s.model.Score(scoreCtx, vector)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			if s.metrics != nil {
				s.metrics.RecordScoringFailure(ctx, "timeout")
			}
			return nil, apperrors.NewTimeoutError("SCORING_TIMEOUT", "model call exceeded deadline").WithCause(err)
		}
		if s.metrics != nil {
			s.metrics.RecordScoringFailure(ctx, "model_error")
		}
		return nil, apperrors.NewInternalError("model scoring failed").WithCause(err)
	}

	if probability < 0 || probability > 1 {
		// A probability outside [0,1] means the artifact does not match
		// what the loader validated; treat it as a configuration error,
		// never clamp silently.
		if s.metrics != nil {
			s.metrics.RecordScoringFailure(ctx, "output_range")
		}
		s.logger.ErrorContext(ctx, "model probability out of range",
			"probability", probability,
			"model_version", s.model.Version(),
		)
		return nil, apperrors.NewInternalError("model produced probability outside [0,1]")
	}

	verdict := s.policy.Decide(probability)

	result := &transaction.ScoreResult{
		EntityKey:               tx.EntityKey,
		Amount:                  tx.Amount,
		FraudProbability:        probability,
		Verdict:                 verdict,
		HistoricalAverageAmount: vector[transaction.FeatureHistoricalAverage],
		AmountDeviationRatio:    vector[transaction.FeatureDeviationRatio],
	}

	span.SetAttributes(
		attribute.Float64("scoring.probability", probability),
		attribute.String("scoring.verdict", string(verdict)),
	)
	if s.metrics != nil {
		s.metrics.RecordScore(ctx, verdict, time.Since(start))
	}
	if s.publisher != nil {
		s.publisher.Publish(result)
	}

	s.logger.InfoContext(ctx, "transaction scored",
		"entity_key", tx.EntityKey,
		"amount", tx.Amount,
		"probability", probability,
		"verdict", string(verdict),
		"deviation", result.AmountDeviationRatio,
		"entity_tx_count", updated.TransactionCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// EntityStats exposes a read-only aggregate snapshot for observability.
func (s *service) EntityStats(key string) (transaction.Aggregate, bool) {
	return s.store.Snapshot(key)
}
