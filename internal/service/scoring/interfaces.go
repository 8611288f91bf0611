package scoring

import (
	"context"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

// Service is the request-scoring pipeline: derive features from the
// entity's behavioral state, score, decide, and commit the state
// update, atomically per entity.
type Service interface {
	// Score runs the full pipeline for one transaction
	Score(ctx context.Context, tx *transaction.Transaction) (*transaction.ScoreResult, error)
	// EntityStats returns the current aggregate for an entity key
	EntityStats(key string) (transaction.Aggregate, bool)
}

// Model is the opaque pretrained classifier
type Model interface {
	// Score maps a feature vector to a fraud probability in [0,1]
	Score(ctx context.Context, v transaction.FeatureVector) (float64, error)
	// Version identifies the loaded artifact
	Version() string
}

// StateStore is the per-entity aggregate store. GetAndUpdate must be a
// single atomic read-modify-write per key.
type StateStore interface {
	GetAndUpdate(key string, amount float64) (previous, updated transaction.Aggregate)
	Snapshot(key string) (transaction.Aggregate, bool)
	Len() int
}

// ResultPublisher receives every successfully scored result, e.g. to
// fan it out to live monitoring clients. Publish must not block the
// scoring path.
type ResultPublisher interface {
	Publish(result *transaction.ScoreResult)
}
