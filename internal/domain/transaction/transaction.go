package transaction

import (
	"math"

	apperrors "github.com/fraudscope/transaction-scoring-backend/internal/errors"
)

// Verdict is the decision rendered for a scored transaction
type Verdict string

const (
	VerdictLegit  Verdict = "LEGIT"
	VerdictReview Verdict = "REVIEW"
	VerdictBlock  Verdict = "BLOCK"
)

// Transaction is a single inbound payment event to be scored
type Transaction struct {
	EntityKey  string
	Amount     float64
	LocationID int32
	HourOfDay  int
}

// Validate checks the minimal input contract before any state or model
// access. The amount only has to be finite: non-positive amounts are
// unusual but must not break the engine.
func (t *Transaction) Validate() error {
	if t.EntityKey == "" {
		return apperrors.NewValidationError("EMPTY_ENTITY_KEY", "entity key must not be empty")
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return apperrors.NewValidationError("NON_FINITE_AMOUNT", "amount must be a finite number")
	}
	if t.HourOfDay < 0 || t.HourOfDay > 23 {
		return apperrors.NewValidationError("HOUR_OUT_OF_RANGE", "hour_of_day must be in [0,23]")
	}
	return nil
}

// Aggregate is the running per-entity behavioral state. The zero value
// is a valid aggregate for an entity that has never transacted.
/// Invariant: TransactionCount == 0 implies TotalAmount == 0.
type Aggregate struct {
	TotalAmount      float64
	TransactionCount uint64
}

// Average returns the historical mean transaction amount, or 0 for an
// entity with no history.
func (a Aggregate) Average() float64 {
	if a.TransactionCount == 0 {
		return 0
	}
	return a.TotalAmount / float64(a.TransactionCount)
}

// FeatureVector is the fixed-order numeric input to the scoring model.
// The order is a contract with the model artifact and must only change
// together with it.
type FeatureVector [FeatureCount]float64

// Feature vector indices
const (
	FeatureAmount = iota
	FeatureLocationID
	FeatureHourOfDay
	FeatureHistoricalAverage
	FeatureDeviationRatio

	FeatureCount = 5
)

// FeatureNames returns the canonical feature names in vector order.
// Model artifacts declare their expected feature names and the loader
// rejects any artifact that disagrees with this order.
func FeatureNames() []string {
	return []string{
		"amount",
		"location_id",
		"hour_of_day",
		"historical_average_amount",
		"amount_deviation_ratio",
	}
}

// ScoreResult is the outcome of scoring a single transaction
type ScoreResult struct {
	EntityKey               string
	Amount                  float64
	FraudProbability        float64
	Verdict                 Verdict
	HistoricalAverageAmount float64
	AmountDeviationRatio    float64
}
