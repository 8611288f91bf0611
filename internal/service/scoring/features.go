package scoring

import (
	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

// DeriveFeatures builds the model input vector from a transaction and
// the entity's pre-transaction aggregate. Pure: no side effects, no
// failure modes.
//
// First-seen policy: an entity with no history uses the current amount
// as its own baseline, which yields a deviation ratio of exactly 1.0.
// Degenerate-average policy: a historical average of exactly 0 is
// substituted with 1.0 so the ratio stays defined; the ratio then
// equals the raw amount.
func DeriveFeatures(tx *transaction.Transaction, previous transaction.Aggregate) transaction.FeatureVector {
	average := previous.Average()
	if previous.TransactionCount == 0 {
		average = tx.Amount
	}
	if average == 0 {
		average = 1.0
	}

	var v transaction.FeatureVector
	v[transaction.FeatureAmount] = tx.Amount
	v[transaction.FeatureLocationID] = float64(tx.LocationID)
	v[transaction.FeatureHourOfDay] = float64(tx.HourOfDay)
	v[transaction.FeatureHistoricalAverage] = average
	v[transaction.FeatureDeviationRatio] = tx.Amount / average
	return v
}
