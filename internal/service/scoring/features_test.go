package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

func TestDeriveFeatures_FirstSeen(t *testing.T) {
	tx := &transaction.Transaction{EntityKey: "u1", Amount: 50, LocationID: 2, HourOfDay: 14}

	v := DeriveFeatures(tx, transaction.Aggregate{})

	assert.Equal(t, 50.0, v[transaction.FeatureAmount])
	assert.Equal(t, 2.0, v[transaction.FeatureLocationID])
	assert.Equal(t, 14.0, v[transaction.FeatureHourOfDay])
	assert.Equal(t, 50.0, v[transaction.FeatureHistoricalAverage])
	assert.Equal(t, 1.0, v[transaction.FeatureDeviationRatio])
}

func TestDeriveFeatures_WithHistory(t *testing.T) {
	tx := &transaction.Transaction{EntityKey: "u1", Amount: 300, LocationID: 1, HourOfDay: 9}
	prev := transaction.Aggregate{TotalAmount: 100, TransactionCount: 1}

	v := DeriveFeatures(tx, prev)

	assert.Equal(t, 100.0, v[transaction.FeatureHistoricalAverage])
	assert.Equal(t, 3.0, v[transaction.FeatureDeviationRatio])
}

func TestDeriveFeatures_DegenerateAverage(t *testing.T) {
	// A zero-amount history gives an average of exactly 0; the ratio
	// denominator is substituted with 1.0 so the ratio equals the raw
	// amount.
	tx := &transaction.Transaction{EntityKey: "u1", Amount: 75, HourOfDay: 3}
	prev := transaction.Aggregate{TotalAmount: 0, TransactionCount: 2}

	v := DeriveFeatures(tx, prev)

	assert.Equal(t, 1.0, v[transaction.FeatureHistoricalAverage])
	assert.Equal(t, 75.0, v[transaction.FeatureDeviationRatio])
}

func TestDeriveFeatures_FirstSeenZeroAmount(t *testing.T) {
	// First transaction with amount 0: first-seen baseline is 0, which
	// then triggers the degenerate substitution.
	tx := &transaction.Transaction{EntityKey: "u1", Amount: 0, HourOfDay: 0}

	v := DeriveFeatures(tx, transaction.Aggregate{})

	assert.Equal(t, 1.0, v[transaction.FeatureHistoricalAverage])
	assert.Equal(t, 0.0, v[transaction.FeatureDeviationRatio])
}

func TestDeriveFeatures_Pure(t *testing.T) {
	tx := &transaction.Transaction{EntityKey: "u1", Amount: 120, LocationID: 3, HourOfDay: 22}
	prev := transaction.Aggregate{TotalAmount: 240, TransactionCount: 4}

	first := DeriveFeatures(tx, prev)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DeriveFeatures(tx, prev))
	}
}
