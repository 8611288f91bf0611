package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

func TestPolicy_Decide_Boundaries(t *testing.T) {
	policy, err := NewPolicy(DefaultBlockThreshold, DefaultReviewThreshold)
	require.NoError(t, err)

	tests := []struct {
		probability float64
		want        transaction.Verdict
	}{
		{0.0, transaction.VerdictLegit},
		{0.50, transaction.VerdictLegit},   // threshold is exclusive
		{0.5001, transaction.VerdictReview},
		{0.90, transaction.VerdictReview},  // threshold is exclusive
		{0.9001, transaction.VerdictBlock},
		{1.0, transaction.VerdictBlock},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Decide(tt.probability), "probability %v", tt.probability)
	}
}

func TestPolicy_Decide_Pure(t *testing.T) {
	policy, err := NewPolicy(0.9, 0.5)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, transaction.VerdictReview, policy.Decide(0.75))
	}
}

func TestNewPolicy_Validation(t *testing.T) {
	tests := []struct {
		name          string
		block, review float64
	}{
		{"review above block", 0.5, 0.9},
		{"equal thresholds", 0.5, 0.5},
		{"zero block", 0, 0.5},
		{"block above one", 1.5, 0.5},
		{"negative review", 0.9, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.block, tt.review)
			assert.Error(t, err)
		})
	}
}
