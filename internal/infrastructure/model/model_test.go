package model

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

func writeArtifact(t *testing.T, a map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func validArtifact() map[string]interface{} {
	return map[string]interface{}{
		"model_version": "fraud-v3",
		"feature_names": []string{
			"amount", "location_id", "hour_of_day",
			"historical_average_amount", "amount_deviation_ratio",
		},
		"classes":   []int{0, 1},
		"weights":   []float64{0.002, 0.8, 0.01, -0.001, 1.2},
		"intercept": -4.0,
	}
}

func TestLoad_ValidArtifact(t *testing.T) {
	c, err := Load(writeArtifact(t, validArtifact()))

	require.NoError(t, err)
	assert.Equal(t, "fraud-v3", c.Version())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_RejectsBadShape(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{
			name: "wrong class ordering",
			mutate: func(a map[string]interface{}) {
				a["classes"] = []int{1, 0}
			},
		},
		{
			name: "single class",
			mutate: func(a map[string]interface{}) {
				a["classes"] = []int{1}
			},
		},
		{
			name: "wrong feature name",
			mutate: func(a map[string]interface{}) {
				a["feature_names"] = []string{
					"amount", "location_id", "hour_of_day",
					"avg_amount", "amount_deviation_ratio",
				}
			},
		},
		{
			name: "feature count mismatch",
			mutate: func(a map[string]interface{}) {
				a["feature_names"] = []string{"amount"}
			},
		},
		{
			name: "weight count mismatch",
			mutate: func(a map[string]interface{}) {
				a["weights"] = []float64{0.1, 0.2}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArtifact()
			tt.mutate(a)
			_, err := Load(writeArtifact(t, a))
			assert.Error(t, err)
		})
	}
}

func TestClassifier_Score_Bounds(t *testing.T) {
	c, err := Load(writeArtifact(t, validArtifact()))
	require.NoError(t, err)

	vectors := []transaction.FeatureVector{
		{},
		{10, 0, 3, 10, 1},
		{2000, 3, 23, 50, 40},
		{-100, 0, 0, 1, -100},
	}
	for _, v := range vectors {
		p, err := c.Score(context.Background(), v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestClassifier_Score_MonotonicInDeviation(t *testing.T) {
	c, err := Load(writeArtifact(t, validArtifact()))
	require.NoError(t, err)

	low, err := c.Score(context.Background(), transaction.FeatureVector{50, 1, 12, 50, 1})
	require.NoError(t, err)
	high, err := c.Score(context.Background(), transaction.FeatureVector{500, 1, 12, 50, 10})
	require.NoError(t, err)

	// The deviation weight is positive, so a larger deviation ratio
	// must yield a larger fraud probability.
	assert.Greater(t, high, low)
}

func TestClassifier_Score_ExpiredContext(t *testing.T) {
	c, err := Load(writeArtifact(t, validArtifact()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Score(ctx, transaction.FeatureVector{10, 0, 3, 10, 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifier_Score_Concurrent(t *testing.T) {
	c, err := Load(writeArtifact(t, validArtifact()))
	require.NoError(t, err)

	want, err := c.Score(context.Background(), transaction.FeatureVector{100, 2, 8, 100, 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				p, err := c.Score(context.Background(), transaction.FeatureVector{100, 2, 8, 100, 1})
				assert.NoError(t, err)
				assert.Equal(t, want, p)
			}
		}()
	}
	wg.Wait()
}
