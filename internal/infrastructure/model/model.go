// Package model adapts the pretrained fraud classifier artifact for
// in-process inference. The artifact is decoded once at startup into an
// immutable coefficient structure; every validation that could make
// request-time scoring mis-index its output happens at load time.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

// artifact is the on-disk classifier format: a binary logistic scorer
// with explicit feature ordering and class list.
type artifact struct {
	ModelVersion string    `json:"model_version"`
	FeatureNames []string  `json:"feature_names"`
	Classes      []int     `json:"classes"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
}

// Classifier scores a feature vector to a fraud probability. It is
// immutable after Load and therefore safe for concurrent use from any
// number of request goroutines without locking; that is the documented
// concurrency strategy for this adapter.
type Classifier struct {
	version   string
	weights   transaction.FeatureVector
	intercept float64
}

// Load reads and validates a classifier artifact. Any shape mismatch is
// a configuration error and fails the load; the process must not serve
// traffic with a model whose output could be mis-indexed.
func Load(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decoding model artifact: %w", err)
	}

	// The pipeline consumes the probability of the positive class by
	// fixed index 1; the artifact must declare exactly that ordering.
	if len(a.Classes) != 2 || a.Classes[0] != 0 || a.Classes[1] != 1 {
		return nil, fmt.Errorf("model artifact classes must be [0 1], got %v", a.Classes)
	}

	expected := transaction.FeatureNames()
	if len(a.FeatureNames) != len(expected) {
		return nil, fmt.Errorf("model artifact declares %d features, expected %d",
			len(a.FeatureNames), len(expected))
	}
	for i, name := range expected {
		if a.FeatureNames[i] != name {
			return nil, fmt.Errorf("model artifact feature %d is %q, expected %q",
				i, a.FeatureNames[i], name)
		}
	}

	if len(a.Weights) != len(expected) {
		return nil, fmt.Errorf("model artifact has %d weights, expected %d",
			len(a.Weights), len(expected))
	}

	c := &Classifier{
		version:   a.ModelVersion,
		intercept: a.Intercept,
	}
	for i, w := range a.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("model artifact weight %d is not finite", i)
		}
		c.weights[i] = w
	}
	if math.IsNaN(a.Intercept) || math.IsInf(a.Intercept, 0) {
		return nil, fmt.Errorf("model artifact intercept is not finite")
	}

	return c, nil
}

// Score returns the fraud probability for the given feature vector.
// The context is consulted so that a caller-imposed deadline that has
// already expired is honored before doing any work.
func (c *Classifier) Score(ctx context.Context, v transaction.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	z := c.intercept
	for i := range v {
		z += c.weights[i] * v[i]
	}

	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced non-numeric probability for vector %v", v)
	}
	return p, nil
}

// Version returns the artifact's model version string.
func (c *Classifier) Version() string {
	return c.version
}
