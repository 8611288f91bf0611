package scoring

import (
	"fmt"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

// Default decision thresholds, overridable via configuration.
const (
	DefaultBlockThreshold  = 0.90
	DefaultReviewThreshold = 0.50
)

// Policy maps a fraud probability to a verdict. Both thresholds are
// exclusive: a probability exactly at the block threshold is a REVIEW,
// exactly at the review threshold a LEGIT.
type Policy struct {
	block  float64
	review float64
}

// NewPolicy validates and builds a decision policy.
func NewPolicy(block, review float64) (Policy, error) {
	if block <= 0 || block > 1 || review <= 0 || review > 1 {
		return Policy{}, fmt.Errorf("decision thresholds must be in (0,1], got block=%v review=%v", block, review)
	}
	if review >= block {
		return Policy{}, fmt.Errorf("review threshold %v must be below block threshold %v", review, block)
	}
	return Policy{block: block, review: review}, nil
}

// Decide is a pure, total function over [0,1].
func (p Policy) Decide(probability float64) transaction.Verdict {
	switch {
	case probability > p.block:
		return transaction.VerdictBlock
	case probability > p.review:
		return transaction.VerdictReview
	default:
		return transaction.VerdictLegit
	}
}
