package rest

// ScoreContext explains the behavioral signal behind a verdict.
type ScoreContext struct {
	AvgSpend  float64 `json:"avg_spend"`
	Deviation float64 `json:"deviation"`
}

// ScoreResponse is the wire form of a scoring verdict.
type ScoreResponse struct {
	UserID           string       `json:"user_id"`
	Amount           float64      `json:"amount"`
	FraudProbability float64      `json:"fraud_probability"`
	Status           string       `json:"status"`
	Context          ScoreContext `json:"context"`
}

// EntityStatsResponse reports the tracked aggregate for one entity.
type EntityStatsResponse struct {
	UserID           string  `json:"user_id"`
	TransactionCount uint64  `json:"transaction_count"`
	TotalAmount      float64 `json:"total_amount"`
	AverageAmount    float64 `json:"average_amount"`
}
