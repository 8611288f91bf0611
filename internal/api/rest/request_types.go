package rest

// ScoreRequest is the body of POST /api/v1/score (and the legacy
// /predict alias). Amount carries no "required" tag: zero and negative
// amounts are legal transactions (refunds, reversals) and the domain
// layer only rejects non-finite values.
type ScoreRequest struct {
	UserID     string  `json:"user_id" validate:"required"`
	Amount     float64 `json:"amount"`
	LocationID int32   `json:"location_id" validate:"gte=0"`
	HourOfDay  int     `json:"hour_of_day" validate:"gte=0,lte=23"`
}
