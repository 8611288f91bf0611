package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
	apperrors "github.com/fraudscope/transaction-scoring-backend/internal/errors"
	"github.com/fraudscope/transaction-scoring-backend/internal/service/scoring"
)

// Handler holds the scoring endpoints. It translates between the wire
// DTOs and the domain types and owns no scoring logic.
type Handler struct {
	scoring      scoring.Service
	validate     *validator.Validate
	logger       *slog.Logger
	modelVersion string
}

// NewHandler creates the endpoint handler set.
func NewHandler(svc scoring.Service, logger *slog.Logger, modelVersion string) *Handler {
	return &Handler{
		scoring:      svc,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger,
		modelVersion: modelVersion,
	}
}

// handleScore scores a single transaction.
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	tx := &transaction.Transaction{
		EntityKey:  req.UserID,
		Amount:     req.Amount,
		LocationID: req.LocationID,
		HourOfDay:  req.HourOfDay,
	}

	result, err := h.scoring.Score(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if h.modelVersion != "" {
		w.Header().Set("X-Model-Version", h.modelVersion)
	}
	writeJSON(w, http.StatusOK, ScoreResponse{
		UserID:           result.EntityKey,
		Amount:           result.Amount,
		FraudProbability: result.FraudProbability,
		Status:           string(result.Verdict),
		Context: ScoreContext{
			AvgSpend:  result.HistoricalAverageAmount,
			Deviation: result.AmountDeviationRatio,
		},
	})
}

// handleEntityStats exposes the tracked aggregate for one entity.
func (h *Handler) handleEntityStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	agg, ok := h.scoring.EntityStats(userID)
	if !ok {
		writeError(w, r, apperrors.NewNotFoundError("entity "+userID))
		return
	}

	writeJSON(w, http.StatusOK, EntityStatsResponse{
		UserID:           userID,
		TransactionCount: agg.TransactionCount,
		TotalAmount:      agg.TotalAmount,
		AverageAmount:    agg.Average(),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
