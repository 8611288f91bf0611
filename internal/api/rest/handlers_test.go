package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
	apperrors "github.com/fraudscope/transaction-scoring-backend/internal/errors"
)

// stubScoring returns canned results without touching state or a model.
type stubScoring struct {
	result *transaction.ScoreResult
	err    error
	stats  map[string]transaction.Aggregate

	lastTx *transaction.Transaction
}

func (s *stubScoring) Score(_ context.Context, tx *transaction.Transaction) (*transaction.ScoreResult, error) {
	s.lastTx = tx
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubScoring) EntityStats(key string) (transaction.Aggregate, bool) {
	agg, ok := s.stats[key]
	return agg, ok
}

func newTestHandler(svc *stubScoring) *Handler {
	return NewHandler(svc, slog.Default(), "test-model")
}

func postScore(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handleScore(rec, req)
	return rec
}

func TestHandleScore_Success(t *testing.T) {
	svc := &stubScoring{
		result: &transaction.ScoreResult{
			EntityKey:               "u42",
			Amount:                  350,
			FraudProbability:        0.73,
			Verdict:                 transaction.VerdictReview,
			HistoricalAverageAmount: 100,
			AmountDeviationRatio:    3.5,
		},
	}
	rec := postScore(t, newTestHandler(svc),
		`{"user_id":"u42","amount":350,"location_id":2,"hour_of_day":14}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u42", resp.UserID)
	assert.Equal(t, "REVIEW", resp.Status)
	assert.InDelta(t, 0.73, resp.FraudProbability, 1e-9)
	assert.InDelta(t, 100, resp.Context.AvgSpend, 1e-9)
	assert.InDelta(t, 3.5, resp.Context.Deviation, 1e-9)

	require.NotNil(t, svc.lastTx)
	assert.Equal(t, "u42", svc.lastTx.EntityKey)
	assert.Equal(t, int32(2), svc.lastTx.LocationID)
	assert.Equal(t, 14, svc.lastTx.HourOfDay)
}

func TestHandleScore_ZeroAmountAccepted(t *testing.T) {
	svc := &stubScoring{
		result: &transaction.ScoreResult{
			EntityKey: "u1",
			Verdict:   transaction.VerdictLegit,
		},
	}
	rec := postScore(t, newTestHandler(svc),
		`{"user_id":"u1","amount":0,"location_id":0,"hour_of_day":0}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleScore_MalformedJSON(t *testing.T) {
	rec := postScore(t, newTestHandler(&stubScoring{}), `{"user_id":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MALFORMED_REQUEST", resp.Error.Code)
}

func TestHandleScore_EmptyBody(t *testing.T) {
	rec := postScore(t, newTestHandler(&stubScoring{}), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScore_MissingUserID(t *testing.T) {
	rec := postScore(t, newTestHandler(&stubScoring{}),
		`{"amount":50,"location_id":1,"hour_of_day":9}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "UserID")
}

func TestHandleScore_HourOutOfRange(t *testing.T) {
	rec := postScore(t, newTestHandler(&stubScoring{}),
		`{"user_id":"u1","amount":50,"location_id":1,"hour_of_day":24}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScore_DomainValidationError(t *testing.T) {
	svc := &stubScoring{
		err: apperrors.NewValidationError("EMPTY_ENTITY_KEY", "entity key must not be empty"),
	}
	rec := postScore(t, newTestHandler(svc),
		`{"user_id":" ","amount":50,"location_id":1,"hour_of_day":9}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "EMPTY_ENTITY_KEY", resp.Error.Code)
}

func TestHandleScore_ScoringTimeout(t *testing.T) {
	svc := &stubScoring{
		err: apperrors.NewTimeoutError("SCORING_TIMEOUT", "model scoring exceeded deadline"),
	}
	rec := postScore(t, newTestHandler(svc),
		`{"user_id":"u1","amount":50,"location_id":1,"hour_of_day":9}`)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SCORING_TIMEOUT", resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
}

func TestHandleScore_InternalError(t *testing.T) {
	svc := &stubScoring{
		err: apperrors.NewInternalError("model scoring failed"),
	}
	rec := postScore(t, newTestHandler(svc),
		`{"user_id":"u1","amount":50,"location_id":1,"hour_of_day":9}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleEntityStats(t *testing.T) {
	svc := &stubScoring{
		stats: map[string]transaction.Aggregate{
			"u7": {TotalAmount: 400, TransactionCount: 2},
		},
	}
	h := newTestHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stats/{user_id}", h.handleEntityStats)

	t.Run("known entity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/u7", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp EntityStatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, uint64(2), resp.TransactionCount)
		assert.InDelta(t, 400, resp.TotalAmount, 1e-9)
		assert.InDelta(t, 200, resp.AverageAmount, 1e-9)
	})

	t.Run("unknown entity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/nobody", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPredictAliasRoutesToScore(t *testing.T) {
	svc := &stubScoring{
		result: &transaction.ScoreResult{
			EntityKey: "u1",
			Verdict:   transaction.VerdictLegit,
		},
	}
	h := newTestHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", h.handleScore)

	req := httptest.NewRequest(http.MethodPost, "/predict",
		bytes.NewBufferString(`{"user_id":"u1","amount":20,"location_id":0,"hour_of_day":3}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
