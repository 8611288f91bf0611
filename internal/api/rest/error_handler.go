package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/fraudscope/transaction-scoring-backend/internal/errors"
)

// errorResponse is the uniform error envelope for all endpoints.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps an error to its HTTP status and envelope. Unknown
// errors become opaque 500s so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := errorDetail{
		Code:      "INTERNAL_ERROR",
		Message:   "An internal error occurred",
		RequestID: requestIDFrom(r.Context()),
	}

	var appErr *apperrors.AppError
	var validationErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &appErr):
		status = appErr.StatusCode
		detail.Code = appErr.Code
		detail.Message = appErr.Message
		detail.Retryable = appErr.Retryable

	case errors.As(err, &validationErrs):
		status = http.StatusBadRequest
		detail.Code = "VALIDATION_FAILED"
		detail.Message = describeValidationErrors(validationErrs)

	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, errEmptyBody):
		status = http.StatusBadRequest
		detail.Code = "MALFORMED_REQUEST"
		detail.Message = "Request body is not valid JSON for this endpoint"

	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		detail.Code = "REQUEST_TIMEOUT"
		detail.Message = "Request deadline exceeded"
		detail.Retryable = true

	default:
		// json.Decoder reports unknown fields as a plain error.
		if strings.Contains(err.Error(), "unknown field") {
			status = http.StatusBadRequest
			detail.Code = "MALFORMED_REQUEST"
			detail.Message = err.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"error", err,
			"status", status,
			"path", r.URL.Path,
			"request_id", detail.RequestID,
		)
	}

	writeJSON(w, status, errorResponse{Error: detail})
}

var errEmptyBody = errors.New("empty request body")

func describeValidationErrors(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "gte":
			parts = append(parts, fe.Field()+" must be >= "+fe.Param())
		case "lte":
			parts = append(parts, fe.Field()+" must be <= "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" failed "+fe.Tag()+" validation")
		}
	}
	return strings.Join(parts, "; ")
}
