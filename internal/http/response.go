package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/salesapi"
	"github.com/fjod/go_pos/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts service, domain and sales API errors to HTTP responses.
func handleError(w http.ResponseWriter, err error) {
	message := err.Error()
	var subErr *service.SubmissionError
	var apiErr *salesapi.APIError
	if errors.As(err, &subErr) {
		message = subErr.Message
	} else if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}

	var httpStatus int
	var code string

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		httpStatus = http.StatusNotFound
		code = "session_not_found"
	case errors.Is(err, service.ErrProductNotFound):
		httpStatus = http.StatusNotFound
		code = "product_not_found"
	case errors.Is(err, service.ErrSubmissionInFlight):
		httpStatus = http.StatusConflict
		code = "submission_in_flight"
	case errors.Is(err, service.IllegalTransitionError):
		httpStatus = http.StatusConflict
		code = "illegal_transition"
	case errors.Is(err, service.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "empty_cart"
	case errors.Is(err, service.ErrStoreRequired):
		httpStatus = http.StatusBadRequest
		code = "store_required"
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrNegativePrice),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrUnknownPaymentMethod),
		errors.Is(err, domain.ErrUnknownDiscountMode):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, salesapi.ErrUnauthorized):
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case errors.Is(err, salesapi.ErrForbidden):
		httpStatus = http.StatusForbidden
		code = "permission_denied"
	case errors.Is(err, salesapi.ErrServiceUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	case errors.As(err, &apiErr):
		httpStatus = http.StatusUnprocessableEntity
		code = "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	default:
		log.Printf("unhandled error: %v", err)
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
		message = "internal server error"
	}

	respondError(w, httpStatus, code, message)
}
