// Package handler exposes the rate engine over HTTP
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// decodeAndValidate parses a JSON body into req and runs its validate tags
func decodeAndValidate(r *http.Request, req interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("request body is not valid JSON: %w", err)
	}
	return validate.StructCtx(r.Context(), req)
}

// validationDescription flattens validator errors into one readable line
func validationDescription(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "alpha":
		return fmt.Sprintf("%s must contain letters only", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// sendJSON writes v with the given status
func sendJSON(w http.ResponseWriter, log logger.Logger, statusCode int, v interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	resp := ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	}

	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	sendJSON(w, log, statusCode, resp, requestID)
}

// sendServiceError maps an engine error onto an HTTP status
func sendServiceError(w http.ResponseWriter, log logger.Logger, err error, requestID string) {
	switch {
	case errors.Is(err, entity.ErrInvalidCurrency):
		sendErrorResponse(w, log, "Invalid currency code", err.Error(), http.StatusBadRequest, requestID)
	case errors.Is(err, entity.ErrInvalidAmount):
		sendErrorResponse(w, log, "Invalid amount", err.Error(), http.StatusBadRequest, requestID)
	case errors.Is(err, entity.ErrRateUnavailable):
		sendErrorResponse(w, log, "No exchange rate available",
			"No tier of the resolution chain could produce a rate for this pair", http.StatusNotFound, requestID)
	case errors.Is(err, entity.ErrNoRoutes):
		sendErrorResponse(w, log, "No payment routes available", err.Error(), http.StatusNotFound, requestID)
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("Request timed out", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Request timed out",
			"An upstream dependency did not answer in time. Please try again later.", http.StatusGatewayTimeout, requestID)
	default:
		log.Error("Unexpected service error", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Internal server error",
			"An unexpected error occurred. Please try again later.", http.StatusInternalServerError, requestID)
	}
}
