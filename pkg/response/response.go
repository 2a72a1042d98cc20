// Package response centralizes HTTP response shapes and helpers.
// Handlers rely on it to keep controllers thin and uniform.
package response

import (
	"errors"
	"net/http"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/fleetops/vehicle-rental-service/internal/service"
	"github.com/gin-gonic/gin"
)

// ErrorPayload is the canonical error envelope returned by the API.
type ErrorPayload struct {
	Error       string               `json:"error"`
	Message     string               `json:"message,omitempty"`
	FieldErrors []service.FieldError `json:"field_errors,omitempty"`
}

// ConflictPayload is the 409 body for a rejected optimistic update. It
// carries the authoritative vehicle and fresh token so the caller can
// reconcile and resubmit; nothing is merged server-side.
type ConflictPayload struct {
	Error         string             `json:"error"`
	ServerVehicle *model.Vehicle     `json:"server_vehicle"`
	NewToken      model.VersionToken `json:"new_token"`
}

// MapError converts a domain / infrastructure error into an HTTP status and payload.
// Extend here as new domain error categories emerge.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return http.StatusOK, ErrorPayload{Error: "ok"}
	}

	if errors.Is(err, service.ErrInvalidInput) {
		return http.StatusBadRequest, ErrorPayload{
			Error:       "invalid_input",
			Message:     "one or more fields are invalid",
			FieldErrors: service.FieldErrors(err),
		}
	}

	switch {
	case errors.Is(err, query.ErrUnknownColumn):
		return http.StatusBadRequest, ErrorPayload{Error: "unknown_column", Message: err.Error()}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "not_found"}
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, ErrorPayload{Error: "already_exists"}
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrorPayload{Error: "store_unavailable"}
	default:
		return http.StatusInternalServerError, ErrorPayload{Error: "internal_error"}
	}
}

// WriteError writes an error response and aborts the context.
func WriteError(c *gin.Context, err error) {
	status, payload := MapError(err)
	c.AbortWithStatusJSON(status, payload)
}

// WriteConflict writes the 409 envelope for a rejected update.
func WriteConflict(c *gin.Context, env model.ConcurrencyEnvelope) {
	c.JSON(http.StatusConflict, ConflictPayload{
		Error:         "conflict",
		ServerVehicle: env.ServerVehicle,
		NewToken:      env.NewToken,
	})
}

// WriteData writes a successful JSON response.
func WriteData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}
