// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"errors"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// newInvalidInput builds an aggregated validation error if any field errors are present.
func newInvalidInput(fe []FieldError) error {
	if len(fe) == 0 { // protective case
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	type feIface interface{ Fields() []FieldError }
	if v, ok := err.(feIface); ok && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// UpdateOutcome is the result of an optimistic update. A rejection is not
// an error: ServerVehicle and CurrentToken carry everything the caller
// needs to reconcile and resubmit. A conflict never overwrites silently.
type UpdateOutcome struct {
	Accepted      bool
	NewToken      model.VersionToken
	ServerVehicle *model.Vehicle
	CurrentToken  model.VersionToken
}

// VehicleService defines the fleet use cases.
type VehicleService interface {
	// CreateVehicle returns the stored vehicle plus its initial version
	// token; the caller can update straight away without a load.
	CreateVehicle(ctx context.Context, actingUser string, v model.Vehicle) (model.Vehicle, model.VersionToken, error)
	GetVehicle(ctx context.Context, id int64) (model.Vehicle, error)
	// LoadVehicleForUpdate returns the vehicle plus the version token an
	// update must present.
	LoadVehicleForUpdate(ctx context.Context, id int64) (model.Vehicle, model.VersionToken, error)
	UpdateVehicle(ctx context.Context, actingUser string, env model.ConcurrencyEnvelope) (UpdateOutcome, error)
	DeleteVehicle(ctx context.Context, actingUser string, id int64) error
	// QueryVehicles runs one grid fetch and updates page in place.
	QueryVehicles(ctx context.Context, spec query.FilterSortSpec, page *query.PageState) ([]model.Vehicle, error)
	ListVehicleAudit(ctx context.Context, vehicleID int64, p repository.Page) (repository.PageResult[model.VehicleAudit], error)
}
