package repository

import (
	"context"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// I prefer a single entry point to keep transaction boundaries explicit and testable.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// WriteResult is the outcome of a compare-and-write. Exactly one branch is
// populated: Accepted carries the token minted for the new revision, a
// rejection carries the authoritative vehicle and its current token so the
// submitter can reconcile and retry. A token mismatch is ordinary control
// flow here, not an error.
type WriteResult struct {
	Accepted      bool
	NewToken      model.VersionToken
	ServerVehicle model.Vehicle
	CurrentToken  model.VersionToken
}

// VehicleRepository declares persistence operations for the vehicle fleet.
// I return domain models and surface domain errors from errors.go rather
// than PG codes. Query and Count satisfy query.Store, so the grid adapter
// can drive any implementation directly.
type VehicleRepository interface {
	// Create assigns an identifier and returns it together with the
	// initial version token, so the caller can submit its first update
	// without a separate load. It never compares tokens.
	Create(ctx context.Context, v model.Vehicle) (model.Vehicle, model.VersionToken, error)
	GetByID(ctx context.Context, id int64) (model.Vehicle, error)
	// LoadForUpdate returns the vehicle together with the token a later
	// UpdateIfTokenMatches must present.
	LoadForUpdate(ctx context.Context, id int64) (model.Vehicle, model.VersionToken, error)
	GetCurrentToken(ctx context.Context, id int64) (model.VersionToken, error)
	// Query returns a filtered, sorted page window of detached vehicles.
	Query(ctx context.Context, spec query.FilterSortSpec, limit, offset int) ([]model.Vehicle, error)
	// Count applies the filter only, no paging.
	Count(ctx context.Context, spec query.FilterSortSpec) (int, error)
	// UpdateIfTokenMatches atomically writes v only when the stored token
	// equals expected. Whole-record semantics: any mismatch rejects.
	UpdateIfTokenMatches(ctx context.Context, v model.Vehicle, expected model.VersionToken) (WriteResult, error)
	// Delete removes the vehicle or reports ErrNotFound; never a conflict.
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// AuditRepository records and lists mutation audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, a model.VehicleAudit) (model.VehicleAudit, error)
	ListByVehicle(ctx context.Context, vehicleID int64, p Page) (PageResult[model.VehicleAudit], error)
}
