package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const vehicleColumns = `id, license_number, brand, model, mileage, registration_date, fuel_level, created_at, updated_at`

type vehicleRepository struct{ pool *pgxpool.Pool }

func NewVehicleRepository(pool *pgxpool.Pool) repository.VehicleRepository {
	return &vehicleRepository{pool: pool}
}

// newToken mints the opaque revision marker for an accepted write.
// A random UUID carries no ordering, which is exactly what the token
// contract asks for.
func newToken() model.VersionToken {
	return model.VersionToken(uuid.NewString())
}

func scanVehicle(row pgx.Row) (model.Vehicle, error) {
	var v model.Vehicle
	err := row.Scan(
		&v.ID, &v.LicenseNumber, &v.Brand, &v.Model, &v.Mileage,
		&v.RegistrationDate, &v.FuelLevel, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

// Create inserts the vehicle with a freshly minted version token and hands
// both back, so the first update needs no extra load round trip.
func (r *vehicleRepository) Create(ctx context.Context, v model.Vehicle) (model.Vehicle, model.VersionToken, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Vehicle{}, "", err
	}
	token := newToken()
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`INSERT INTO vehicles (license_number, brand, model, mileage, registration_date, fuel_level, row_version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+vehicleColumns,
		v.LicenseNumber, v.Brand, v.Model, v.Mileage, v.RegistrationDate, v.FuelLevel, string(token),
	)
	out, err := scanVehicle(row)
	if err != nil {
		return model.Vehicle{}, "", repository.MapPgError(err)
	}
	return out, token, nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int64) (model.Vehicle, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Vehicle{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id,
	)
	out, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vehicle{}, repository.ErrNotFound
		}
		return model.Vehicle{}, repository.MapPgError(err)
	}
	return out, nil
}

// LoadForUpdate reads the vehicle together with its current version token.
// The caller holds a detached copy; the token is what a later
// UpdateIfTokenMatches must present.
func (r *vehicleRepository) LoadForUpdate(ctx context.Context, id int64) (model.Vehicle, model.VersionToken, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Vehicle{}, "", err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`SELECT `+vehicleColumns+`, row_version FROM vehicles WHERE id = $1`, id,
	)
	var v model.Vehicle
	var token string
	err := row.Scan(
		&v.ID, &v.LicenseNumber, &v.Brand, &v.Model, &v.Mileage,
		&v.RegistrationDate, &v.FuelLevel, &v.CreatedAt, &v.UpdatedAt, &token,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vehicle{}, "", repository.ErrNotFound
		}
		return model.Vehicle{}, "", repository.MapPgError(err)
	}
	return v, model.VersionToken(token), nil
}

func (r *vehicleRepository) GetCurrentToken(ctx context.Context, id int64) (model.VersionToken, error) {
	if err := ensurePool(r.pool); err != nil {
		return "", err
	}
	exec := getQ(ctx, r.pool)
	var token string
	err := exec.QueryRow(ctx, `SELECT row_version FROM vehicles WHERE id = $1`, id).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", repository.MapPgError(err)
	}
	return model.VersionToken(token), nil
}

// Query returns one page window: filter, then sort, then limit/offset.
// The ORDER BY identifier comes from the closed column registry, never from
// raw input. Ties between equal sort keys keep Postgres' stable order; no
// secondary key is imposed, so cross-call determinism for ties is not
// guaranteed.
func (r *vehicleRepository) Query(ctx context.Context, spec query.FilterSortSpec, limit, offset int) ([]model.Vehicle, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	limit, offset = sanitizeLimitOffset(limit, offset)

	sortCol, err := query.SQLColumn(spec.SortColumn)
	if err != nil {
		return nil, err
	}
	dir := "ASC"
	if !spec.SortAscending {
		dir = "DESC"
	}

	sql := `SELECT ` + vehicleColumns + ` FROM vehicles`
	args := []any{}
	if spec.Filtered() {
		filterCol, err := query.SQLColumn(spec.FilterColumn)
		if err != nil {
			return nil, err
		}
		if _, err := query.ResolveFilter(spec.FilterColumn); err != nil {
			return nil, err
		}
		sql += fmt.Sprintf(` WHERE %s ILIKE '%%' || $1 || '%%'`, filterCol)
		args = append(args, spec.FilterText)
	}
	sql += fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`, sortCol, dir, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()

	out := make([]model.Vehicle, 0, limit)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

// Count applies the filter only, no paging.
func (r *vehicleRepository) Count(ctx context.Context, spec query.FilterSortSpec) (int, error) {
	if err := ensurePool(r.pool); err != nil {
		return 0, err
	}
	sql := `SELECT COUNT(*) FROM vehicles`
	args := []any{}
	if spec.Filtered() {
		filterCol, err := query.SQLColumn(spec.FilterColumn)
		if err != nil {
			return 0, err
		}
		if _, err := query.ResolveFilter(spec.FilterColumn); err != nil {
			return 0, err
		}
		sql += fmt.Sprintf(` WHERE %s ILIKE '%%' || $1 || '%%'`, filterCol)
		args = append(args, spec.FilterText)
	}
	exec := getQ(ctx, r.pool)
	var total int
	if err := exec.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, repository.MapPgError(err)
	}
	return total, nil
}

// UpdateIfTokenMatches is the compare-and-write primitive. The single
// UPDATE statement is the only synchronization point: it writes and mints a
// new token only when the stored token still equals the one the submitter
// loaded. When no row matches, the current state is re-read to build the
// rejection so the caller can reconcile and retry.
func (r *vehicleRepository) UpdateIfTokenMatches(ctx context.Context, v model.Vehicle, expected model.VersionToken) (repository.WriteResult, error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.WriteResult{}, err
	}
	exec := getQ(ctx, r.pool)
	minted := newToken()
	tag, err := exec.Exec(ctx,
		`UPDATE vehicles
		 SET license_number = $2, brand = $3, model = $4, mileage = $5,
		     registration_date = $6, fuel_level = $7, row_version = $8,
		     updated_at = now()
		 WHERE id = $1 AND row_version = $9`,
		v.ID, v.LicenseNumber, v.Brand, v.Model, v.Mileage,
		v.RegistrationDate, v.FuelLevel, string(minted), string(expected),
	)
	if err != nil {
		return repository.WriteResult{}, repository.MapPgError(err)
	}
	if tag.RowsAffected() > 0 {
		return repository.WriteResult{Accepted: true, NewToken: minted}, nil
	}

	// Token mismatch or vehicle gone; distinguish by re-reading.
	current, token, err := r.LoadForUpdate(ctx, v.ID)
	if err != nil {
		return repository.WriteResult{}, err
	}
	return repository.WriteResult{
		Accepted:      false,
		ServerVehicle: current,
		CurrentToken:  token,
	}, nil
}

func (r *vehicleRepository) Delete(ctx context.Context, id int64) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	exec := getQ(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return repository.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Exists performs a lightweight check to see if a vehicle with the given ID exists.
func (r *vehicleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if err := ensurePool(r.pool); err != nil {
		return false, err
	}
	var exists bool
	exec := getQ(ctx, r.pool)
	err := exec.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, repository.MapPgError(err)
	}
	return exists, nil
}

var _ repository.VehicleRepository = (*vehicleRepository)(nil)
var _ query.Store = (*vehicleRepository)(nil)
