package postgres

import (
	"context"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditRepository struct{ pool *pgxpool.Pool }

// NewAuditRepository persists the per-mutation audit trail. Inserts run on
// the context's transaction when one is active, so an audit row commits or
// rolls back together with the mutation it records.
func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Insert(ctx context.Context, a model.VehicleAudit) (model.VehicleAudit, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.VehicleAudit{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`INSERT INTO vehicle_audits (vehicle_id, acting_user, action, changes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, event_time, vehicle_id, acting_user, action, changes`,
		a.VehicleID, a.User, a.Action, a.Changes,
	)
	var out model.VehicleAudit
	if err := row.Scan(&out.ID, &out.EventTime, &out.VehicleID, &out.User, &out.Action, &out.Changes); err != nil {
		return model.VehicleAudit{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *auditRepository) ListByVehicle(ctx context.Context, vehicleID int64, p repository.Page) (repository.PageResult[model.VehicleAudit], error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.PageResult[model.VehicleAudit]{}, err
	}
	limit, offset := sanitizeLimitOffset(p.Limit, p.Offset)
	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT id, event_time, vehicle_id, acting_user, action, changes, COUNT(*) OVER() AS total
		 FROM vehicle_audits
		 WHERE vehicle_id = $1
		 ORDER BY event_time DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		vehicleID, limit, offset,
	)
	if err != nil {
		return repository.PageResult[model.VehicleAudit]{}, repository.MapPgError(err)
	}
	defer rows.Close()
	res := repository.PageResult[model.VehicleAudit]{Items: make([]model.VehicleAudit, 0, limit)}
	for rows.Next() {
		var a model.VehicleAudit
		var total int
		if err := rows.Scan(&a.ID, &a.EventTime, &a.VehicleID, &a.User, &a.Action, &a.Changes, &total); err != nil {
			return repository.PageResult[model.VehicleAudit]{}, repository.MapPgError(err)
		}
		res.Items = append(res.Items, a)
		res.Total = total
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.VehicleAudit]{}, repository.MapPgError(err)
	}
	return res, nil
}

var _ repository.AuditRepository = (*auditRepository)(nil)
