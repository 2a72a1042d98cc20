package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/rs/zerolog"
)

// vehicleService holds fleet use-case logic: validation + orchestration, no transport / SQL details.
type vehicleService struct {
	repo    repository.VehicleRepository
	audit   repository.AuditRepository
	tx      repository.TxManager
	adapter *query.Adapter
	log     zerolog.Logger
}

func NewVehicleService(
	repo repository.VehicleRepository,
	audit repository.AuditRepository,
	tx repository.TxManager,
	logger zerolog.Logger,
) VehicleService {
	l := logger.With().Str("module", "service").Str("component", "vehicle").Logger()
	return &vehicleService{
		repo:    repo,
		audit:   audit,
		tx:      tx,
		adapter: query.NewAdapter(repo, logger),
		log:     l,
	}
}

func (s *vehicleService) CreateVehicle(ctx context.Context, actingUser string, v model.Vehicle) (model.Vehicle, model.VersionToken, error) {
	start := time.Now()
	ferrs := validateVehicle(v)
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("vehicle validation failed")
		return model.Vehicle{}, "", err
	}

	var out model.Vehicle
	var token model.VersionToken
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, tok, err := s.repo.Create(ctx, v)
		if err != nil {
			return err
		}
		out, token = created, tok
		return s.writeAudit(ctx, actingUser, "create", created)
	})
	if err != nil {
		// Repository surfaces domain-level errors already, do not wrap.
		s.log.Error().Err(err).Str("brand", v.Brand).Str("model", v.Model).Msg("create vehicle failed")
		return model.Vehicle{}, "", err
	}
	s.log.Info().Dur("took", time.Since(start)).Int64("vehicle_id", out.ID).Msg("vehicle created")
	return out, token, nil
}

func (s *vehicleService) GetVehicle(ctx context.Context, id int64) (model.Vehicle, error) {
	if id <= 0 {
		return model.Vehicle{}, newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	return s.repo.GetByID(ctx, id)
}

func (s *vehicleService) LoadVehicleForUpdate(ctx context.Context, id int64) (model.Vehicle, model.VersionToken, error) {
	if id <= 0 {
		return model.Vehicle{}, "", newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	return s.repo.LoadForUpdate(ctx, id)
}

// UpdateVehicle submits an edited snapshot with the token the caller loaded.
// A stale token yields a rejected outcome carrying the authoritative state;
// the caller must reconcile and resubmit with the new token, nothing is
// merged or retried here.
func (s *vehicleService) UpdateVehicle(ctx context.Context, actingUser string, env model.ConcurrencyEnvelope) (UpdateOutcome, error) {
	ferrs := validateVehicle(env.Vehicle)
	if env.Vehicle.ID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "id", Message: "must be > 0"})
	}
	if env.Token.IsZero() {
		ferrs = append(ferrs, FieldError{Field: "token", Message: "must not be empty"})
	}
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("update validation failed")
		return UpdateOutcome{}, err
	}

	var outcome UpdateOutcome
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		result, err := s.repo.UpdateIfTokenMatches(ctx, env.Vehicle, env.Token)
		if err != nil {
			return err
		}
		if !result.Accepted {
			server := result.ServerVehicle
			outcome = UpdateOutcome{
				Accepted:      false,
				ServerVehicle: &server,
				CurrentToken:  result.CurrentToken,
			}
			return nil
		}
		outcome = UpdateOutcome{Accepted: true, NewToken: result.NewToken}
		return s.writeAudit(ctx, actingUser, "update", env.Vehicle)
	})
	if err != nil {
		s.log.Error().Err(err).Int64("vehicle_id", env.Vehicle.ID).Msg("update vehicle failed")
		return UpdateOutcome{}, err
	}
	if !outcome.Accepted {
		s.log.Info().Int64("vehicle_id", env.Vehicle.ID).Msg("update rejected on stale token")
	}
	return outcome, nil
}

func (s *vehicleService) DeleteVehicle(ctx context.Context, actingUser string, id int64) error {
	if id <= 0 {
		return newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.writeAudit(ctx, actingUser, "delete", model.Vehicle{ID: id})
	})
	if err != nil {
		if err != repository.ErrNotFound {
			s.log.Error().Err(err).Int64("vehicle_id", id).Msg("delete vehicle failed")
		}
		return err
	}
	s.log.Info().Int64("vehicle_id", id).Msg("vehicle deleted")
	return nil
}

func (s *vehicleService) QueryVehicles(ctx context.Context, spec query.FilterSortSpec, page *query.PageState) ([]model.Vehicle, error) {
	if page == nil {
		page = &query.PageState{}
	}
	page.Normalize()
	vehicles, err := s.adapter.FetchAndUpdatePaging(ctx, spec, page)
	if err != nil {
		s.log.Error().Err(err).
			Str("filter_column", string(spec.FilterColumn)).
			Str("sort_column", string(spec.SortColumn)).
			Int("page", page.Page).
			Msg("grid query failed")
		return nil, err
	}
	return vehicles, nil
}

func (s *vehicleService) ListVehicleAudit(ctx context.Context, vehicleID int64, p repository.Page) (repository.PageResult[model.VehicleAudit], error) {
	if vehicleID <= 0 {
		return repository.PageResult[model.VehicleAudit]{}, newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	ok, err := s.repo.Exists(ctx, vehicleID)
	if err != nil {
		s.log.Error().Err(err).Int64("vehicle_id", vehicleID).Msg("audit existence check failed")
		return repository.PageResult[model.VehicleAudit]{}, err
	}
	if !ok {
		return repository.PageResult[model.VehicleAudit]{}, repository.ErrNotFound
	}
	p = normalizePage(p)
	res, err := s.audit.ListByVehicle(ctx, vehicleID, p)
	if err != nil {
		s.log.Error().Err(err).Int64("vehicle_id", vehicleID).Msg("list audit failed")
		return repository.PageResult[model.VehicleAudit]{}, err
	}
	return res, nil
}

// writeAudit snapshots the submitted state as JSON alongside the mutation.
func (s *vehicleService) writeAudit(ctx context.Context, actingUser, action string, v model.Vehicle) error {
	changes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.audit.Insert(ctx, model.VehicleAudit{
		VehicleID: v.ID,
		User:      actingUser,
		Action:    action,
		Changes:   string(changes),
	})
	return err
}
