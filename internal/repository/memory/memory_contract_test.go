package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/fleetops/vehicle-rental-service/internal/repository/contract"
	"github.com/fleetops/vehicle-rental-service/internal/repository/memory"
)

func TestMemoryVehicleRepositoryContract(t *testing.T) {
	contract.RunVehicleRepositoryContract(t, func(t *testing.T) (repository.VehicleRepository, func()) {
		return memory.NewStore(), func() {}
	})
}

func TestMemoryAuditRepositoryContract(t *testing.T) {
	contract.RunAuditRepositoryContract(t, func(t *testing.T) (repository.AuditRepository, func(ctx context.Context) (int64, error), func()) {
		store := memory.NewStore()
		mkVehicle := func(ctx context.Context) (int64, error) {
			v, _, err := store.Create(ctx, model.Vehicle{
				Brand:            "Ford",
				Model:            "Focus",
				Mileage:          100,
				RegistrationDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
				FuelLevel:        model.FuelFull,
			})
			return v.ID, err
		}
		return store, mkVehicle, func() {}
	})
}
