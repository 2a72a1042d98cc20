package service

import (
	"strings"
	"time"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
)

func normalizePage(p repository.Page) repository.Page {
	limit := p.Limit
	offset := p.Offset
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}

const maxMileage = 1_000_000

func isValidFuelLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case model.FuelFull, model.FuelHalf, model.FuelEmpty:
		return true
	default:
		return false
	}
}

// validateVehicle applies the field rules every submitted vehicle must pass.
func validateVehicle(v model.Vehicle) []FieldError {
	var ferrs []FieldError
	if strings.TrimSpace(v.Brand) == "" {
		ferrs = append(ferrs, FieldError{Field: "brand", Message: "must not be empty"})
	}
	if strings.TrimSpace(v.Model) == "" {
		ferrs = append(ferrs, FieldError{Field: "model", Message: "must not be empty"})
	}
	if v.Mileage < 1 || v.Mileage > maxMileage {
		ferrs = append(ferrs, FieldError{Field: "mileage", Message: "must be between 1 and 1000000"})
	}
	if !isValidFuelLevel(v.FuelLevel) {
		ferrs = append(ferrs, FieldError{Field: "fuel_level", Message: "must be one of full, half, empty"})
	}
	if v.RegistrationDate.IsZero() {
		ferrs = append(ferrs, FieldError{Field: "registration_date", Message: "must not be empty"})
	} else if v.RegistrationDate.After(time.Now()) {
		ferrs = append(ferrs, FieldError{Field: "registration_date", Message: "must not be in the future"})
	}
	return ferrs
}
