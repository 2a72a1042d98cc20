// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes without behavior.
package model

import "time"

// FuelLevel values accepted for a vehicle's tank state.
const (
	FuelFull  = "full"
	FuelHalf  = "half"
	FuelEmpty = "empty"
)

// VersionToken is the opaque revision marker the store assigns on every
// accepted write. Tokens are equality-comparable only; nothing about their
// content orders one revision relative to another.
type VersionToken string

// IsZero reports whether the token has never been assigned.
func (t VersionToken) IsZero() bool { return t == "" }

// Equal compares two tokens for exact equality.
func (t VersionToken) Equal(other VersionToken) bool { return t == other }

// Vehicle represents one car in the rental fleet.
type Vehicle struct {
	ID               int64     `json:"id"`
	LicenseNumber    string    `json:"license_number"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	Mileage          int       `json:"mileage"`
	RegistrationDate time.Time `json:"registration_date"`
	FuelLevel        string    `json:"fuel_level"` // full, half, empty
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ConcurrencyEnvelope is the payload exchanged for an optimistic update.
// The submitter fills Vehicle and Token; on a rejected write the authority
// fills ServerVehicle and NewToken so the caller can reconcile and resubmit.
type ConcurrencyEnvelope struct {
	Vehicle       Vehicle      `json:"vehicle"`
	Token         VersionToken `json:"token"`
	ServerVehicle *Vehicle     `json:"server_vehicle,omitempty"`
	NewToken      VersionToken `json:"new_token,omitempty"`
}

// VehicleAudit records one mutation against a vehicle.
// Changes holds a JSON snapshot of the submitted state.
type VehicleAudit struct {
	ID        int64     `json:"id"`
	EventTime time.Time `json:"event_time"`
	VehicleID int64     `json:"vehicle_id"`
	User      string    `json:"user"`
	Action    string    `json:"action"` // create, update, delete
	Changes   string    `json:"changes"`
}
