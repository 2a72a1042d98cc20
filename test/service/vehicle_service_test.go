package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/fleetops/vehicle-rental-service/internal/repository/memory"
	"github.com/fleetops/vehicle-rental-service/internal/service"
)

func newService(t *testing.T) service.VehicleService {
	t.Helper()
	store := memory.NewStore()
	logger := zerolog.New(io.Discard)
	return service.NewVehicleService(store, store, store, logger)
}

func validVehicle() model.Vehicle {
	return model.Vehicle{
		LicenseNumber:    "AB-123-CD",
		Brand:            "Ford",
		Model:            "Focus",
		Mileage:          42_000,
		RegistrationDate: time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC),
		FuelLevel:        model.FuelFull,
	}
}

func hasField(fe []service.FieldError, field string) bool {
	for _, f := range fe {
		if f.Field == field {
			return true
		}
	}
	return false
}

func TestVehicleService_CreateVehicle_Validation(t *testing.T) {
	svc := newService(t)

	cases := []struct {
		name      string
		mutate    func(v *model.Vehicle)
		wantField string
	}{
		{"empty brand", func(v *model.Vehicle) { v.Brand = "  " }, "brand"},
		{"empty model", func(v *model.Vehicle) { v.Model = "" }, "model"},
		{"zero mileage", func(v *model.Vehicle) { v.Mileage = 0 }, "mileage"},
		{"mileage over cap", func(v *model.Vehicle) { v.Mileage = 1_000_001 }, "mileage"},
		{"bad fuel level", func(v *model.Vehicle) { v.FuelLevel = "quarter" }, "fuel_level"},
		{"zero registration date", func(v *model.Vehicle) { v.RegistrationDate = time.Time{} }, "registration_date"},
		{"future registration date", func(v *model.Vehicle) { v.RegistrationDate = time.Now().Add(48 * time.Hour) }, "registration_date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := validVehicle()
			tc.mutate(&v)
			_, _, err := svc.CreateVehicle(context.Background(), "tester", v)
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if fe := service.FieldErrors(err); !hasField(fe, tc.wantField) {
				t.Fatalf("expected field %q in %+v", tc.wantField, fe)
			}
		})
	}
}

func TestVehicleService_CreateVehicle_OK_WritesAudit(t *testing.T) {
	svc := newService(t)

	created, token, err := svc.CreateVehicle(context.Background(), "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}
	if token.IsZero() {
		t.Fatalf("create must return the initial version token")
	}

	trail, err := svc.ListVehicleAudit(context.Background(), created.ID, repository.Page{})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if trail.Total != 1 || len(trail.Items) != 1 {
		t.Fatalf("expected one audit row, got %+v", trail)
	}
	if a := trail.Items[0]; a.Action != "create" || a.User != "alice" {
		t.Fatalf("unexpected audit row: %+v", a)
	}
}

func TestVehicleService_GetVehicle(t *testing.T) {
	svc := newService(t)

	if _, err := svc.GetVehicle(context.Background(), 0); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for id 0, got %v", err)
	}
	if _, err := svc.GetVehicle(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, _, err := svc.CreateVehicle(context.Background(), "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.GetVehicle(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LicenseNumber != created.LicenseNumber {
		t.Fatalf("got %+v, want %+v", got, created)
	}
}

func TestVehicleService_CreateThenUpdateWithCreationToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, token, err := svc.CreateVehicle(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The token handed back at creation is enough for the first update;
	// no load round trip in between.
	created.Mileage = 43_000
	outcome, err := svc.UpdateVehicle(ctx, "alice", model.ConcurrencyEnvelope{Vehicle: created, Token: token})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("creation token must be accepted, got %+v", outcome)
	}
}

func TestVehicleService_UpdateVehicle_AcceptsFreshToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, _, err := svc.CreateVehicle(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loaded, token, err := svc.LoadVehicleForUpdate(ctx, created.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token.IsZero() {
		t.Fatalf("expected a non-empty token")
	}

	loaded.Mileage = 50_000
	outcome, err := svc.UpdateVehicle(ctx, "alice", model.ConcurrencyEnvelope{Vehicle: loaded, Token: token})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected accepted outcome, got %+v", outcome)
	}
	if outcome.NewToken.IsZero() || outcome.NewToken.Equal(token) {
		t.Fatalf("accepted update must mint a fresh token")
	}

	got, err := svc.GetVehicle(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Mileage != 50_000 {
		t.Fatalf("update not persisted: %+v", got)
	}

	trail, err := svc.ListVehicleAudit(ctx, created.ID, repository.Page{})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if trail.Total != 2 || trail.Items[0].Action != "update" {
		t.Fatalf("expected newest-first update audit, got %+v", trail)
	}
}

func TestVehicleService_UpdateVehicle_StaleTokenRejectsAndReconciles(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, _, err := svc.CreateVehicle(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Two editors load the same state.
	first, token1, err := svc.LoadVehicleForUpdate(ctx, created.ID)
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	second, token2, err := svc.LoadVehicleForUpdate(ctx, created.ID)
	if err != nil {
		t.Fatalf("load second: %v", err)
	}

	// First editor wins.
	first.Mileage = 60_000
	won, err := svc.UpdateVehicle(ctx, "alice", model.ConcurrencyEnvelope{Vehicle: first, Token: token1})
	if err != nil || !won.Accepted {
		t.Fatalf("first update should win: outcome=%+v err=%v", won, err)
	}

	// Second editor's token is now stale: rejected without error.
	second.Mileage = 70_000
	lost, err := svc.UpdateVehicle(ctx, "bob", model.ConcurrencyEnvelope{Vehicle: second, Token: token2})
	if err != nil {
		t.Fatalf("stale update must not error: %v", err)
	}
	if lost.Accepted {
		t.Fatalf("stale token must be rejected")
	}
	if lost.ServerVehicle == nil || lost.ServerVehicle.Mileage != 60_000 {
		t.Fatalf("rejection must carry the authoritative state, got %+v", lost.ServerVehicle)
	}
	if lost.CurrentToken.IsZero() || !lost.CurrentToken.Equal(won.NewToken) {
		t.Fatalf("rejection must carry the current token")
	}

	// Resubmit with the reconciled token succeeds.
	retry, err := svc.UpdateVehicle(ctx, "bob", model.ConcurrencyEnvelope{Vehicle: second, Token: lost.CurrentToken})
	if err != nil || !retry.Accepted {
		t.Fatalf("reconciled resubmit should be accepted: outcome=%+v err=%v", retry, err)
	}
}

func TestVehicleService_UpdateVehicle_Validation(t *testing.T) {
	svc := newService(t)

	v := validVehicle() // no ID, no token
	_, err := svc.UpdateVehicle(context.Background(), "alice", model.ConcurrencyEnvelope{Vehicle: v})
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	fe := service.FieldErrors(err)
	if !hasField(fe, "id") || !hasField(fe, "token") {
		t.Fatalf("expected id and token field errors, got %+v", fe)
	}
}

func TestVehicleService_UpdateVehicle_MissingVehicle(t *testing.T) {
	svc := newService(t)

	v := validVehicle()
	v.ID = 12345
	_, err := svc.UpdateVehicle(context.Background(), "alice", model.ConcurrencyEnvelope{
		Vehicle: v,
		Token:   model.VersionToken("gone"),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing vehicle, got %v", err)
	}
}

func TestVehicleService_DeleteVehicle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if err := svc.DeleteVehicle(ctx, "alice", 404); err == nil {
		t.Fatalf("expected error for missing vehicle")
	}

	created, _, err := svc.CreateVehicle(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeleteVehicle(ctx, "alice", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetVehicle(ctx, created.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestVehicleService_QueryVehicles_NormalizesPaging(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v := validVehicle()
		v.LicenseNumber = v.LicenseNumber + string(rune('A'+i))
		if _, _, err := svc.CreateVehicle(ctx, "alice", v); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page := &query.PageState{} // zero values: page and size normalized
	got, err := svc.QueryVehicles(ctx, query.FilterSortSpec{SortColumn: query.ColumnLicenseNumber, SortAscending: true}, page)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Page != 1 || page.PageSize != query.DefaultPageSize {
		t.Fatalf("paging not normalized: %+v", page)
	}
	if page.TotalItemCount != 3 || page.PageItems != 3 || len(got) != 3 {
		t.Fatalf("unexpected grid result: page=%+v len=%d", page, len(got))
	}
}

func TestVehicleService_QueryVehicles_UnknownSortColumn(t *testing.T) {
	svc := newService(t)
	page := &query.PageState{Page: 1, PageSize: 10}
	_, err := svc.QueryVehicles(context.Background(), query.FilterSortSpec{SortColumn: "bogus"}, page)
	if !errors.Is(err, query.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestVehicleService_ListVehicleAudit_MissingVehicle(t *testing.T) {
	svc := newService(t)
	_, err := svc.ListVehicleAudit(context.Background(), 999, repository.Page{})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown vehicle, got %v", err)
	}
}
