// Package contract holds repository test suites runnable against any
// implementation: the in-memory store always, Postgres when enabled.
package contract

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
)

type VehicleFactory func(t *testing.T) (repository.VehicleRepository, func())

type AuditFactory func(t *testing.T) (repo repository.AuditRepository, mkVehicle func(ctx context.Context) (int64, error), cleanup func())

func testVehicle(brand, mdl, license string) model.Vehicle {
	return model.Vehicle{
		LicenseNumber:    license,
		Brand:            brand,
		Model:            mdl,
		Mileage:          1000,
		RegistrationDate: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		FuelLevel:        model.FuelFull,
	}
}

func ascendingSpec(col query.Column) query.FilterSortSpec {
	return query.FilterSortSpec{SortColumn: col, SortAscending: true}
}

func RunVehicleRepositoryContract(t *testing.T, makeRepo VehicleFactory) {
	t.Helper()

	t.Run("create_and_get", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, token, err := repo.Create(ctx, testVehicle("Ford", "Focus", "AB-123"))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.ID == 0 {
			t.Fatalf("expected assigned id")
		}
		if token.IsZero() {
			t.Fatalf("expected an initial token")
		}
		current, err := repo.GetCurrentToken(ctx, created.ID)
		if err != nil {
			t.Fatalf("current token: %v", err)
		}
		if !token.Equal(current) {
			t.Fatalf("creation token %q != stored token %q", token, current)
		}
		got, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.ID != created.ID || got.Brand != "Ford" || got.Model != "Focus" {
			t.Fatalf("mismatch: %+v", got)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.GetByID(context.Background(), 999999)
		if err == nil || err != repository.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("load_for_update_returns_current_token", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, _, err := repo.Create(ctx, testVehicle("Ford", "Focus", "AB-123"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		loaded, token, err := repo.LoadForUpdate(ctx, created.ID)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.ID != created.ID {
			t.Fatalf("mismatch: %+v", loaded)
		}
		if token.IsZero() {
			t.Fatalf("expected an initial token")
		}
		current, err := repo.GetCurrentToken(ctx, created.ID)
		if err != nil {
			t.Fatalf("current token: %v", err)
		}
		if !token.Equal(current) {
			t.Fatalf("loaded token %q != current token %q", token, current)
		}
	})

	t.Run("query_filter_containment", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for _, v := range []model.Vehicle{
			testVehicle("Ford", "Focus", "F-1"),
			testVehicle("Toyota", "Corolla", "T-1"),
			testVehicle("Ford", "Fiesta", "F-2"),
		} {
			if _, _, err := repo.Create(ctx, v); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		spec := query.FilterSortSpec{
			FilterColumn:  query.ColumnBrand,
			FilterText:    "Fo",
			SortColumn:    query.ColumnLicenseNumber,
			SortAscending: true,
		}
		got, err := repo.Query(ctx, spec, 10, 0)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 Fords, got %d", len(got))
		}
		for _, v := range got {
			if v.Brand != "Ford" {
				t.Fatalf("filter leaked %q", v.Brand)
			}
		}
		total, err := repo.Count(ctx, spec)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if total != 2 {
			t.Fatalf("expected count 2, got %d", total)
		}
	})

	t.Run("query_sort_order", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for i, brand := range []string{"Volvo", "Audi", "Mazda", "BMW"} {
			v := testVehicle(brand, "M", fmt.Sprintf("S-%d", i))
			v.Mileage = (4 - i) * 100
			if _, _, err := repo.Create(ctx, v); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		asc, err := repo.Query(ctx, ascendingSpec(query.ColumnBrand), 10, 0)
		if err != nil {
			t.Fatalf("query asc: %v", err)
		}
		for i := 1; i < len(asc); i++ {
			if asc[i-1].Brand > asc[i].Brand {
				t.Fatalf("not ascending at %d: %q > %q", i, asc[i-1].Brand, asc[i].Brand)
			}
		}
		descSpec := query.FilterSortSpec{SortColumn: query.ColumnMileage, SortAscending: false}
		desc, err := repo.Query(ctx, descSpec, 10, 0)
		if err != nil {
			t.Fatalf("query desc: %v", err)
		}
		for i := 1; i < len(desc); i++ {
			if desc[i-1].Mileage < desc[i].Mileage {
				t.Fatalf("not descending at %d: %d < %d", i, desc[i-1].Mileage, desc[i].Mileage)
			}
		}
	})

	t.Run("query_page_windows", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for i := 0; i < 25; i++ {
			v := testVehicle("Ford", "Focus", fmt.Sprintf("P-%02d", i))
			if _, _, err := repo.Create(ctx, v); err != nil {
				t.Fatalf("seed %d: %v", i, err)
			}
		}
		spec := query.FilterSortSpec{
			FilterColumn:  query.ColumnBrand,
			FilterText:    "Ford",
			SortColumn:    query.ColumnLicenseNumber,
			SortAscending: true,
		}
		page1, err := repo.Query(ctx, spec, 10, 0)
		if err != nil {
			t.Fatalf("page1: %v", err)
		}
		if len(page1) != 10 {
			t.Fatalf("page1: expected 10, got %d", len(page1))
		}
		page3, err := repo.Query(ctx, spec, 10, 20)
		if err != nil {
			t.Fatalf("page3: %v", err)
		}
		if len(page3) != 5 {
			t.Fatalf("page3: expected 5, got %d", len(page3))
		}
		total, err := repo.Count(ctx, spec)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if total != 25 {
			t.Fatalf("expected total 25, got %d", total)
		}
	})

	t.Run("query_unknown_sort_column", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.Query(context.Background(), query.FilterSortSpec{SortColumn: "bogus"}, 10, 0)
		if err == nil {
			t.Fatalf("expected error for unregistered column")
		}
	})

	t.Run("cas_accepts_creation_token", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, token, err := repo.Create(ctx, testVehicle("Ford", "Focus", "C-0"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		// No load round trip: the token handed out at creation is enough
		// for the first update.
		created.Mileage = 1500
		res, err := repo.UpdateIfTokenMatches(ctx, created, token)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !res.Accepted {
			t.Fatalf("creation token must be accepted, got %+v", res)
		}
	})

	t.Run("cas_accepts_matching_token", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, _, err := repo.Create(ctx, testVehicle("Ford", "Focus", "C-1"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		_, token, err := repo.LoadForUpdate(ctx, created.ID)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		created.Mileage = 2000
		res, err := repo.UpdateIfTokenMatches(ctx, created, token)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !res.Accepted {
			t.Fatalf("expected acceptance, got %+v", res)
		}
		if res.NewToken.IsZero() || res.NewToken.Equal(token) {
			t.Fatalf("expected a fresh token, got %q", res.NewToken)
		}
		got, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Mileage != 2000 {
			t.Fatalf("write not visible: %+v", got)
		}
	})

	t.Run("cas_rejects_stale_token_with_current_state", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, _, err := repo.Create(ctx, testVehicle("Ford", "Focus", "C-2"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		_, t1, err := repo.LoadForUpdate(ctx, created.ID)
		if err != nil {
			t.Fatalf("load: %v", err)
		}

		// Writer A commits first.
		a := created
		a.Mileage = 3000
		resA, err := repo.UpdateIfTokenMatches(ctx, a, t1)
		if err != nil || !resA.Accepted {
			t.Fatalf("writer A should win: res=%+v err=%v", resA, err)
		}
		t2 := resA.NewToken

		// Writer B races with the now-stale token; any mismatch rejects,
		// even though B's change would not logically conflict.
		b := created
		b.LicenseNumber = "C-2-NEW"
		resB, err := repo.UpdateIfTokenMatches(ctx, b, t1)
		if err != nil {
			t.Fatalf("writer B: %v", err)
		}
		if resB.Accepted {
			t.Fatalf("stale token must be rejected")
		}
		if !resB.CurrentToken.Equal(t2) {
			t.Fatalf("rejection must carry current token %q, got %q", t2, resB.CurrentToken)
		}
		if resB.ServerVehicle.Mileage != 3000 {
			t.Fatalf("rejection must carry the authoritative state: %+v", resB.ServerVehicle)
		}

		// B reconciles and resubmits with the fresh token.
		recon := resB.ServerVehicle
		recon.LicenseNumber = "C-2-NEW"
		resB2, err := repo.UpdateIfTokenMatches(ctx, recon, t2)
		if err != nil {
			t.Fatalf("resubmit: %v", err)
		}
		if !resB2.Accepted {
			t.Fatalf("resubmit with current token must be accepted")
		}
	})

	t.Run("cas_resubmit_with_result_token", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, _, err := repo.Create(ctx, testVehicle("Ford", "Focus", "C-3"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		_, token, err := repo.LoadForUpdate(ctx, created.ID)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		created.Mileage = 4000
		res1, err := repo.UpdateIfTokenMatches(ctx, created, token)
		if err != nil || !res1.Accepted {
			t.Fatalf("first write: res=%+v err=%v", res1, err)
		}
		// Replaying the exact payload with the produced token is accepted
		// again while no other writer intervenes.
		res2, err := repo.UpdateIfTokenMatches(ctx, created, res1.NewToken)
		if err != nil || !res2.Accepted {
			t.Fatalf("replay with result token: res=%+v err=%v", res2, err)
		}
		// But the original token is spent now.
		res3, err := repo.UpdateIfTokenMatches(ctx, created, token)
		if err != nil {
			t.Fatalf("stale replay: %v", err)
		}
		if res3.Accepted {
			t.Fatalf("spent token must be rejected")
		}
	})

	t.Run("cas_missing_vehicle", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		v := testVehicle("Ford", "Focus", "C-4")
		v.ID = 424242
		_, err := repo.UpdateIfTokenMatches(context.Background(), v, "whatever")
		if err == nil || err != repository.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete_found_and_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, _, err := repo.Create(ctx, testVehicle("Ford", "Focus", "D-1"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.Delete(ctx, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.Delete(ctx, created.ID); err != repository.ErrNotFound {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("exists_tracks_lifecycle", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ok, err := repo.Exists(ctx, 999999)
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if ok {
			t.Fatalf("missing vehicle reported as present")
		}
		created, _, err := repo.Create(ctx, testVehicle("Ford", "Focus", "E-1"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if ok, err = repo.Exists(ctx, created.ID); err != nil || !ok {
			t.Fatalf("created vehicle must exist: ok=%v err=%v", ok, err)
		}
		if err := repo.Delete(ctx, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if ok, err = repo.Exists(ctx, created.ID); err != nil || ok {
			t.Fatalf("deleted vehicle must not exist: ok=%v err=%v", ok, err)
		}
	})

	t.Run("query_clamps_non_positive_limit", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for i := 0; i < repository.DefaultListLimit+5; i++ {
			v := testVehicle("Ford", "Focus", fmt.Sprintf("L-%03d", i))
			if _, _, err := repo.Create(ctx, v); err != nil {
				t.Fatalf("seed %d: %v", i, err)
			}
		}
		got, err := repo.Query(ctx, ascendingSpec(query.ColumnLicenseNumber), 0, 0)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != repository.DefaultListLimit {
			t.Fatalf("limit 0 must clamp to %d, got %d", repository.DefaultListLimit, len(got))
		}
	})
}

func RunAuditRepositoryContract(t *testing.T, makeRepo AuditFactory) {
	t.Helper()

	t.Run("insert_and_list_newest_first", func(t *testing.T) {
		repo, mkVehicle, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		vid, err := mkVehicle(ctx)
		if err != nil {
			t.Fatalf("seed vehicle: %v", err)
		}
		for _, action := range []string{"create", "update", "update"} {
			if _, err := repo.Insert(ctx, model.VehicleAudit{
				VehicleID: vid,
				User:      "tester",
				Action:    action,
				Changes:   `{"mileage":1}`,
			}); err != nil {
				t.Fatalf("insert %s: %v", action, err)
			}
		}
		res, err := repo.ListByVehicle(ctx, vid, repository.Page{Limit: 2, Offset: 0})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(res.Items) != 2 || res.Total != 3 {
			t.Fatalf("unexpected page: len=%d total=%d", len(res.Items), res.Total)
		}
		if res.Items[0].Action != "update" {
			t.Fatalf("expected newest first, got %+v", res.Items[0])
		}
	})

	t.Run("list_clamps_non_positive_limit", func(t *testing.T) {
		repo, mkVehicle, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		vid, err := mkVehicle(ctx)
		if err != nil {
			t.Fatalf("seed vehicle: %v", err)
		}
		for i := 0; i < repository.DefaultListLimit+5; i++ {
			if _, err := repo.Insert(ctx, model.VehicleAudit{
				VehicleID: vid,
				User:      "tester",
				Action:    "update",
				Changes:   `{"mileage":1}`,
			}); err != nil {
				t.Fatalf("insert %d: %v", i, err)
			}
		}
		res, err := repo.ListByVehicle(ctx, vid, repository.Page{Limit: 0, Offset: 0})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(res.Items) != repository.DefaultListLimit {
			t.Fatalf("limit 0 must clamp to %d, got %d", repository.DefaultListLimit, len(res.Items))
		}
		if res.Total != repository.DefaultListLimit+5 {
			t.Fatalf("total must ignore the window, got %d", res.Total)
		}
	})
}
