package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/fleetops/vehicle-rental-service/internal/repository/contract"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var (
	db     *sql.DB
	pool   *pgxpool.Pool
	dsn    string
	skippy bool
)

func TestMain(m *testing.M) {
	if os.Getenv("CONTRACT_TESTS") != "1" {
		// allow skipping contract tests unless explicitly enabled
		skippy = true
		os.Exit(m.Run())
	}

	dsn = buildDSNFromEnv()
	if dsn == "" {
		fmt.Println("[contract] DATABASE_URL or APP_POSTGRES_* env not set; skipping")
		skippy = true
		os.Exit(m.Run())
	}

	var err error
	db, err = sql.Open("pgx", dsn)
	if err != nil {
		fmt.Println("[contract] sql open error:", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		fmt.Println("[contract] db ping error:", err)
		os.Exit(1)
	}

	// Run migrations up
	migrationsDir := filepath.Clean(filepath.Join("..", "..", "..", "migrations", "goose_sql"))
	if err := goose.Up(db, migrationsDir); err != nil {
		fmt.Println("[contract] goose up error:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Println("[contract] pgxpool new error:", err)
		os.Exit(1)
	}

	code := m.Run()
	pool.Close()
	db.Close()
	os.Exit(code)
}

func skipIfNeeded(t *testing.T) {
	if skippy {
		t.Skip("contract tests skipped; set CONTRACT_TESTS=1 and provide DB env")
	}
}

func buildDSNFromEnv() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	user := firstNonEmpty(os.Getenv("APP_POSTGRES_USER"), os.Getenv("POSTGRES_USER"), os.Getenv("DB_USER"))
	pass := firstNonEmpty(os.Getenv("APP_POSTGRES_PASSWORD"), os.Getenv("POSTGRES_PASSWORD"), os.Getenv("DB_PASSWORD"))
	host := firstNonEmpty(os.Getenv("APP_POSTGRES_HOST"), os.Getenv("POSTGRES_HOST"), "localhost")
	port := firstNonEmpty(os.Getenv("APP_POSTGRES_PORT"), os.Getenv("POSTGRES_PORT"), "5432")
	name := firstNonEmpty(os.Getenv("APP_POSTGRES_DB"), os.Getenv("POSTGRES_DB"), os.Getenv("DB_NAME"))
	ssl := firstNonEmpty(os.Getenv("APP_POSTGRES_SSLMODE"), os.Getenv("POSTGRES_SSLMODE"), "disable")
	if user == "" || pass == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, name, ssl)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateAll(t *testing.T) {
	t.Helper()
	stmts := []string{
		"TRUNCATE TABLE vehicle_audits RESTART IDENTITY CASCADE",
		"TRUNCATE TABLE vehicles RESTART IDENTITY CASCADE",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
	}
}

// Factories used by contract suites

func makeVehicleRepo(t *testing.T) (repository.VehicleRepository, func()) {
	skipIfNeeded(t)
	truncateAll(t)
	return NewVehicleRepository(pool), func() {}
}

func makeAuditRepo(t *testing.T) (repository.AuditRepository, func(ctx context.Context) (int64, error), func()) {
	skipIfNeeded(t)
	truncateAll(t)
	vehicles := NewVehicleRepository(pool)
	mkVehicle := func(ctx context.Context) (int64, error) {
		v, _, err := vehicles.Create(ctx, model.Vehicle{
			Brand:            "Ford",
			Model:            "Focus",
			Mileage:          100,
			RegistrationDate: mustDate(),
			FuelLevel:        model.FuelFull,
		})
		return v.ID, err
	}
	return NewAuditRepository(pool), mkVehicle, func() {}
}

func TestPostgresVehicleRepositoryContract(t *testing.T) {
	skipIfNeeded(t)
	contract.RunVehicleRepositoryContract(t, makeVehicleRepo)
}

func TestPostgresAuditRepositoryContract(t *testing.T) {
	skipIfNeeded(t)
	contract.RunAuditRepositoryContract(t, makeAuditRepo)
}

// TxManager behavior only makes sense against a real database: a failure
// inside the unit must roll back both the vehicle write and its audit row.
func TestPostgresTxManagerRollsBackAuditWithMutation(t *testing.T) {
	skipIfNeeded(t)
	truncateAll(t)
	ctx := context.Background()
	vehicles := NewVehicleRepository(pool)
	audits := NewAuditRepository(pool)
	tx := NewTxManager(pool)

	sentinel := fmt.Errorf("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		v, _, err := vehicles.Create(ctx, model.Vehicle{
			Brand: "Ford", Model: "Focus", Mileage: 1,
			RegistrationDate: mustDate(), FuelLevel: model.FuelFull,
		})
		if err != nil {
			return err
		}
		if _, err := audits.Insert(ctx, model.VehicleAudit{VehicleID: v.ID, Action: "create", Changes: "{}"}); err != nil {
			return err
		}
		return sentinel
	})
	if err == nil {
		t.Fatalf("expected rollback error")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM vehicles").Scan(&count); err != nil {
		t.Fatalf("count vehicles: %v", err)
	}
	if count != 0 {
		t.Fatalf("vehicle write leaked past rollback: %d rows", count)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM vehicle_audits").Scan(&count); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if count != 0 {
		t.Fatalf("audit write leaked past rollback: %d rows", count)
	}
}

func mustDate() time.Time {
	return time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
}
