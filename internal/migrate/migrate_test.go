package migrate

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRun_AppliesAllOnce(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	all, err := embedded()
	if err != nil {
		t.Fatalf("embedded: %v", err)
	}
	if len(all) < 2 {
		t.Fatalf("embedded migrations = %d, want at least 2", len(all))
	}

	n, err := Run(ctx, db, quiet)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != len(all) {
		t.Errorf("applied = %d, want %d", n, len(all))
	}

	n, err = Run(ctx, db, quiet)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n != 0 {
		t.Errorf("second Run applied = %d, want 0", n)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(all) {
		t.Errorf("schema_migrations rows = %d, want %d", count, len(all))
	}
}

func TestRun_SchemaUsable(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	if _, err := Run(ctx, db, quiet); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO stations (id, last_seen, last_climate_ok, last_air_ok) VALUES ('kitchen', '2026-03-14T09:26:53Z', 1, 0)`); err != nil {
		t.Fatalf("insert station: %v", err)
	}
	_, err := db.Exec(`INSERT INTO readings (id, station_id, received_at, format,
		temperature_c, humidity_pct, heat_index_c, eco2_ppm, tvoc_ppb, aqi, climate_ok, air_ok)
		VALUES ('r1', 'kitchen', '2026-03-14T09:26:53Z', 'csv', 30, 80, 37.67, 450, 120, 2, 1, 0)`)
	if err != nil {
		t.Fatalf("insert reading: %v", err)
	}

	_, err = db.Exec(`INSERT INTO readings (id, station_id, received_at, format,
		temperature_c, humidity_pct, heat_index_c, eco2_ppm, tvoc_ppb, aqi, climate_ok, air_ok)
		VALUES ('r2', 'nowhere', '2026-03-14T09:26:53Z', 'csv', 0, 0, 0, 0, 0, 0, 0, 0)`)
	if err == nil {
		t.Error("insert for unknown station: error = nil, want foreign key violation")
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	before, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, m := range before {
		if m.Applied {
			t.Errorf("%s applied before Run", m.Version)
		}
	}
	if before[0].Version != "0001" || before[0].Name != "readings" {
		t.Errorf("first migration = %s_%s, want 0001_readings", before[0].Version, before[0].Name)
	}

	if _, err := Run(ctx, db, quiet); err != nil {
		t.Fatalf("Run: %v", err)
	}
	after, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, m := range after {
		if !m.Applied {
			t.Errorf("%s not applied after Run", m.Version)
		}
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{"0001_readings.sql", "0001", "readings", true},
		{"0012_add_index.sql", "0012", "add_index", true},
		{"1_short.sql", "", "", false},
		{"0001_readings.txt", "", "", false},
	}
	for _, tt := range tests {
		v, n, ok := parseMigrationFilename(tt.in)
		if v != tt.version || n != tt.name || ok != tt.ok {
			t.Errorf("parseMigrationFilename(%q) = %q, %q, %v; want %q, %q, %v", tt.in, v, n, ok, tt.version, tt.name, tt.ok)
		}
	}
}
