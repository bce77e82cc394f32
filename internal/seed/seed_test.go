package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/goldsmith/internal/db"
	"github.com/Simplici0/goldsmith/internal/migrations"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	database := openMigrated(t)
	cfg := Config{SampleInventory: true, ProfitMargin: 0.20}

	for i := 0; i < 10; i++ {
		stats, err := Run(database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if want := 1 + len(defaultCatalog) + len(sampleInventory); stats.Inserts != want {
				t.Fatalf("expected %d inserts in first run, got %d", want, stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM settings WHERE id = 1`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM inventory`, nil, len(sampleInventory))
	assertCount(t, database, `SELECT COUNT(*) FROM inventory WHERE category = ?`, "Gold", 5)
	assertCount(t, database, `SELECT COUNT(*) FROM catalog WHERE kind = ?`, "type", 7)
	assertCount(t, database, `SELECT COUNT(*) FROM catalog WHERE kind = ?`, "category", 4)
}

func TestRunPricesSamplesThroughEngine(t *testing.T) {
	database := openMigrated(t)
	if _, err := Run(database, Config{SampleInventory: true, ProfitMargin: 0.20}); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	var cost, sale float64
	if err := database.QueryRow(`SELECT cost_price, sale_price FROM inventory WHERE name = ?`, "Gold Wedding Ring").Scan(&cost, &sale); err != nil {
		t.Fatalf("query sample ring: %v", err)
	}
	if cost != 36783.33 || sale != 44140 {
		t.Fatalf("ring priced at cost=%v sale=%v, want 36783.33/44140", cost, sale)
	}

	if err := database.QueryRow(`SELECT cost_price FROM inventory WHERE name = ?`, "Diamond Stud Earrings").Scan(&cost); err != nil {
		t.Fatalf("query sample earrings: %v", err)
	}
	if cost != 28710 {
		t.Fatalf("diamond earrings cost = %v, want 28710", cost)
	}
}

func TestRunWithoutSamplesLeavesInventoryEmpty(t *testing.T) {
	database := openMigrated(t)
	stats, err := Run(database, Config{})
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if want := 1 + len(defaultCatalog); stats.Inserts != want {
		t.Fatalf("expected settings and catalog inserts (%d), got %d", want, stats.Inserts)
	}
	assertCount(t, database, `SELECT COUNT(*) FROM inventory`, nil, 0)
}

func TestSampleInventoryUsesCatalogNames(t *testing.T) {
	names := map[string]bool{}
	for _, e := range defaultCatalog {
		names[string(e.kind)+"/"+e.name] = true
	}
	for _, it := range sampleInventory {
		if !names["category/"+string(it.category)] || !names["type/"+it.kind] {
			t.Fatalf("sample %q uses %s/%s outside the default catalog", it.name, it.category, it.kind)
		}
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
