package seed

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/store"
)

// Config contains the values required by startup seed.
type Config struct {
	// SampleInventory fills an empty inventory with the demo catalogue.
	SampleInventory bool
	ProfitMargin    float64
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type catalogEntry struct {
	kind        store.CatalogKind
	name        string
	description string
}

var defaultCatalog = []catalogEntry{
	{store.KindCategory, "Gold", "Gold jewelry items including rings, necklaces, and ornaments"},
	{store.KindCategory, "Silver", "Silver jewelry items and accessories"},
	{store.KindCategory, "Diamond", "Diamond jewelry and precious stone items"},
	{store.KindCategory, "Others", "Other jewelry items including pearls, gemstones, and custom pieces"},
	{store.KindType, "Ring", "Finger rings including engagement, wedding, and fashion rings"},
	{store.KindType, "Necklace", "Necklaces and pendants of various styles"},
	{store.KindType, "Bangle", "Traditional and modern bangles"},
	{store.KindType, "Bracelet", "Bracelets and wrist accessories"},
	{store.KindType, "Earring", "Earrings including studs, hoops, and danglers"},
	{store.KindType, "Chain", "Chains for necklaces and bracelets"},
	{store.KindType, "Custom", "Custom designed jewelry pieces"},
}

type sampleItem struct {
	name          string
	category      pricing.Category
	kind          string
	weight        float64
	purity        pricing.Purity
	makingCharges float64
	stoneCharges  float64
	quantity      int
	minStockLevel int
}

var sampleInventory = []sampleItem{
	{"Gold Wedding Ring", pricing.Gold, "Ring", 5.5, pricing.Karat22, 2500, 0, 15, 5},
	{"Diamond Engagement Ring", pricing.Diamond, "Ring", 3.2, pricing.Karat18, 5000, 15000, 8, 3},
	{"Gold Chain Necklace", pricing.Gold, "Chain", 12.8, pricing.Karat22, 4500, 0, 20, 8},
	{"Silver Bracelet", pricing.Silver, "Bracelet", 25.0, pricing.Silver925, 800, 0, 12, 6},
	{"Gold Earrings Set", pricing.Gold, "Earring", 4.2, pricing.Karat18, 1800, 2500, 25, 10},
	{"Traditional Gold Bangle", pricing.Gold, "Bangle", 18.5, pricing.Karat22, 6500, 0, 6, 4},
	{"Pearl Necklace", pricing.Others, "Necklace", 45.0, "Natural Pearl", 2000, 8000, 4, 2},
	{"Men's Gold Ring", pricing.Gold, "Ring", 8.2, pricing.Karat22, 3200, 0, 10, 5},
	{"Silver Chain", pricing.Silver, "Chain", 35.5, pricing.Silver925, 1200, 0, 18, 8},
	{"Diamond Stud Earrings", pricing.Diamond, "Earring", 2.1, pricing.Karat18, 3500, 25000, 3, 2},
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	now := store.FormatTime(time.Now())

	if err := ensureSettings(tx, now, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureCatalog(tx, now, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if cfg.SampleInventory {
		if err := ensureSampleInventory(tx, cfg.ProfitMargin, now, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureSettings(tx *sql.Tx, now string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM settings WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check settings existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO settings (id, rates_updated_at, updated_at)
		VALUES (1, ?, ?)
	`, now, now); err != nil {
		return fmt.Errorf("insert settings singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

// ensureCatalog fills an empty catalog with the default categories and item types.
func ensureCatalog(tx *sql.Tx, now string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM catalog LIMIT 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check catalog existence: %w", err)
	}
	if exists {
		return nil
	}

	for _, e := range defaultCatalog {
		if _, err := tx.Exec(`
			INSERT INTO catalog (id, kind, name, description, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, 1, ?, ?)
		`, uuid.NewString(), string(e.kind), e.name, e.description, now, now); err != nil {
			return fmt.Errorf("insert catalog %s %q: %w", e.kind, e.name, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureSampleInventory(tx *sql.Tx, margin float64, now string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM inventory LIMIT 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check inventory existence: %w", err)
	}
	if exists {
		return nil
	}

	var goldRate, silverRate float64
	if err := tx.QueryRow(`SELECT gold_rate, silver_rate FROM settings WHERE id = 1`).Scan(&goldRate, &silverRate); err != nil {
		return fmt.Errorf("read seed rates: %w", err)
	}

	for _, s := range sampleInventory {
		b, err := pricing.ComputePrice(pricing.Input{
			Weight:        s.weight,
			Category:      s.category,
			Purity:        s.purity,
			MakingCharges: s.makingCharges,
			StoneCharges:  s.stoneCharges,
			GoldRate:      goldRate,
			SilverRate:    silverRate,
			ProfitMargin:  pricing.Margin(margin),
		})
		if err != nil {
			return fmt.Errorf("price sample item %q: %w", s.name, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO inventory (
				id, name, category, type, weight, purity, making_charges, stone_charges, quantity, min_stock_level,
				base_price, purity_adjusted_price, cost_price, sale_price, last_gold_rate, last_silver_rate,
				price_updated_at, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			uuid.NewString(), s.name, string(s.category), s.kind, s.weight, string(s.purity), s.makingCharges, s.stoneCharges,
			s.quantity, s.minStockLevel,
			b.BasePrice, b.PurityAdjustedPrice, b.CostPrice, b.SalePrice, goldRate, silverRate,
			now, now, now,
		); err != nil {
			return fmt.Errorf("insert sample item %q: %w", s.name, err)
		}
		stats.Inserts++
	}
	return nil
}
