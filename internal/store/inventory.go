package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/goldsmith/internal/pricing"
)

// DefaultLowStockLimit caps ListLowStock when no limit is given.
const DefaultLowStockLimit = 10

// Item is a stocked jewellery article together with its last computed prices.
type Item struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Category            pricing.Category `json:"category"`
	Type                string           `json:"type"`
	Weight              float64          `json:"weight"`
	Purity              pricing.Purity   `json:"purity"`
	MakingCharges       float64          `json:"makingCharges"`
	StoneCharges        float64          `json:"stoneCharges"`
	Quantity            int              `json:"quantity"`
	MinStockLevel       int              `json:"minStockLevel"`
	BasePrice           float64          `json:"basePrice"`
	PurityAdjustedPrice float64          `json:"purityAdjustedPrice"`
	CostPrice           float64          `json:"costPrice"`
	SalePrice           float64          `json:"salePrice"`
	LastGoldRate        float64          `json:"lastGoldRate"`
	LastSilverRate      float64          `json:"lastSilverRate"`
	PriceUpdatedAt      time.Time        `json:"priceUpdatedAt"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// PriceInput builds the engine input for the item at the given rates.
func (it Item) PriceInput(goldRate, silverRate float64, margin *float64) pricing.Input {
	return pricing.Input{
		Weight:        it.Weight,
		Category:      it.Category,
		Purity:        it.Purity,
		MakingCharges: it.MakingCharges,
		StoneCharges:  it.StoneCharges,
		GoldRate:      goldRate,
		SilverRate:    silverRate,
		ProfitMargin:  margin,
	}
}

// LowStock reports whether the item is at or below its minimum stock level.
func (it Item) LowStock() bool {
	return it.Quantity <= it.MinStockLevel
}

// PriceUpdate is a repriced result for one item.
type PriceUpdate struct {
	BasePrice           float64
	PurityAdjustedPrice float64
	CostPrice           float64
	SalePrice           float64
	GoldRate            float64
	SilverRate          float64
}

// NewPriceUpdate copies a breakdown and the rates it was computed with.
func NewPriceUpdate(b pricing.Breakdown, goldRate, silverRate float64) PriceUpdate {
	return PriceUpdate{
		BasePrice:           b.BasePrice,
		PurityAdjustedPrice: b.PurityAdjustedPrice,
		CostPrice:           b.CostPrice,
		SalePrice:           b.SalePrice,
		GoldRate:            goldRate,
		SilverRate:          silverRate,
	}
}

// Apply copies the update onto the item.
func (u PriceUpdate) Apply(it *Item) {
	it.BasePrice = u.BasePrice
	it.PurityAdjustedPrice = u.PurityAdjustedPrice
	it.CostPrice = u.CostPrice
	it.SalePrice = u.SalePrice
	it.LastGoldRate = u.GoldRate
	it.LastSilverRate = u.SilverRate
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Category pricing.Category
	Query    string
}

const itemColumns = `
	id, name, category, type, weight, purity, making_charges, stone_charges, quantity, min_stock_level,
	base_price, purity_adjusted_price, cost_price, sale_price, last_gold_rate, last_silver_rate,
	price_updated_at, created_at, updated_at`

func scanItem(row scanner) (Item, error) {
	var (
		it                               Item
		priceUpdatedAt, created, updated string
	)
	err := row.Scan(
		&it.ID, &it.Name, &it.Category, &it.Type, &it.Weight, &it.Purity, &it.MakingCharges, &it.StoneCharges,
		&it.Quantity, &it.MinStockLevel,
		&it.BasePrice, &it.PurityAdjustedPrice, &it.CostPrice, &it.SalePrice, &it.LastGoldRate, &it.LastSilverRate,
		&priceUpdatedAt, &created, &updated,
	)
	if err != nil {
		return Item{}, err
	}
	if it.PriceUpdatedAt, err = parseTime(priceUpdatedAt); err != nil {
		return Item{}, err
	}
	if it.CreatedAt, err = parseTime(created); err != nil {
		return Item{}, err
	}
	if it.UpdatedAt, err = parseTime(updated); err != nil {
		return Item{}, err
	}
	return it, nil
}

// CreateItem inserts a new item with a generated ID.
func (s *Store) CreateItem(ctx context.Context, it Item) (Item, error) {
	now := s.timestamp()
	it.ID = uuid.NewString()
	it.CreatedAt = now
	it.UpdatedAt = now
	it.PriceUpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		it.ID, it.Name, string(it.Category), it.Type, it.Weight, string(it.Purity), it.MakingCharges, it.StoneCharges,
		it.Quantity, it.MinStockLevel,
		it.BasePrice, it.PurityAdjustedPrice, it.CostPrice, it.SalePrice, it.LastGoldRate, it.LastSilverRate,
		FormatTime(it.PriceUpdatedAt), FormatTime(it.CreatedAt), FormatTime(it.UpdatedAt),
	)
	if err != nil {
		return Item{}, fmt.Errorf("insert inventory item: %w", err)
	}
	return it, nil
}

// GetItem returns the item with the given ID or ErrNotFound.
func (s *Store) GetItem(ctx context.Context, id string) (Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, fmt.Errorf("inventory item %s: %w", id, ErrNotFound)
		}
		return Item{}, fmt.Errorf("query inventory item: %w", err)
	}
	return it, nil
}

// ListItems returns items newest first.
func (s *Store) ListItems(ctx context.Context, f ItemFilter) ([]Item, error) {
	query := strings.TrimSpace(f.Query)
	search := "%" + query + "%"
	return s.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM inventory
		WHERE (? = '' OR category = ?)
			AND (? = '' OR name LIKE ? OR type LIKE ?)
		ORDER BY created_at DESC, id DESC
	`, string(f.Category), string(f.Category), query, search, search)
}

// ListLowStock returns items whose quantity is at or below their minimum level, scarcest first.
func (s *Store) ListLowStock(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultLowStockLimit
	}
	return s.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM inventory
		WHERE quantity <= min_stock_level
		ORDER BY quantity ASC, name ASC
		LIMIT ?
	`, limit)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return items, nil
}

// UpdateItem replaces the editable fields and prices of an existing item.
func (s *Store) UpdateItem(ctx context.Context, it Item) (Item, error) {
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET
			name = ?,
			category = ?,
			type = ?,
			weight = ?,
			purity = ?,
			making_charges = ?,
			stone_charges = ?,
			quantity = ?,
			min_stock_level = ?,
			base_price = ?,
			purity_adjusted_price = ?,
			cost_price = ?,
			sale_price = ?,
			last_gold_rate = ?,
			last_silver_rate = ?,
			price_updated_at = ?,
			updated_at = ?
		WHERE id = ?
	`,
		it.Name, string(it.Category), it.Type, it.Weight, string(it.Purity), it.MakingCharges, it.StoneCharges,
		it.Quantity, it.MinStockLevel,
		it.BasePrice, it.PurityAdjustedPrice, it.CostPrice, it.SalePrice, it.LastGoldRate, it.LastSilverRate,
		FormatTime(now), FormatTime(now), it.ID,
	)
	if err != nil {
		return Item{}, fmt.Errorf("update inventory item: %w", err)
	}
	if err := expectOneRow(res, "inventory item", it.ID); err != nil {
		return Item{}, err
	}
	return s.GetItem(ctx, it.ID)
}

// UpdateItemPrices stores repriced values without touching the item's other fields.
func (s *Store) UpdateItemPrices(ctx context.Context, id string, u PriceUpdate) error {
	now := FormatTime(s.timestamp())
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET
			base_price = ?,
			purity_adjusted_price = ?,
			cost_price = ?,
			sale_price = ?,
			last_gold_rate = ?,
			last_silver_rate = ?,
			price_updated_at = ?,
			updated_at = ?
		WHERE id = ?
	`, u.BasePrice, u.PurityAdjustedPrice, u.CostPrice, u.SalePrice, u.GoldRate, u.SilverRate, now, now, id)
	if err != nil {
		return fmt.Errorf("update inventory prices: %w", err)
	}
	return expectOneRow(res, "inventory item", id)
}

func expectOneRow(res sql.Result, what, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read %s update result: %w", what, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
