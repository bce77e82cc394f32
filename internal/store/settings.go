package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Simplici0/goldsmith/internal/billing"
)

// Shop is the letterhead printed on invoices.
type Shop struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	GST     string `json:"gst"`
	Logo    string `json:"logo"`
}

// RateSettings holds the stored metal rates in currency per gram.
type RateSettings struct {
	GoldRate       float64   `json:"goldRate"`
	SilverRate     float64   `json:"silverRate"`
	LastUpdated    time.Time `json:"lastUpdated"`
	AutoUpdate     bool      `json:"autoUpdate"`
	UpdateInterval int       `json:"updateInterval"`
}

// Settings is the singleton configuration row.
type Settings struct {
	Shop      Shop         `json:"shop"`
	Tax       billing.Tax  `json:"tax"`
	Rates     RateSettings `json:"rates"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// EnsureSettings inserts the default settings row if it is missing and reports whether it did.
func (s *Store) EnsureSettings(ctx context.Context) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, rates_updated_at, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, FormatTime(s.timestamp()), FormatTime(s.timestamp()))
	if err != nil {
		return false, fmt.Errorf("insert default settings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read settings insert result: %w", err)
	}
	return affected > 0, nil
}

// GetSettings returns the settings singleton, creating it with defaults on first use.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	if _, err := s.EnsureSettings(ctx); err != nil {
		return Settings{}, err
	}

	var (
		st                 Settings
		ratesAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			shop_name, shop_address, shop_phone, shop_gst, shop_logo,
			igst_percent, cgst_percent, sgst_percent,
			gold_rate, silver_rate, rates_updated_at, auto_update, update_interval_minutes,
			updated_at
		FROM settings
		WHERE id = 1
	`).Scan(
		&st.Shop.Name, &st.Shop.Address, &st.Shop.Phone, &st.Shop.GST, &st.Shop.Logo,
		&st.Tax.IGST, &st.Tax.CGST, &st.Tax.SGST,
		&st.Rates.GoldRate, &st.Rates.SilverRate, &ratesAt, &st.Rates.AutoUpdate, &st.Rates.UpdateInterval,
		&updatedAt,
	)
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	if st.Rates.LastUpdated, err = parseTime(ratesAt); err != nil {
		return Settings{}, err
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Settings{}, err
	}
	return st, nil
}

// UpdateSettings stores the shop, tax and auto-update fields. Metal rates are changed through UpdateRates.
func (s *Store) UpdateSettings(ctx context.Context, st Settings) (Settings, error) {
	if _, err := s.EnsureSettings(ctx); err != nil {
		return Settings{}, err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE settings
		SET
			shop_name = ?,
			shop_address = ?,
			shop_phone = ?,
			shop_gst = ?,
			shop_logo = ?,
			igst_percent = ?,
			cgst_percent = ?,
			sgst_percent = ?,
			auto_update = ?,
			update_interval_minutes = ?,
			updated_at = ?
		WHERE id = 1
	`,
		st.Shop.Name, st.Shop.Address, st.Shop.Phone, st.Shop.GST, st.Shop.Logo,
		st.Tax.IGST, st.Tax.CGST, st.Tax.SGST,
		st.Rates.AutoUpdate, st.Rates.UpdateInterval,
		FormatTime(s.timestamp()),
	)
	if err != nil {
		return Settings{}, fmt.Errorf("update settings: %w", err)
	}
	return s.GetSettings(ctx)
}

// UpdateRates stores new metal rates and stamps their update time.
func (s *Store) UpdateRates(ctx context.Context, goldRate, silverRate float64) (RateSettings, error) {
	if _, err := s.EnsureSettings(ctx); err != nil {
		return RateSettings{}, err
	}

	now := FormatTime(s.timestamp())
	_, err := s.db.ExecContext(ctx, `
		UPDATE settings
		SET gold_rate = ?, silver_rate = ?, rates_updated_at = ?, updated_at = ?
		WHERE id = 1
	`, goldRate, silverRate, now, now)
	if err != nil {
		return RateSettings{}, fmt.Errorf("update metal rates: %w", err)
	}

	st, err := s.GetSettings(ctx)
	if err != nil {
		return RateSettings{}, err
	}
	return st.Rates, nil
}
