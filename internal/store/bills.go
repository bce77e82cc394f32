package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/goldsmith/internal/billing"
)

const (
	// DefaultBillListLimit is used by ListBills when no limit is given.
	DefaultBillListLimit = 50
	maxBillListLimit     = 500

	billNumberAttempts = 5
)

// Bill is a persisted invoice. Its lines and totals are a snapshot and are never recalculated on read.
type Bill struct {
	ID         string           `json:"id"`
	BillNumber string           `json:"billNumber"`
	Customer   billing.Customer `json:"customer"`
	Lines      []billing.Line   `json:"items"`
	Tax        billing.Tax      `json:"taxSettings"`
	Totals     billing.Totals   `json:"totals"`
	Status     billing.Status   `json:"status"`
	GoldRate   float64          `json:"goldRate"`
	SilverRate float64          `json:"silverRate"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func (s *Store) nextBillNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return billing.NewBillNumber(s.now(), s.rnd)
}

// CreateBill stores a bill and takes its pieces out of stock in one transaction.
// A bill number is generated when b.BillNumber is empty.
func (s *Store) CreateBill(ctx context.Context, b Bill) (Bill, error) {
	now := s.timestamp()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = billing.StatusPending
	}
	generate := b.BillNumber == ""

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := decrementStock(ctx, tx, b.Lines, FormatTime(now)); err != nil {
			return err
		}

		number, err := s.claimBillNumber(ctx, tx, b.BillNumber, generate)
		if err != nil {
			return err
		}
		b.BillNumber = number

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bills (
				id, bill_number, customer_name, customer_phone, customer_address, status,
				igst_percent, cgst_percent, sgst_percent,
				net_amount, igst_amount, cgst_amount, sgst_amount, total_amount,
				gold_rate, silver_rate, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			b.ID, b.BillNumber, b.Customer.Name, b.Customer.Phone, b.Customer.Address, string(b.Status),
			b.Tax.IGST, b.Tax.CGST, b.Tax.SGST,
			b.Totals.NetAmount, b.Totals.IGSTAmount, b.Totals.CGSTAmount, b.Totals.SGSTAmount, b.Totals.TotalAmount,
			b.GoldRate, b.SilverRate, FormatTime(b.CreatedAt), FormatTime(b.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert bill: %w", err)
		}

		return insertBillLines(ctx, tx, b.ID, b.Lines)
	})
	if err != nil {
		return Bill{}, err
	}
	return b, nil
}

// decrementStock takes each item's total pieces out of stock with a guard so that quantity never goes negative.
func decrementStock(ctx context.Context, tx *sql.Tx, lines []billing.Line, now string) error {
	for _, l := range billing.StockDemand(lines) {
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET quantity = quantity - ?, updated_at = ?
			WHERE id = ? AND quantity >= ?
		`, l.Pieces, now, l.InventoryID, l.Pieces)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", l.InventoryID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("read stock update result: %w", err)
		}
		if affected == 1 {
			continue
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM inventory WHERE id = ?)`, l.InventoryID).Scan(&exists); err != nil {
			return fmt.Errorf("check inventory item existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("inventory item %s: %w", l.InventoryID, ErrNotFound)
		}
		return fmt.Errorf("%w for %s (%s): requested %d", ErrInsufficientStock, l.Name, l.InventoryID, l.Pieces)
	}
	return nil
}

func (s *Store) claimBillNumber(ctx context.Context, tx *sql.Tx, number string, generate bool) (string, error) {
	for attempt := 0; attempt < billNumberAttempts; attempt++ {
		if generate {
			number = s.nextBillNumber()
		}
		var taken bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bills WHERE bill_number = ?)`, number).Scan(&taken); err != nil {
			return "", fmt.Errorf("check bill number: %w", err)
		}
		if !taken {
			return number, nil
		}
		if !generate {
			return "", fmt.Errorf("bill number %s already exists", number)
		}
	}
	return "", fmt.Errorf("allocate bill number: %d attempts collided", billNumberAttempts)
}

func insertBillLines(ctx context.Context, tx *sql.Tx, billID string, lines []billing.Line) error {
	for i, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bill_items (
				bill_id, position, inventory_id, name, hsn_code, pieces,
				gross_weight, net_weight, rate, amount, other_charges, total
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			billID, i, l.InventoryID, l.Name, l.HSNCode, l.Pieces,
			l.GrossWeight, l.NetWeight, l.Rate, l.Amount, l.OtherCharges, l.Total,
		); err != nil {
			return fmt.Errorf("insert bill item %d: %w", i, err)
		}
	}
	return nil
}

const billColumns = `
	id, bill_number, customer_name, customer_phone, customer_address, status,
	igst_percent, cgst_percent, sgst_percent,
	net_amount, igst_amount, cgst_amount, sgst_amount, total_amount,
	gold_rate, silver_rate, created_at, updated_at`

func scanBill(row scanner) (Bill, error) {
	var (
		b                Bill
		created, updated string
	)
	err := row.Scan(
		&b.ID, &b.BillNumber, &b.Customer.Name, &b.Customer.Phone, &b.Customer.Address, &b.Status,
		&b.Tax.IGST, &b.Tax.CGST, &b.Tax.SGST,
		&b.Totals.NetAmount, &b.Totals.IGSTAmount, &b.Totals.CGSTAmount, &b.Totals.SGSTAmount, &b.Totals.TotalAmount,
		&b.GoldRate, &b.SilverRate, &created, &updated,
	)
	if err != nil {
		return Bill{}, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return Bill{}, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return Bill{}, err
	}
	return b, nil
}

// GetBill returns a bill with its lines exactly as they were saved.
func (s *Store) GetBill(ctx context.Context, id string) (Bill, error) {
	b, err := scanBill(s.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bill{}, fmt.Errorf("bill %s: %w", id, ErrNotFound)
		}
		return Bill{}, fmt.Errorf("query bill: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT inventory_id, name, hsn_code, pieces, gross_weight, net_weight, rate, amount, other_charges, total
		FROM bill_items
		WHERE bill_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return Bill{}, fmt.Errorf("query bill items: %w", err)
	}
	defer rows.Close()

	b.Lines = make([]billing.Line, 0)
	for rows.Next() {
		var l billing.Line
		if err := rows.Scan(
			&l.InventoryID, &l.Name, &l.HSNCode, &l.Pieces, &l.GrossWeight, &l.NetWeight,
			&l.Rate, &l.Amount, &l.OtherCharges, &l.Total,
		); err != nil {
			return Bill{}, fmt.Errorf("scan bill item: %w", err)
		}
		b.Lines = append(b.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return Bill{}, fmt.Errorf("iterate bill items: %w", err)
	}
	return b, nil
}

// ListBills returns bills newest first, matching query against bill number and customer name or phone.
// Lines are not loaded.
func (s *Store) ListBills(ctx context.Context, query string, limit int) ([]Bill, error) {
	if limit <= 0 {
		limit = DefaultBillListLimit
	}
	if limit > maxBillListLimit {
		limit = maxBillListLimit
	}
	query = strings.TrimSpace(query)
	search := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE (? = '' OR bill_number LIKE ? OR customer_name LIKE ? OR customer_phone LIKE ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, query, search, search, search, limit)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	bills := make([]Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}

// UpdateBill replaces a bill's customer, lines, tax, totals and status. Stock is not readjusted.
func (s *Store) UpdateBill(ctx context.Context, b Bill) (Bill, error) {
	now := FormatTime(s.timestamp())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE bills
			SET
				customer_name = ?,
				customer_phone = ?,
				customer_address = ?,
				status = ?,
				igst_percent = ?,
				cgst_percent = ?,
				sgst_percent = ?,
				net_amount = ?,
				igst_amount = ?,
				cgst_amount = ?,
				sgst_amount = ?,
				total_amount = ?,
				updated_at = ?
			WHERE id = ?
		`,
			b.Customer.Name, b.Customer.Phone, b.Customer.Address, string(b.Status),
			b.Tax.IGST, b.Tax.CGST, b.Tax.SGST,
			b.Totals.NetAmount, b.Totals.IGSTAmount, b.Totals.CGSTAmount, b.Totals.SGSTAmount, b.Totals.TotalAmount,
			now, b.ID,
		)
		if err != nil {
			return fmt.Errorf("update bill: %w", err)
		}
		if err := expectOneRow(res, "bill", b.ID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM bill_items WHERE bill_id = ?`, b.ID); err != nil {
			return fmt.Errorf("delete bill items: %w", err)
		}
		return insertBillLines(ctx, tx, b.ID, b.Lines)
	})
	if err != nil {
		return Bill{}, err
	}
	return s.GetBill(ctx, b.ID)
}
