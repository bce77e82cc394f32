package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CatalogKind separates the category list from the item type list.
type CatalogKind string

const (
	KindCategory CatalogKind = "category"
	KindType     CatalogKind = "type"
)

// Valid reports whether k is a known catalog kind.
func (k CatalogKind) Valid() bool {
	return k == KindCategory || k == KindType
}

// CatalogEntry is one named category or item type. Names are unique per kind, ignoring case.
type CatalogEntry struct {
	ID          string      `json:"id"`
	Kind        CatalogKind `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

const catalogColumns = `id, kind, name, description, is_active, created_at, updated_at`

func scanCatalogEntry(row scanner) (CatalogEntry, error) {
	var (
		e                CatalogEntry
		created, updated string
	)
	if err := row.Scan(&e.ID, &e.Kind, &e.Name, &e.Description, &e.IsActive, &created, &updated); err != nil {
		return CatalogEntry{}, err
	}
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return CatalogEntry{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return CatalogEntry{}, err
	}
	return e, nil
}

// ListCatalog returns the entries of one kind in creation order. Inactive entries are included on request.
func (s *Store) ListCatalog(ctx context.Context, kind CatalogKind, includeInactive bool) ([]CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog WHERE kind = ?`
	if !includeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list catalog %s: %w", kind, err)
	}
	defer rows.Close()

	entries := make([]CatalogEntry, 0)
	for rows.Next() {
		e, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return entries, nil
}

// GetCatalogEntry loads one entry by id.
func (s *Store) GetCatalogEntry(ctx context.Context, id string) (CatalogEntry, error) {
	e, err := scanCatalogEntry(s.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return CatalogEntry{}, fmt.Errorf("catalog entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("get catalog entry: %w", err)
	}
	return e, nil
}

// ActiveCatalogName returns the stored spelling of name when it is an active entry of kind.
func (s *Store) ActiveCatalogName(ctx context.Context, kind CatalogKind, name string) (string, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, `
		SELECT name FROM catalog WHERE kind = ? AND name = ? AND is_active = 1
	`, string(kind), strings.TrimSpace(name)).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("active %s %q: %w", kind, name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("look up %s %q: %w", kind, name, err)
	}
	return stored, nil
}

// CreateCatalogEntry stores a new entry with a fresh id.
func (s *Store) CreateCatalogEntry(ctx context.Context, e CatalogEntry) (CatalogEntry, error) {
	if !e.Kind.Valid() {
		return CatalogEntry{}, fmt.Errorf("unknown catalog kind %q", e.Kind)
	}
	now := s.timestamp()
	e.ID = uuid.NewString()
	e.Name = strings.TrimSpace(e.Name)
	e.CreatedAt = now
	e.UpdatedAt = now

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureCatalogNameFree(ctx, tx, e.Kind, e.Name, ""); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog (`+catalogColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ID, string(e.Kind), e.Name, e.Description, e.IsActive, FormatTime(e.CreatedAt), FormatTime(e.UpdatedAt)); err != nil {
			return fmt.Errorf("insert catalog entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return CatalogEntry{}, err
	}
	return e, nil
}

// UpdateCatalogEntry replaces the name, description and active flag of an entry. Its kind never changes.
func (s *Store) UpdateCatalogEntry(ctx context.Context, e CatalogEntry) (CatalogEntry, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.UpdatedAt = s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureCatalogNameFree(ctx, tx, e.Kind, e.Name, e.ID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE catalog
			SET name = ?, description = ?, is_active = ?, updated_at = ?
			WHERE id = ?
		`, e.Name, e.Description, e.IsActive, FormatTime(e.UpdatedAt), e.ID)
		if err != nil {
			return fmt.Errorf("update catalog entry: %w", err)
		}
		return expectOneRow(res, "catalog entry", e.ID)
	})
	if err != nil {
		return CatalogEntry{}, err
	}
	return s.GetCatalogEntry(ctx, e.ID)
}

// DeleteCatalogEntry removes an entry. Items keep the name they were saved with.
func (s *Store) DeleteCatalogEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	return expectOneRow(res, "catalog entry", id)
}

func ensureCatalogNameFree(ctx context.Context, tx *sql.Tx, kind CatalogKind, name, exceptID string) error {
	var taken bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM catalog WHERE kind = ? AND name = ? AND id <> ?)
	`, string(kind), name, exceptID).Scan(&taken); err != nil {
		return fmt.Errorf("check catalog name: %w", err)
	}
	if taken {
		return fmt.Errorf("%s %q: %w", kind, name, ErrDuplicate)
	}
	return nil
}
