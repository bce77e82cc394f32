package billing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Status is the payment state of a bill.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// ErrInvalidBill is matched by every *ValidationError through errors.Is.
var ErrInvalidBill = errors.New("invalid bill")

// ValidationError names the bill field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid bill %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidBill
}

// Customer is who a bill is issued to.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Draft is a bill before it is persisted.
type Draft struct {
	Customer Customer
	Lines    []Line
	Tax      Tax
	Status   Status
}

// Normalize trims the customer fields, recalculates every line and defaults the status to pending.
func (d *Draft) Normalize() {
	d.Customer.Name = strings.TrimSpace(d.Customer.Name)
	d.Customer.Phone = strings.TrimSpace(d.Customer.Phone)
	d.Customer.Address = strings.TrimSpace(d.Customer.Address)
	if d.Status == "" {
		d.Status = StatusPending
	}
	for i := range d.Lines {
		if d.Lines[i].HSNCode == "" {
			d.Lines[i].HSNCode = DefaultHSNCode
		}
		d.Lines[i].Recalculate()
	}
}

// Validate checks the draft against the billing rules.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Customer.Name) == "" {
		return &ValidationError{Field: "customer.name", Reason: "is required"}
	}
	if !d.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", d.Status)}
	}
	if len(d.Lines) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for i, l := range d.Lines {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		if strings.TrimSpace(l.InventoryID) == "" {
			return &ValidationError{Field: field("inventoryId"), Reason: "is required"}
		}
		if l.Pieces <= 0 {
			return &ValidationError{Field: field("pieces"), Reason: "must be greater than 0"}
		}
		if !nonNegative(l.Rate) {
			return &ValidationError{Field: field("rate"), Reason: "must be 0 or greater"}
		}
		if !nonNegative(l.OtherCharges) {
			return &ValidationError{Field: field("otherCharges"), Reason: "must be 0 or greater"}
		}
	}
	for _, pct := range []struct {
		field string
		value float64
	}{{"tax.igst", d.Tax.IGST}, {"tax.cgst", d.Tax.CGST}, {"tax.sgst", d.Tax.SGST}} {
		if !nonNegative(pct.value) || pct.value > 100 {
			return &ValidationError{Field: pct.field, Reason: "must be between 0 and 100"}
		}
	}
	return nil
}

// Demand is the number of pieces a bill takes from one inventory item.
type Demand struct {
	InventoryID string
	Name        string
	Pieces      int
}

// StockDemand sums pieces per inventory item across lines, in order of first appearance.
func StockDemand(lines []Line) []Demand {
	index := make(map[string]int, len(lines))
	out := make([]Demand, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.InventoryID]; ok {
			out[i].Pieces += l.Pieces
			continue
		}
		index[l.InventoryID] = len(out)
		out = append(out, Demand{InventoryID: l.InventoryID, Name: l.Name, Pieces: l.Pieces})
	}
	return out
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
