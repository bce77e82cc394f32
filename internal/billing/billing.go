// Package billing holds the invoice arithmetic: bill lines, GST totals and bill numbers.
package billing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/goldsmith/internal/pricing"
)

// DefaultHSNCode is the HSN code for articles of jewellery of precious metal.
const DefaultHSNCode = "71131900"

// Tax holds the GST percentages applied to a bill's net amount.
type Tax struct {
	IGST float64 `json:"igst"`
	CGST float64 `json:"cgst"`
	SGST float64 `json:"sgst"`
}

// DefaultTax matches the settings seeded on first start.
var DefaultTax = Tax{IGST: 3.0, CGST: 1.5, SGST: 1.5}

// Line is one item on a bill.
type Line struct {
	InventoryID  string  `json:"inventoryId"`
	Name         string  `json:"name"`
	HSNCode      string  `json:"hsnCode"`
	Pieces       int     `json:"pieces"`
	GrossWeight  float64 `json:"grossWeight"`
	NetWeight    float64 `json:"netWeight"`
	Rate         float64 `json:"rate"`
	Amount       float64 `json:"amount"`
	OtherCharges float64 `json:"otherCharges"`
	Total        float64 `json:"total"`
}

// Recalculate derives Amount and Total from Pieces, Rate and OtherCharges.
func (l *Line) Recalculate() {
	amount := decimal.NewFromInt(int64(l.Pieces)).Mul(decimal.NewFromFloat(l.Rate)).Round(2)
	l.Amount = amount.InexactFloat64()
	l.Total = amount.Add(decimal.NewFromFloat(l.OtherCharges)).Round(2).InexactFloat64()
}

// PriceLine prices a single piece of an inventory item for a new bill line.
// Making and stone charges are left to the caller's input, so the line rate is the engine's sale price.
func PriceLine(inventoryID, name string, in pricing.Input) (Line, error) {
	b, err := pricing.ComputePrice(in)
	if err != nil {
		return Line{}, fmt.Errorf("price bill line %s: %w", inventoryID, err)
	}

	line := Line{
		InventoryID: inventoryID,
		Name:        name,
		HSNCode:     DefaultHSNCode,
		Pieces:      1,
		GrossWeight: in.Weight,
		NetWeight:   in.Weight,
		Rate:        b.SalePrice,
	}
	line.Recalculate()
	return line, nil
}

// Totals are the bill-level amounts.
type Totals struct {
	NetAmount   float64 `json:"netAmount"`
	IGSTAmount  float64 `json:"igstAmount"`
	CGSTAmount  float64 `json:"cgstAmount"`
	SGSTAmount  float64 `json:"sgstAmount"`
	TotalAmount float64 `json:"totalAmount"`
}

// ComputeTotals sums line totals and applies each GST percentage to the net amount.
// The grand total is the sum of the rounded components.
func ComputeTotals(lines []Line, tax Tax) Totals {
	net := decimal.Zero
	for _, l := range lines {
		net = net.Add(decimal.NewFromFloat(l.Total))
	}
	net = net.Round(2)

	hundred := decimal.NewFromInt(100)
	percentOf := func(p float64) decimal.Decimal {
		return net.Mul(decimal.NewFromFloat(p)).Div(hundred).Round(2)
	}
	igst := percentOf(tax.IGST)
	cgst := percentOf(tax.CGST)
	sgst := percentOf(tax.SGST)

	return Totals{
		NetAmount:   net.InexactFloat64(),
		IGSTAmount:  igst.InexactFloat64(),
		CGSTAmount:  cgst.InexactFloat64(),
		SGSTAmount:  sgst.InexactFloat64(),
		TotalAmount: net.Add(igst).Add(cgst).Add(sgst).InexactFloat64(),
	}
}

// NewBillNumber returns INV followed by the date as yyMMdd and three random digits.
func NewBillNumber(now time.Time, rnd *rand.Rand) string {
	return fmt.Sprintf("INV%s%03d", now.Format("060102"), rnd.Intn(1000))
}
