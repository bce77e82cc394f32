package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/goldsmith/internal/billing"
	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/store"
)

type customerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address" validate:"max=500"`
}

type lineRequest struct {
	InventoryID  string  `json:"inventoryId" validate:"required"`
	Name         string  `json:"name" validate:"max=200"`
	HSNCode      string  `json:"hsnCode" validate:"max=20"`
	Pieces       int     `json:"pieces" validate:"gt=0"`
	GrossWeight  float64 `json:"grossWeight" validate:"gte=0"`
	NetWeight    float64 `json:"netWeight" validate:"gte=0"`
	Rate         float64 `json:"rate" validate:"gte=0"`
	OtherCharges float64 `json:"otherCharges" validate:"gte=0"`
}

type billRequest struct {
	Customer customerRequest `json:"customer"`
	Items    []lineRequest   `json:"items" validate:"required,min=1,dive"`
	Tax      *taxRequest     `json:"taxSettings"`
	Status   string          `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
}

type billLineRequest struct {
	InventoryID string `json:"inventoryId" validate:"required"`
}

// draft turns the request into a normalized, validated bill draft. Tax defaults to the stored settings.
func (s *server) draft(ctx context.Context, req billRequest, fallbackTax billing.Tax) (billing.Draft, error) {
	d := billing.Draft{
		Customer: billing.Customer{Name: req.Customer.Name, Phone: req.Customer.Phone, Address: req.Customer.Address},
		Tax:      fallbackTax,
		Status:   billing.Status(req.Status),
		Lines:    make([]billing.Line, 0, len(req.Items)),
	}
	if req.Tax != nil {
		d.Tax = billing.Tax{IGST: req.Tax.IGST, CGST: req.Tax.CGST, SGST: req.Tax.SGST}
	}

	for _, li := range req.Items {
		line := billing.Line{
			InventoryID:  li.InventoryID,
			Name:         strings.TrimSpace(li.Name),
			HSNCode:      strings.TrimSpace(li.HSNCode),
			Pieces:       li.Pieces,
			GrossWeight:  li.GrossWeight,
			NetWeight:    li.NetWeight,
			Rate:         li.Rate,
			OtherCharges: li.OtherCharges,
		}
		if line.Name == "" {
			it, err := s.store.GetItem(ctx, li.InventoryID)
			if err != nil {
				return billing.Draft{}, err
			}
			line.Name = it.Name
		}
		d.Lines = append(d.Lines, line)
	}

	d.Normalize()
	if err := d.Validate(); err != nil {
		return billing.Draft{}, err
	}
	return d, nil
}

func (s *server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.draft(r.Context(), req, settings.Tax)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.rates.Current(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	bill, err := s.store.CreateBill(r.Context(), store.Bill{
		Customer:   d.Customer,
		Lines:      d.Lines,
		Tax:        d.Tax,
		Totals:     billing.ComputeTotals(d.Lines, d.Tax),
		Status:     d.Status,
		GoldRate:   snap.GoldRate,
		SilverRate: snap.SilverRate,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (s *server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	existing, err := s.store.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Status == "" {
		req.Status = string(existing.Status)
	}
	d, err := s.draft(r.Context(), req, existing.Tax)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	existing.Customer = d.Customer
	existing.Lines = d.Lines
	existing.Tax = d.Tax
	existing.Totals = billing.ComputeTotals(d.Lines, d.Tax)
	existing.Status = d.Status

	updated, err := s.store.UpdateBill(r.Context(), existing)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleGetBill returns the stored snapshot. Lines and totals are not recalculated.
func (s *server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.store.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *server) handleListBills(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), store.DefaultBillListLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	bills, err := s.store.ListBills(r.Context(), query, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "bills": bills})
}

// handlePriceBillLine prices one piece of an inventory item with the current rates.
func (s *server) handlePriceBillLine(w http.ResponseWriter, r *http.Request) {
	var req billLineRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	it, err := s.store.GetItem(r.Context(), req.InventoryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.rates.Current(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	line, err := billing.PriceLine(it.ID, it.Name, it.PriceInput(snap.GoldRate, snap.SilverRate, pricing.Margin(s.margin)))
	s.metrics.ObservePrice("bill_line", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}
