package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/store"
)

type itemRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Category      string  `json:"category" validate:"required"`
	Type          string  `json:"type" validate:"max=100"`
	Weight        float64 `json:"weight"`
	Purity        string  `json:"purity" validate:"max=50"`
	MakingCharges float64 `json:"makingCharges"`
	StoneCharges  float64 `json:"stoneCharges"`
	Quantity      int     `json:"quantity" validate:"gte=0"`
	MinStockLevel int     `json:"minStockLevel" validate:"gte=0"`
}

// apply copies the request onto it. Weight and charges are checked by the engine when the item is priced.
func (req itemRequest) apply(it *store.Item) error {
	category, err := pricing.ParseCategory(req.Category)
	if err != nil {
		return err
	}
	it.Name = strings.TrimSpace(req.Name)
	it.Category = category
	it.Type = strings.TrimSpace(req.Type)
	it.Weight = req.Weight
	it.Purity = pricing.Purity(strings.TrimSpace(req.Purity))
	it.MakingCharges = req.MakingCharges
	it.StoneCharges = req.StoneCharges
	it.Quantity = req.Quantity
	it.MinStockLevel = req.MinStockLevel
	return nil
}

// priceItem sets the item's prices from the current rates.
func (s *server) priceItem(ctx context.Context, it *store.Item) error {
	snap, err := s.rates.Current(ctx)
	if err != nil {
		return err
	}
	b, err := pricing.ComputePrice(it.PriceInput(snap.GoldRate, snap.SilverRate, pricing.Margin(s.margin)))
	s.metrics.ObservePrice("inventory", err)
	if err != nil {
		return err
	}
	store.NewPriceUpdate(b, snap.GoldRate, snap.SilverRate).Apply(it)
	return nil
}

func (s *server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	filter := store.ItemFilter{Query: r.URL.Query().Get("q")}
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category, err := pricing.ParseCategory(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Category = category
	}

	items, err := s.store.ListItems(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), store.DefaultLowStockLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.store.ListLowStock(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	it, err := s.store.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *server) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var it store.Item
	if err := req.apply(&it); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkCatalog(r.Context(), &it, store.Item{}); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.priceItem(r.Context(), &it); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.store.CreateItem(r.Context(), it)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	it, err := s.store.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	prev := it
	if err := req.apply(&it); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkCatalog(r.Context(), &it, prev); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.priceItem(r.Context(), &it); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateItem(r.Context(), it)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
