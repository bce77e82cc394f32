package main

import (
	"net/http"

	"github.com/Simplici0/goldsmith/internal/pricing"
)

type priceRequest struct {
	Weight        float64  `json:"weight"`
	Category      string   `json:"category" validate:"required"`
	Purity        string   `json:"purity" validate:"max=50"`
	MakingCharges float64  `json:"makingCharges"`
	StoneCharges  float64  `json:"stoneCharges"`
	ProfitMargin  *float64 `json:"profitMargin"`
	GoldRate      *float64 `json:"goldRate"`
	SilverRate    *float64 `json:"silverRate"`
}

type priceResponse struct {
	pricing.Breakdown
	GoldRate   float64 `json:"goldRate"`
	SilverRate float64 `json:"silverRate"`
	Live       bool    `json:"live"`
}

// handleCalculatePrice prices a hypothetical item. Rates in the request override the current rates.
func (s *server) handleCalculatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := pricing.ParseCategory(req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.rates.Current(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.GoldRate != nil {
		snap.GoldRate, snap.Live = *req.GoldRate, false
	}
	if req.SilverRate != nil {
		snap.SilverRate, snap.Live = *req.SilverRate, false
	}

	margin := req.ProfitMargin
	if margin == nil {
		margin = pricing.Margin(s.margin)
	}
	b, err := pricing.ComputePrice(pricing.Input{
		Weight:        req.Weight,
		Category:      category,
		Purity:        pricing.Purity(req.Purity),
		MakingCharges: req.MakingCharges,
		StoneCharges:  req.StoneCharges,
		GoldRate:      snap.GoldRate,
		SilverRate:    snap.SilverRate,
		ProfitMargin:  margin,
	})
	s.metrics.ObservePrice("calculate", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, priceResponse{Breakdown: b, GoldRate: snap.GoldRate, SilverRate: snap.SilverRate, Live: snap.Live})
}

func (s *server) handleReprice(w http.ResponseWriter, r *http.Request) {
	report, err := s.reprice.Run(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type purityOption struct {
	Purity     pricing.Purity `json:"purity"`
	Multiplier float64        `json:"multiplier"`
}

// handlePurityOptions lists the purity keys offered for a category.
func (s *server) handlePurityOptions(w http.ResponseWriter, r *http.Request) {
	category, err := pricing.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	options := make([]purityOption, 0)
	for _, p := range pricing.PurityOptions(category) {
		options = append(options, purityOption{Purity: p, Multiplier: p.Multiplier()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "purities": options})
}
