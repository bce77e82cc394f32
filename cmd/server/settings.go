package main

import (
	"context"
	"net/http"

	"github.com/Simplici0/goldsmith/internal/billing"
	"github.com/Simplici0/goldsmith/internal/store"
)

type taxRequest struct {
	IGST float64 `json:"igst" validate:"gte=0,lte=100"`
	CGST float64 `json:"cgst" validate:"gte=0,lte=100"`
	SGST float64 `json:"sgst" validate:"gte=0,lte=100"`
}

type rateSettingsRequest struct {
	GoldRate       float64 `json:"goldRate" validate:"gt=0"`
	SilverRate     float64 `json:"silverRate" validate:"gt=0"`
	AutoUpdate     bool    `json:"autoUpdate"`
	UpdateInterval int     `json:"updateInterval" validate:"gte=1,lte=1440"`
}

type settingsRequest struct {
	Shop  store.Shop           `json:"shop"`
	Tax   taxRequest           `json:"tax"`
	Rates *rateSettingsRequest `json:"rates"`
}

type ratesRequest struct {
	GoldRate   float64 `json:"goldRate" validate:"gt=0"`
	SilverRate float64 `json:"silverRate" validate:"gt=0"`
}

type invalidator interface {
	Invalidate(ctx context.Context) error
}

func (s *server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": st})
}

func (s *server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	current, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	current.Shop = req.Shop
	current.Tax = billing.Tax{IGST: req.Tax.IGST, CGST: req.Tax.CGST, SGST: req.Tax.SGST}
	if req.Rates != nil {
		current.Rates.AutoUpdate = req.Rates.AutoUpdate
		current.Rates.UpdateInterval = req.Rates.UpdateInterval
	}

	if _, err := s.store.UpdateSettings(r.Context(), current); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Rates != nil && (req.Rates.GoldRate != current.Rates.GoldRate || req.Rates.SilverRate != current.Rates.SilverRate) {
		if _, err := s.UpdateRates(r.Context(), req.Rates.GoldRate, req.Rates.SilverRate); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	updated, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": updated})
}

func (s *server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	snap, err := s.rates.Current(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handlePutRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.UpdateRates(r.Context(), req.GoldRate, req.SilverRate); err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.rates.Current(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// UpdateRates stores new metal rates and drops any cached copy, so readers see them at once.
func (s *server) UpdateRates(ctx context.Context, gold, silver float64) (store.RateSettings, error) {
	stored, err := s.store.UpdateRates(ctx, gold, silver)
	if err != nil {
		return store.RateSettings{}, err
	}
	if c, ok := s.rates.(invalidator); ok {
		if err := c.Invalidate(ctx); err != nil {
			s.log.Warn().Err(err).Msg("rate cache not invalidated")
		}
	}
	s.metrics.ObserveRates(gold, silver)
	return stored, nil
}
