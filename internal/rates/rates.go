// Package rates supplies the metal rates used to price inventory and bill lines.
package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/Simplici0/goldsmith/internal/store"
)

// Snapshot is a pair of metal rates in currency per gram and when they were set.
type Snapshot struct {
	GoldRate    float64   `json:"goldRate"`
	SilverRate  float64   `json:"silverRate"`
	LastUpdated time.Time `json:"lastUpdated"`
	Live        bool      `json:"live"`
}

// Source returns the rates currently in force.
type Source interface {
	Current(ctx context.Context) (Snapshot, error)
}

// SettingsReader is the part of the store SettingsSource needs.
type SettingsReader interface {
	GetSettings(ctx context.Context) (store.Settings, error)
}

// SettingsSource reads the rates stored in settings.
type SettingsSource struct {
	settings SettingsReader
}

// NewSettingsSource returns a Source backed by the settings row.
func NewSettingsSource(settings SettingsReader) *SettingsSource {
	return &SettingsSource{settings: settings}
}

func (s *SettingsSource) Current(ctx context.Context) (Snapshot, error) {
	st, err := s.settings.GetSettings(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read stored rates: %w", err)
	}
	return Snapshot{
		GoldRate:    st.Rates.GoldRate,
		SilverRate:  st.Rates.SilverRate,
		LastUpdated: st.Rates.LastUpdated,
	}, nil
}
