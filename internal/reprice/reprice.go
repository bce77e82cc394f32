// Package reprice recomputes stored inventory prices from the current metal rates.
package reprice

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Simplici0/goldsmith/internal/events"
	"github.com/Simplici0/goldsmith/internal/obs"
	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/rates"
	"github.com/Simplici0/goldsmith/internal/store"
)

// DefaultThreshold is the relative change in cost or sale price that triggers a rewrite.
const DefaultThreshold = 0.05

// Inventory is the part of the store the job reads and writes.
type Inventory interface {
	ListItems(ctx context.Context, f store.ItemFilter) ([]store.Item, error)
	UpdateItemPrices(ctx context.Context, id string, u store.PriceUpdate) error
}

// RateWriter persists the rates a pass was priced with.
type RateWriter interface {
	UpdateRates(ctx context.Context, goldRate, silverRate float64) (store.RateSettings, error)
}

// Options configures a Job. Zero values select the defaults.
type Options struct {
	// Threshold is the relative change that triggers a rewrite. Nil selects DefaultThreshold; 0 rewrites on any change.
	Threshold *float64
	Margin    *float64
	Publisher events.Publisher
	Metrics   *obs.Metrics
	Logger    zerolog.Logger
	// RateWriter, when set, stores live rates from the source before items are priced.
	RateWriter RateWriter
}

// Job runs repricing passes. Concurrent calls to Run are serialized, so passes never overlap.
type Job struct {
	mu sync.Mutex

	inventory  Inventory
	source     rates.Source
	threshold  float64
	margin     *float64
	publisher  events.Publisher
	metrics    *obs.Metrics
	log        zerolog.Logger
	rateWriter RateWriter
	now        func() time.Time
}

// New returns a Job that prices inventory items with rates from source.
// A negative or NaN threshold falls back to DefaultThreshold.
func New(inventory Inventory, source rates.Source, opts Options) *Job {
	threshold := DefaultThreshold
	if opts.Threshold != nil && *opts.Threshold >= 0 {
		threshold = *opts.Threshold
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(opts.Logger)
	}
	return &Job{
		inventory:  inventory,
		source:     source,
		threshold:  threshold,
		margin:     opts.Margin,
		publisher:  publisher,
		metrics:    opts.Metrics,
		log:        opts.Logger,
		rateWriter: opts.RateWriter,
		now:        time.Now,
	}
}

// ItemError records why one item could not be repriced.
type ItemError struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Error  string `json:"error"`
}

// Report summarizes one pass.
type Report struct {
	Processed int         `json:"processed"`
	Updated   int         `json:"updated"`
	Unchanged int         `json:"unchanged"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
	// FallbackPurity counts gold and silver items priced as pure metal because their purity is not in the table.
	FallbackPurity int     `json:"fallbackPurity"`
	GoldRate       float64 `json:"goldRate"`
	SilverRate     float64 `json:"silverRate"`
	Live           bool    `json:"live"`
}

// Run reprices every inventory item. An item that fails is recorded in the report and the pass continues.
// An error is returned only when the rates or the item list cannot be read, or ctx ends.
func (j *Job) Run(ctx context.Context) (Report, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	report, err := j.run(ctx)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case report.Failed > 0:
		outcome = "partial"
	}
	if j.metrics != nil {
		j.metrics.RepriceRuns.WithLabelValues(outcome).Inc()
	}

	ev := j.log.Info()
	if err != nil {
		ev = j.log.Error().Err(err)
	}
	ev.Int("processed", report.Processed).
		Int("updated", report.Updated).
		Int("unchanged", report.Unchanged).
		Int("failed", report.Failed).
		Int("fallback_purity", report.FallbackPurity).
		Float64("gold_rate", report.GoldRate).
		Float64("silver_rate", report.SilverRate).
		Msg("reprice pass finished")
	return report, err
}

func (j *Job) run(ctx context.Context) (Report, error) {
	var report Report

	snap, err := j.source.Current(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch metal rates: %w", err)
	}
	report.GoldRate, report.SilverRate, report.Live = snap.GoldRate, snap.SilverRate, snap.Live
	j.metrics.ObserveRates(snap.GoldRate, snap.SilverRate)

	if snap.Live && j.rateWriter != nil {
		if _, err := j.rateWriter.UpdateRates(ctx, snap.GoldRate, snap.SilverRate); err != nil {
			return report, fmt.Errorf("store live metal rates: %w", err)
		}
	}

	items, err := j.inventory.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		return report, fmt.Errorf("list inventory: %w", err)
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++
		if it.Category.MetalRated() && !it.Purity.Known() {
			report.FallbackPurity++
			j.log.Warn().Str("item_id", it.ID).Str("purity", string(it.Purity)).Msg("unknown purity priced as pure metal")
		}

		result, err := j.repriceItem(ctx, it, snap)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, ItemError{ItemID: it.ID, Name: it.Name, Error: err.Error()})
			j.log.Warn().Err(err).Str("item_id", it.ID).Msg("reprice item failed")
			j.observeItem("failed")
			continue
		}
		if result {
			report.Updated++
			j.observeItem("updated")
		} else {
			report.Unchanged++
			j.observeItem("unchanged")
		}
	}
	return report, nil
}

// repriceItem reports whether it stored new prices for it.
func (j *Job) repriceItem(ctx context.Context, it store.Item, snap rates.Snapshot) (bool, error) {
	b, err := pricing.ComputePrice(it.PriceInput(snap.GoldRate, snap.SilverRate, j.margin))
	j.metrics.ObservePrice("reprice", err)
	if err != nil {
		return false, err
	}

	if !Changed(it.CostPrice, b.CostPrice, j.threshold) && !Changed(it.SalePrice, b.SalePrice, j.threshold) {
		return false, nil
	}

	if err := j.inventory.UpdateItemPrices(ctx, it.ID, store.NewPriceUpdate(b, snap.GoldRate, snap.SilverRate)); err != nil {
		return false, err
	}

	ev := events.PriceChanged{
		ItemID:       it.ID,
		Name:         it.Name,
		Category:     string(it.Category),
		Purity:       string(it.Purity),
		OldCostPrice: it.CostPrice,
		NewCostPrice: b.CostPrice,
		OldSalePrice: it.SalePrice,
		NewSalePrice: b.SalePrice,
		GoldRate:     snap.GoldRate,
		SilverRate:   snap.SilverRate,
		ChangedAt:    j.now().UTC(),
	}
	if err := j.publisher.PublishPriceChanged(ctx, ev); err != nil {
		// The new prices are already stored; a lost event does not fail the item.
		j.log.Warn().Err(err).Str("item_id", it.ID).Msg("publish price change failed")
	}
	return true, nil
}

func (j *Job) observeItem(result string) {
	if j.metrics != nil {
		j.metrics.RepricedItems.WithLabelValues(result).Inc()
	}
}

// Changed reports whether next differs from prev by more than threshold, relative to prev.
// A stored value of zero counts as changed whenever next is non-zero.
func Changed(prev, next, threshold float64) bool {
	if prev == 0 {
		return next != 0
	}
	return math.Abs(next-prev)/math.Abs(prev) > threshold
}

// Start runs a pass every interval until ctx is done. Failed passes are logged by Run and retried on the next tick.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.Run(ctx)
		}
	}
}
