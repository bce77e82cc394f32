package reprice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/goldsmith/internal/events"
	"github.com/Simplici0/goldsmith/internal/obs"
	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/rates"
	"github.com/Simplici0/goldsmith/internal/store"
)

type fakeInventory struct {
	mu        sync.Mutex
	items     []store.Item
	updates   map[string]store.PriceUpdate
	failWrite map[string]error
	listErr   error
}

func (f *fakeInventory) ListItems(context.Context, store.ItemFilter) ([]store.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeInventory) UpdateItemPrices(_ context.Context, id string, u store.PriceUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failWrite[id]; err != nil {
		return err
	}
	if f.updates == nil {
		f.updates = map[string]store.PriceUpdate{}
	}
	f.updates[id] = u
	return nil
}

type fixedRates rates.Snapshot

func (r fixedRates) Current(context.Context) (rates.Snapshot, error) {
	return rates.Snapshot(r), nil
}

type recordingPublisher struct {
	events []events.PriceChanged
	err    error
}

func (p *recordingPublisher) PublishPriceChanged(_ context.Context, ev events.PriceChanged) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type rateRecorder struct {
	gold, silver float64
	calls        int
}

func (r *rateRecorder) UpdateRates(_ context.Context, gold, silver float64) (store.RateSettings, error) {
	r.calls++
	r.gold, r.silver = gold, silver
	return store.RateSettings{GoldRate: gold, SilverRate: silver}, nil
}

// pricedAt returns an item whose stored prices were computed at the given gold rate.
func pricedAt(t *testing.T, id string, goldRate float64) store.Item {
	t.Helper()
	it := store.Item{
		ID:            id,
		Name:          "Gold Wedding Ring",
		Category:      pricing.Gold,
		Weight:        5.5,
		Purity:        pricing.Karat22,
		MakingCharges: 2500,
	}
	b, err := pricing.ComputePrice(it.PriceInput(goldRate, 85, nil))
	require.NoError(t, err)
	store.NewPriceUpdate(b, goldRate, 85).Apply(&it)
	return it
}

func TestRunAppliesThreshold(t *testing.T) {
	inv := &fakeInventory{items: []store.Item{
		pricedAt(t, "small-move", 6800),
		pricedAt(t, "big-move", 6000),
	}}
	pub := &recordingPublisher{}
	job := New(inv, fixedRates{GoldRate: 6900, SilverRate: 85}, Options{Publisher: pub, Logger: zerolog.Nop()})

	report, err := job.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.Processed)
	require.Equal(t, 1, report.Updated)
	require.Equal(t, 1, report.Unchanged)
	require.Zero(t, report.Failed)
	require.Contains(t, inv.updates, "big-move")
	require.NotContains(t, inv.updates, "small-move")
	require.Equal(t, 6900.0, inv.updates["big-move"].GoldRate)

	require.Len(t, pub.events, 1)
	require.Equal(t, "big-move", pub.events[0].ItemID)
	require.Greater(t, pub.events[0].NewSalePrice, pub.events[0].OldSalePrice)
}

func TestRunZeroThresholdRewritesAnyChange(t *testing.T) {
	inv := &fakeInventory{items: []store.Item{pricedAt(t, "small-move", 6800)}}
	zero := 0.0
	job := New(inv, fixedRates{GoldRate: 6900, SilverRate: 85}, Options{Threshold: &zero, Logger: zerolog.Nop()})

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)
	require.Contains(t, inv.updates, "small-move")

	negative := -1.0
	fallback := New(&fakeInventory{items: []store.Item{pricedAt(t, "small-move", 6800)}},
		fixedRates{GoldRate: 6900, SilverRate: 85}, Options{Threshold: &negative, Logger: zerolog.Nop()})
	report, err = fallback.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Unchanged, "negative threshold uses the default")
}

func TestRunCountsFallbackPurities(t *testing.T) {
	odd := pricedAt(t, "odd-purity", 6000)
	odd.Purity = "916 hallmark"
	pearl := store.Item{ID: "pearl", Name: "Pearl", Category: pricing.Others, Weight: 10, Purity: "Natural Pearl"}
	inv := &fakeInventory{items: []store.Item{odd, pricedAt(t, "ok", 6000), pearl}}
	job := New(inv, fixedRates{GoldRate: 7000, SilverRate: 85}, Options{Logger: zerolog.Nop()})

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.FallbackPurity)
	require.Equal(t, 38500.0, inv.updates["odd-purity"].PurityAdjustedPrice)
}

// overlapSource records how many passes read rates at the same time.
type overlapSource struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (s *overlapSource) Current(context.Context) (rates.Snapshot, error) {
	s.mu.Lock()
	s.active++
	if s.active > s.maxSeen {
		s.maxSeen = s.active
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return rates.Snapshot{GoldRate: 7000, SilverRate: 85, Live: true}, nil
}

func TestRunSerializesPasses(t *testing.T) {
	source := &overlapSource{}
	job := New(&fakeInventory{}, source, Options{Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := job.Run(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, source.maxSeen)
}

func TestRunContinuesPastFailures(t *testing.T) {
	bad := pricedAt(t, "bad-weight", 6000)
	bad.Weight = 0
	unwritable := pricedAt(t, "unwritable", 6000)
	inv := &fakeInventory{
		items:     []store.Item{bad, unwritable, pricedAt(t, "ok", 6000)},
		failWrite: map[string]error{"unwritable": errors.New("disk full")},
	}

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)
	job := New(inv, fixedRates{GoldRate: 7000, SilverRate: 85}, Options{Metrics: metrics, Logger: zerolog.Nop()})

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Processed)
	require.Equal(t, 2, report.Failed)
	require.Equal(t, 1, report.Updated)
	require.Len(t, report.Errors, 2)
	require.Equal(t, "bad-weight", report.Errors[0].ItemID)
	require.Contains(t, report.Errors[0].Error, "weight")

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.RepriceRuns.WithLabelValues("partial")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.RepricedItems.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.PriceCalculations.WithLabelValues("reprice", "invalid")))
	require.Equal(t, 7000.0, testutil.ToFloat64(metrics.MetalRate.WithLabelValues("gold")))
}

func TestRunPublishFailureDoesNotFailItem(t *testing.T) {
	inv := &fakeInventory{items: []store.Item{pricedAt(t, "a", 6000)}}
	job := New(inv, fixedRates{GoldRate: 7000, SilverRate: 85}, Options{
		Publisher: &recordingPublisher{err: errors.New("broker down")},
		Logger:    zerolog.Nop(),
	})

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)
	require.Zero(t, report.Failed)
}

func TestRunRepricesNonMetalCategoriesThroughEngine(t *testing.T) {
	pearl := store.Item{
		ID:            "pearl",
		Name:          "Pearl Necklace",
		Category:      pricing.Others,
		Weight:        45,
		Purity:        "Natural Pearl",
		MakingCharges: 2000,
		StoneCharges:  8000,
		CostPrice:     0,
	}
	inv := &fakeInventory{items: []store.Item{pearl}}
	job := New(inv, fixedRates{GoldRate: 7000, SilverRate: 85}, Options{Logger: zerolog.Nop()})

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)
	require.Equal(t, 14500.0, inv.updates["pearl"].CostPrice)
}

func TestRunStoresLiveRates(t *testing.T) {
	writer := &rateRecorder{}
	job := New(&fakeInventory{}, fixedRates{GoldRate: 6912.4, SilverRate: 86.1, Live: true}, Options{
		RateWriter: writer,
		Logger:     zerolog.Nop(),
	})

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Live)
	require.Equal(t, 1, writer.calls)
	require.Equal(t, 6912.4, writer.gold)

	stored := New(&fakeInventory{}, fixedRates{GoldRate: 6800, SilverRate: 85}, Options{RateWriter: writer, Logger: zerolog.Nop()})
	_, err = stored.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, writer.calls, "stored rates are not written back")
}

func TestRunFailsWhenInventoryUnreadable(t *testing.T) {
	boom := errors.New("no such table")
	job := New(&fakeInventory{listErr: boom}, fixedRates{GoldRate: 6800, SilverRate: 85}, Options{Logger: zerolog.Nop()})

	_, err := job.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	inv := &fakeInventory{items: []store.Item{pricedAt(t, "a", 6000)}}
	job := New(inv, fixedRates{GoldRate: 7000, SilverRate: 85}, Options{Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := job.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, report.Processed)
}

func TestChanged(t *testing.T) {
	require.False(t, Changed(100, 105, 0.05))
	require.True(t, Changed(100, 105.01, 0.05))
	require.True(t, Changed(100, 94.99, 0.05))
	require.True(t, Changed(0, 1, 0.05))
	require.False(t, Changed(0, 0, 0.05))
}

func TestStartRunsUntilCancelled(t *testing.T) {
	inv := &fakeInventory{items: []store.Item{pricedAt(t, "a", 6000)}}
	job := New(inv, fixedRates{GoldRate: 7000, SilverRate: 85}, Options{Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		_, ok := inv.updates["a"]
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
