package rates

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Simplici0/goldsmith/internal/pricing"
)

const (
	DefaultBaseGoldRate   = 6800.0
	DefaultBaseSilverRate = 85.0

	// DefaultJitter is the largest relative move of a simulated rate from its base.
	DefaultJitter = 0.02
)

// SimulatedFeed stands in for a market feed: each call draws rates within Jitter of the base rates.
type SimulatedFeed struct {
	BaseGold   float64
	BaseSilver float64
	Jitter     float64

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewSimulatedFeed returns a feed around the given base rates. A nil rnd is seeded from the clock.
func NewSimulatedFeed(baseGold, baseSilver float64, rnd *rand.Rand) *SimulatedFeed {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedFeed{
		BaseGold:   baseGold,
		BaseSilver: baseSilver,
		Jitter:     DefaultJitter,
		rnd:        rnd,
		now:        time.Now,
	}
}

func (f *SimulatedFeed) Current(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	f.mu.Lock()
	gold := f.move(f.BaseGold)
	silver := f.move(f.BaseSilver)
	f.mu.Unlock()

	return Snapshot{
		GoldRate:    gold,
		SilverRate:  silver,
		LastUpdated: f.now().UTC(),
		Live:        true,
	}, nil
}

func (f *SimulatedFeed) move(base float64) float64 {
	delta := (f.rnd.Float64()*2 - 1) * f.Jitter
	return pricing.Round2(base * (1 + delta))
}
