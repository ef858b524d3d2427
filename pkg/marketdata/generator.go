package marketdata

import (
	"math"
	"math/rand"
	"time"
)

const (
	secondsPerTradingDay = 6.5 * 60 * 60 // 09:30-16:00 ET
	depthLevels          = 5
)

// PriceProcessConfig configures the synthetic quote generator.
type PriceProcessConfig struct {
	Symbols        []string
	InitialPrices  map[string]float64 // missing symbols start at uniform(100,500)
	Volatility     float64            // daily volatility, e.g. 0.02
	TickSize       float64
	LotSize        int64
	UpdateInterval time.Duration
	Seed           int64 // 0 = seed from wall clock
}

func (c *PriceProcessConfig) withDefaults() PriceProcessConfig {
	out := *c
	if len(out.Symbols) == 0 {
		out.Symbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"}
	}
	if out.Volatility == 0 {
		out.Volatility = 0.02
	}
	if out.TickSize == 0 {
		out.TickSize = 0.01
	}
	if out.LotSize == 0 {
		out.LotSize = 100
	}
	if out.UpdateInterval == 0 {
		out.UpdateInterval = time.Second
	}
	if out.Seed == 0 {
		out.Seed = time.Now().UnixNano()
	}
	return out
}

// PriceProcess evolves one price per symbol with a geometric Brownian motion
// step and synthesizes a five-level depth book around it. All randomness
// comes from a single owned source, so a fixed seed reproduces the exact
// same tick sequence.
type PriceProcess struct {
	cfg    PriceProcessConfig
	prices map[string]float64
	rng    *rand.Rand
	clock  Clock
}

func NewPriceProcess(cfg *PriceProcessConfig) *PriceProcess {
	c := cfg.withDefaults()
	rng := rand.New(rand.NewSource(c.Seed))

	prices := make(map[string]float64, len(c.Symbols))
	for _, sym := range c.Symbols {
		if p, ok := c.InitialPrices[sym]; ok {
			prices[sym] = p
			continue
		}
		prices[sym] = roundTo(100+rng.Float64()*400, 0.01)
	}

	return &PriceProcess{
		cfg:    c,
		prices: prices,
		rng:    rng,
		clock:  realClock{},
	}
}

// Symbols returns the tracked symbol set.
func (p *PriceProcess) Symbols() []string {
	out := make([]string, len(p.cfg.Symbols))
	copy(out, p.cfg.Symbols)
	return out
}

// Price returns the current price for symbol, or 0 if untracked.
func (p *PriceProcess) Price(symbol string) float64 {
	return p.prices[symbol]
}

// Next advances symbol by one step and returns the resulting tick.
func (p *PriceProcess) Next(symbol string) *Tick {
	price, ok := p.prices[symbol]
	if !ok {
		price = roundTo(100+p.rng.Float64()*400, 0.01)
	}

	dt := p.cfg.UpdateInterval.Seconds() / secondsPerTradingDay
	shock := p.rng.NormFloat64() * p.cfg.Volatility * math.Sqrt(dt)
	price = roundTo(price*math.Exp(shock), p.cfg.TickSize)
	p.prices[symbol] = price

	spread := p.cfg.TickSize * float64(1+p.rng.Intn(5))
	bid := price - spread/2
	ask := price + spread/2

	bidSize := int64(1+p.rng.Intn(20)) * p.cfg.LotSize
	askSize := int64(1+p.rng.Intn(20)) * p.cfg.LotSize

	tick := &Tick{
		Symbol:    symbol,
		Timestamp: p.clock.Now(),
		Bid:       bid,
		Ask:       ask,
		Last:      price,
		Volume:    int64(100 + p.rng.Intn(9901)),
		Bids:      make([]Level, 0, depthLevels),
		Asks:      make([]Level, 0, depthLevels),
	}

	for i := 0; i < depthLevels; i++ {
		decay := math.Pow(0.5, float64(i))
		tick.Bids = append(tick.Bids, Level{
			Price: roundTo(bid-float64(i)*p.cfg.TickSize, 0.01),
			Size:  levelSize(bidSize, decay, p.rng),
		})
		tick.Asks = append(tick.Asks, Level{
			Price: roundTo(ask+float64(i)*p.cfg.TickSize, 0.01),
			Size:  levelSize(askSize, decay, p.rng),
		})
	}

	return tick
}

// levelSize decays the touch size per level with +-20% jitter, min 1.
func levelSize(touch int64, decay float64, rng *rand.Rand) int64 {
	jitter := 0.8 + rng.Float64()*0.4
	size := int64(float64(touch) * decay * jitter)
	if size < 1 {
		return 1
	}
	return size
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}
