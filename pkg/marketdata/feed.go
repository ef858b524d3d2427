package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/joripage/marketsim/pkg/logging"
	"go.uber.org/zap"
)

// TickHandler receives every tick of a subscribed symbol.
type TickHandler func(*Tick)

// MarketHours is the weekday time-of-day window (UTC) during which the feed
// generates ticks. AlwaysOpen bypasses the window, which backtests rely on.
type MarketHours struct {
	Open       time.Duration // offset from midnight UTC, default 13h30m
	Close      time.Duration // default 20h
	AlwaysOpen bool
}

func (h MarketHours) contains(now time.Time) bool {
	if h.AlwaysOpen {
		return true
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := now.Sub(midnight)
	return offset >= h.Open && offset <= h.Close
}

type subscriber struct {
	id string // caller-chosen identity, keeps Subscribe idempotent
	fn TickHandler
}

// SimFeed is the market-data hub: it drives a PriceProcess on a fixed cadence
// and fans each tick out to the symbol's subscribers in registration order.
// Dispatch for one tick completes before the next tick is generated.
type SimFeed struct {
	proc  *PriceProcess
	hours MarketHours
	log   *logging.Logger

	mu          sync.RWMutex
	subscribers map[string][]subscriber
	symbols     []string // subscription order
	latest      map[string]*Tick

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSimFeed(proc *PriceProcess, hours MarketHours, log *logging.Logger) *SimFeed {
	if hours.Open == 0 && hours.Close == 0 {
		hours.Open = 13*time.Hour + 30*time.Minute // 9:30 ET
		hours.Close = 20 * time.Hour               // 16:00 ET
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SimFeed{
		proc:        proc,
		hours:       hours,
		log:         log,
		subscribers: make(map[string][]subscriber),
		latest:      make(map[string]*Tick),
	}
}

// Subscribe registers handler under id for every symbol in symbols. Go func
// values carry no usable identity, so callers name their subscription; two
// subscribers with distinct ids are always both registered, even when they
// are the same method on different receivers. Re-subscribing an id for a
// symbol is a no-op. fields is accepted for interface parity with real feeds
// and ignored: the full tick is always delivered.
func (f *SimFeed) Subscribe(id string, symbols []string, fields []string, handler TickHandler) {
	_ = fields
	if handler == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sym := range symbols {
		if _, ok := f.subscribers[sym]; !ok {
			f.symbols = append(f.symbols, sym)
		}
		if f.hasSubscriber(sym, id) {
			continue
		}
		f.subscribers[sym] = append(f.subscribers[sym], subscriber{id: id, fn: handler})
	}
}

func (f *SimFeed) hasSubscriber(symbol, id string) bool {
	for _, s := range f.subscribers[symbol] {
		if s.id == id {
			return true
		}
	}
	return false
}

// Connect starts the generation loop. Calling it while running is a no-op.
func (f *SimFeed) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return
	}
	f.running = true

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(ctx)
}

// Close stops the generation loop and waits for it to finish. A second Close
// is a no-op; cancellation during shutdown is expected, not an error.
func (f *SimFeed) Close() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	cancel, done := f.cancel, f.done
	f.mu.Unlock()

	cancel()
	<-done
}

func (f *SimFeed) run(ctx context.Context) {
	defer close(f.done)

	ticker := time.NewTicker(f.proc.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !f.hours.contains(now.UTC()) {
				continue
			}
			f.generateOnce()
		}
	}
}

// generateOnce produces one tick per subscribed symbol and dispatches it.
func (f *SimFeed) generateOnce() {
	f.mu.RLock()
	symbols := make([]string, len(f.symbols))
	copy(symbols, f.symbols)
	f.mu.RUnlock()

	for _, sym := range symbols {
		tick := f.proc.Next(sym)

		f.mu.Lock()
		f.latest[sym] = tick
		subs := make([]subscriber, len(f.subscribers[sym]))
		copy(subs, f.subscribers[sym])
		f.mu.Unlock()

		for _, s := range subs {
			f.deliver(s.fn, tick)
		}
	}
}

// deliver isolates a panicking handler so the loop and the remaining
// subscribers keep going.
func (f *SimFeed) deliver(fn TickHandler, tick *Tick) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("subscriber callback panicked",
				zap.String("symbol", tick.Symbol),
				zap.Any("panic", r))
		}
	}()
	fn(tick)
}

// LatestTick returns the most recent tick for symbol, or nil.
func (f *SimFeed) LatestTick(symbol string) *Tick {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest[symbol]
}

// Mid returns the latest quote midpoint for symbol, 0 when unknown.
func (f *SimFeed) Mid(symbol string) float64 {
	if t := f.LatestTick(symbol); t != nil {
		return t.Mid()
	}
	return 0
}

// Process exposes the underlying price process for history generation.
func (f *SimFeed) Process() *PriceProcess {
	return f.proc
}
