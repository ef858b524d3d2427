package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/marketsim/pkg/logging"
	"github.com/joripage/marketsim/pkg/marketdata"
	"github.com/joripage/marketsim/pkg/oms"
	"github.com/joripage/marketsim/pkg/oms/model"
)

var feedFields = []string{"BID", "ASK", "LAST"}

// Strategy is the capability set a backtest drives. Errors returned from
// callbacks are logged and do not stop the run.
type Strategy interface {
	OnStart(e *Engine) error
	OnTick(tick *marketdata.Tick, e *Engine) error
	OnStop(e *Engine) error
}

// Config tunes the backtest loop.
type Config struct {
	Symbols      []string
	PollInterval time.Duration // queue drain cadence, default 10ms
}

// Engine wires a Strategy to the simulated feed and matching engine and
// drains a FIFO tick queue on a fixed poll interval.
type Engine struct {
	symbols  []string
	poll     time.Duration
	strategy Strategy
	feed     *marketdata.SimFeed
	engine   *oms.Engine
	log      *logging.Logger

	mu      sync.Mutex
	queue   deque.Deque[*marketdata.Tick]
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewEngine(feed *marketdata.SimFeed, engine *oms.Engine, strategy Strategy, cfg *Config, log *logging.Logger) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	poll := cfg.PollInterval
	if poll == 0 {
		poll = 10 * time.Millisecond
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{
		symbols:  cfg.Symbols,
		poll:     poll,
		strategy: strategy,
		feed:     feed,
		engine:   engine,
		log:      log,
	}
}

// Start runs the loop until Stop or ctx cancellation, then invokes the
// strategy's OnStop and closes the feed. It returns immediately when the
// loop is already running. Cancellation during shutdown is expected and
// swallowed.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	e.mu.Unlock()

	defer close(e.done)

	e.feed.Connect()
	e.feed.Subscribe(fmt.Sprintf("backtest-%p", e), e.symbols, feedFields, e.enqueue)

	if err := e.strategy.OnStart(e); err != nil {
		e.log.Error("strategy OnStart failed", zap.Error(err))
	}

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-e.stopCh:
			break loop
		case <-ticker.C:
			e.drain()
		}
	}

	if err := e.strategy.OnStop(e); err != nil {
		e.log.Error("strategy OnStop failed", zap.Error(err))
	}
	e.feed.Close()

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	return nil
}

// Stop signals the loop to exit. It is safe to call more than once and from
// strategy callbacks; use Done to await termination from other goroutines.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
}

// Done reports loop termination: the returned channel is closed once the
// current run has invoked OnStop and closed the feed.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// enqueue is the feed callback; ticks are buffered and consumed by the loop.
func (e *Engine) enqueue(tick *marketdata.Tick) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.PushBack(tick)
}

// drain hands every queued tick to the strategy in arrival order.
func (e *Engine) drain() {
	for {
		e.mu.Lock()
		if e.queue.Len() == 0 {
			e.mu.Unlock()
			return
		}
		tick := e.queue.PopFront()
		e.mu.Unlock()

		if err := e.strategy.OnTick(tick, e); err != nil {
			e.log.Error("strategy OnTick failed",
				zap.String("symbol", tick.Symbol),
				zap.Error(err))
		}
	}
}

// OrderOption adjusts an order built by SendOrder.
type OrderOption func(*model.Order)

func WithLimitPrice(p decimal.Decimal) OrderOption {
	return func(o *model.Order) { o.LimitPrice = p }
}

func WithStopPrice(p decimal.Decimal) OrderOption {
	return func(o *model.Order) { o.StopPrice = p }
}

func WithTimeInForce(tif model.OrderTimeInForce) OrderOption {
	return func(o *model.Order) { o.TimeInForce = tif }
}

// SendOrder builds and submits an order through the matching engine.
func (e *Engine) SendOrder(ctx context.Context, symbol string, side model.OrderSide, qty decimal.Decimal, typ model.OrderType, opts ...OrderOption) (string, error) {
	order := &model.Order{
		Symbol:      symbol,
		Side:        side,
		Type:        typ,
		TimeInForce: model.OrderTimeInForceDAY,
		Quantity:    qty,
	}
	for _, opt := range opts {
		opt(order)
	}
	return e.engine.SubmitOrder(ctx, order)
}

// PortfolioValue is cash plus the mid-marked value of every position.
// Symbols without a known price are valued at zero; it never fails.
func (e *Engine) PortfolioValue() decimal.Decimal {
	value := e.engine.Cash()
	for sym, pos := range e.engine.Positions() {
		mid := e.feed.Mid(sym)
		if mid <= 0 {
			continue
		}
		value = value.Add(pos.Mul(decimal.NewFromFloat(mid)))
	}
	return value
}

// OMS exposes the matching engine for strategies.
func (e *Engine) OMS() *oms.Engine { return e.engine }

// Feed exposes the market-data hub for strategies.
func (e *Engine) Feed() *marketdata.SimFeed { return e.feed }
