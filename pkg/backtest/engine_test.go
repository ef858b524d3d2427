package backtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/marketsim/pkg/marketdata"
	"github.com/joripage/marketsim/pkg/oms"
	"github.com/joripage/marketsim/pkg/oms/model"
)

// countingStrategy stops the loop after maxTicks ticks.
type countingStrategy struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	ticks    int
	maxTicks int
}

func (s *countingStrategy) OnStart(e *Engine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *countingStrategy) OnTick(tick *marketdata.Tick, e *Engine) error {
	s.mu.Lock()
	s.ticks++
	done := s.ticks >= s.maxTicks
	s.mu.Unlock()
	if done {
		e.Stop()
	}
	return nil
}

func (s *countingStrategy) OnStop(e *Engine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func newTestStack(t *testing.T, strategy Strategy) *Engine {
	t.Helper()
	proc := marketdata.NewPriceProcess(&marketdata.PriceProcessConfig{
		Symbols:        []string{"AAPL"},
		InitialPrices:  map[string]float64{"AAPL": 150},
		UpdateInterval: time.Millisecond,
		Seed:           77,
	})
	feed := marketdata.NewSimFeed(proc, marketdata.MarketHours{AlwaysOpen: true}, nil)
	engine := oms.NewEngine(feed, &oms.Config{Seed: 77}, nil)
	return NewEngine(feed, engine, strategy, &Config{
		Symbols:      []string{"AAPL"},
		PollInterval: time.Millisecond,
	}, nil)
}

func TestRunLifecycle(t *testing.T) {
	strategy := &countingStrategy{maxTicks: 5}
	bt := newTestStack(t, strategy)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, bt.Start(ctx))

	strategy.mu.Lock()
	defer strategy.mu.Unlock()
	assert.True(t, strategy.started)
	assert.True(t, strategy.stopped)
	assert.GreaterOrEqual(t, strategy.ticks, 5)
}

func TestStartIdempotentWhileRunning(t *testing.T) {
	started := make(chan struct{})
	strategy := &signalStrategy{started: started}
	bt := newTestStack(t, strategy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bt.Start(ctx)
	<-started

	// second Start returns immediately instead of spawning a second loop
	doneCh := make(chan error, 1)
	go func() { doneCh <- bt.Start(ctx) }()
	select {
	case err := <-doneCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second Start should return immediately")
	}

	bt.Stop()
	select {
	case <-bt.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not terminate after Stop")
	}
}

type signalStrategy struct {
	started   chan struct{}
	startOnce sync.Once
}

func (s *signalStrategy) OnStart(e *Engine) error {
	s.startOnce.Do(func() { close(s.started) })
	return nil
}
func (s *signalStrategy) OnTick(tick *marketdata.Tick, e *Engine) error { return nil }
func (s *signalStrategy) OnStop(e *Engine) error                       { return nil }

func TestContextCancellationStopsRun(t *testing.T) {
	strategy := &countingStrategy{maxTicks: 1 << 30}
	bt := newTestStack(t, strategy)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, bt.Start(ctx))
	strategy.mu.Lock()
	defer strategy.mu.Unlock()
	assert.True(t, strategy.stopped, "OnStop must run on external cancellation")
}

// tradingStrategy buys once then stops.
type tradingStrategy struct {
	orderID string
	err     error
	once    sync.Once
}

func (s *tradingStrategy) OnStart(e *Engine) error { return nil }

func (s *tradingStrategy) OnTick(tick *marketdata.Tick, e *Engine) error {
	s.once.Do(func() {
		s.orderID, s.err = e.SendOrder(context.Background(), "AAPL",
			model.OrderSideBuy, decimal.NewFromInt(100), model.OrderTypeMarket)
		go e.Stop()
	})
	return s.err
}

func (s *tradingStrategy) OnStop(e *Engine) error { return nil }

func TestStrategyCanTradeAndValuePortfolio(t *testing.T) {
	strategy := &tradingStrategy{}
	bt := newTestStack(t, strategy)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, bt.Start(ctx))

	require.NoError(t, strategy.err)
	require.NotEmpty(t, strategy.orderID)

	// the order may or may not have seen a tick before shutdown; value must
	// match cash + position x mid either way
	engine := bt.OMS()
	want := engine.Cash()
	for sym, pos := range engine.Positions() {
		if mid := bt.Feed().Mid(sym); mid > 0 {
			want = want.Add(pos.Mul(decimal.NewFromFloat(mid)))
		}
	}
	assert.True(t, bt.PortfolioValue().Equal(want))
}

func TestPortfolioValueWithoutPositions(t *testing.T) {
	strategy := &countingStrategy{maxTicks: 1}
	bt := newTestStack(t, strategy)

	assert.True(t, bt.PortfolioValue().Equal(decimal.NewFromInt(1_000_000)))
}

// errorStrategy fails every callback; the loop must keep running until Stop.
type errorStrategy struct {
	countingStrategy
}

func (s *errorStrategy) OnTick(tick *marketdata.Tick, e *Engine) error {
	s.mu.Lock()
	s.ticks++
	done := s.ticks >= s.maxTicks
	s.mu.Unlock()
	if done {
		e.Stop()
	}
	return assert.AnError
}

func TestStrategyErrorsDoNotStopLoop(t *testing.T) {
	strategy := &errorStrategy{countingStrategy{maxTicks: 3}}
	bt := newTestStack(t, strategy)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bt.Start(ctx))

	strategy.mu.Lock()
	defer strategy.mu.Unlock()
	assert.GreaterOrEqual(t, strategy.ticks, 3)
	assert.True(t, strategy.stopped)
}
