package oms

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/marketsim/pkg/logging"
	"github.com/joripage/marketsim/pkg/marketdata"
	"github.com/joripage/marketsim/pkg/oms/execstore"
	"github.com/joripage/marketsim/pkg/oms/model"
	"github.com/joripage/marketsim/pkg/oms/rule"
)

var feedFields = []string{"BID", "ASK", "LAST"}

// Feed is the market-data capability the engine consumes.
type Feed interface {
	Subscribe(id string, symbols []string, fields []string, handler marketdata.TickHandler)
	Connect()
}

// Config holds the simulation execution parameters. Nil fields take the
// documented default; a non-nil zero is honored as an explicit zero.
type Config struct {
	Slippage   *decimal.Decimal // taker price degradation, default 0.0005
	Commission *decimal.Decimal // rate on notional, default 0.0005

	// LimitFillProbability models queue priority for limit orders: a
	// qualifying tick fills with this probability. It is an explicit
	// simplification, not a queue-position guarantee. Default 0.9.
	LimitFillProbability *float64

	StartingCash *decimal.Decimal // default 1,000,000
	Seed         int64            // fill-probability RNG seed, 0 = wall clock
}

// params is the resolved form of Config the engine runs on.
type params struct {
	Slippage             decimal.Decimal
	Commission           decimal.Decimal
	LimitFillProbability float64
	StartingCash         decimal.Decimal
	Seed                 int64
}

func (c *Config) withDefaults() params {
	out := params{
		Slippage:             decimal.NewFromFloat(0.0005),
		Commission:           decimal.NewFromFloat(0.0005),
		LimitFillProbability: 0.9,
		StartingCash:         decimal.NewFromInt(1_000_000),
		Seed:                 c.Seed,
	}
	if c.Slippage != nil {
		out.Slippage = *c.Slippage
	}
	if c.Commission != nil {
		out.Commission = *c.Commission
	}
	if c.LimitFillProbability != nil {
		out.LimitFillProbability = *c.LimitFillProbability
	}
	if c.StartingCash != nil {
		out.StartingCash = *c.StartingCash
	}
	if out.Seed == 0 {
		out.Seed = time.Now().UnixNano()
	}
	return out
}

// Engine accepts orders and fills them against incoming ticks. It is the
// sole owner of orders, positions and cash; every mutation happens inside
// one serialized pass behind the engine mutex.
type Engine struct {
	cfg    params
	feed   Feed
	feedID string // this engine's subscription identity on the feed
	store  execstore.ExecutionStore
	rules  []rule.Rule
	log    *logging.Logger
	rng    *rand.Rand

	mu         sync.Mutex
	orders     map[string]*model.Order
	orderSeq   []string // order ids in submission order
	seq        int64
	subscribed map[string]bool
	connected  bool
	positions  map[string]decimal.Decimal
	cash       decimal.Decimal
	listeners  []OrderListener
}

func NewEngine(feed Feed, cfg *Config, log *logging.Logger) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := cfg.withDefaults()

	e := &Engine{
		cfg:        c,
		feed:       feed,
		store:      execstore.NewInMemoryExecutionStore(),
		rules:      []rule.Rule{rule.ValidOrderRule{}},
		log:        log,
		rng:        rand.New(rand.NewSource(c.Seed)),
		orders:     make(map[string]*model.Order),
		subscribed: make(map[string]bool),
		positions:  make(map[string]decimal.Decimal),
		cash:       c.StartingCash,
	}
	e.feedID = fmt.Sprintf("oms-%p", e)
	return e
}

// SetLimitFillProbability overrides the queue-priority fill probability on a
// running engine.
func (e *Engine) SetLimitFillProbability(p float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.LimitFillProbability = p
}

// AddRule appends a submit-time validation rule.
func (e *Engine) AddRule(r rule.Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
}

// SubmitOrder validates and registers order, lazily subscribes its symbol on
// the feed, and returns the engine-assigned order id. A rule failure marks
// the order REJECTED and returns ErrOrderRejected.
func (e *Engine) SubmitOrder(ctx context.Context, order *model.Order) (string, error) {
	_ = ctx

	e.mu.Lock()
	now := time.Now().UTC()

	for _, r := range e.rules {
		if err := r.Check(order); err != nil {
			order.Status = model.OrderStatusRejected
			order.UpdatedAt = now
			pending := []notification{e.notifyOrderStatus(order)}
			listeners := e.snapshotListeners()
			e.mu.Unlock()

			e.dispatch(pending, listeners)
			e.log.Warn("order rejected",
				zap.String("symbol", order.Symbol),
				zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrOrderRejected, err)
		}
	}

	e.seq++
	order.Seq = e.seq
	if order.OrderID == "" {
		order.OrderID = fmt.Sprintf("SIM%08d", e.seq)
	}
	if order.ClientOrderID == "" {
		order.ClientOrderID = order.OrderID
	}
	order.Status = model.OrderStatusNew
	order.CreatedAt = now
	order.UpdatedAt = now

	e.orders[order.OrderID] = order
	e.orderSeq = append(e.orderSeq, order.OrderID)

	needSubscribe := !e.subscribed[order.Symbol]
	if needSubscribe {
		e.subscribed[order.Symbol] = true
	}
	needConnect := !e.connected
	e.connected = true

	pending := []notification{e.notifyOrderStatus(order)}
	listeners := e.snapshotListeners()
	orderID := order.OrderID
	symbol := order.Symbol
	e.mu.Unlock()

	if needSubscribe {
		e.feed.Subscribe(e.feedID, []string{symbol}, feedFields, e.OnTick)
	}
	if needConnect {
		e.feed.Connect()
	}

	e.dispatch(pending, listeners)
	return orderID, nil
}

// CancelOrder cancels an active order. It returns false for unknown orders
// and for orders already in a terminal state.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) bool {
	_ = ctx

	e.mu.Lock()
	order, ok := e.orders[orderID]
	if !ok || !order.IsActive() {
		e.mu.Unlock()
		return false
	}

	order.Status = model.OrderStatusCanceled
	order.UpdatedAt = time.Now().UTC()
	pending := []notification{e.notifyOrderStatus(order)}
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	e.dispatch(pending, listeners)
	return true
}

// Replace carries the fields a ReplaceOrder call may change. Nil pointers
// leave the field untouched.
type Replace struct {
	Quantity    *decimal.Decimal
	LimitPrice  *decimal.Decimal
	StopPrice   *decimal.Decimal
	TimeInForce *model.OrderTimeInForce
}

// ReplaceOrder applies changes to an active order and marks it
// PENDING_REPLACE. It returns nil for unknown or inactive orders, and for
// changes that would leave the order structurally invalid.
func (e *Engine) ReplaceOrder(ctx context.Context, orderID string, changes Replace) *model.Order {
	_ = ctx

	e.mu.Lock()
	order, ok := e.orders[orderID]
	if !ok || !order.IsActive() {
		e.mu.Unlock()
		return nil
	}

	trial := *order
	if changes.Quantity != nil {
		trial.Quantity = *changes.Quantity
	}
	if changes.LimitPrice != nil {
		trial.LimitPrice = *changes.LimitPrice
	}
	if changes.StopPrice != nil {
		trial.StopPrice = *changes.StopPrice
	}
	if changes.TimeInForce != nil {
		trial.TimeInForce = *changes.TimeInForce
	}
	if err := trial.Validate(); err != nil {
		e.mu.Unlock()
		e.log.Warn("order replace rejected",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil
	}

	*order = trial
	order.Status = model.OrderStatusPendingReplace
	order.UpdatedAt = time.Now().UTC()

	snap := *order
	pending := []notification{e.notifyOrderStatus(order)}
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	e.dispatch(pending, listeners)
	return &snap
}

// GetOrder returns a snapshot of the order, or ErrOrderNotFound.
func (e *Engine) GetOrder(orderID string) (*model.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	snap := *order
	return &snap, nil
}

// OpenOrders returns snapshots of active orders in submission order.
// An empty symbol matches every symbol.
func (e *Engine) OpenOrders(symbol string) []*model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*model.Order
	for _, id := range e.orderSeq {
		order := e.orders[id]
		if !order.IsActive() {
			continue
		}
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		snap := *order
		out = append(out, &snap)
	}
	return out
}

// Executions returns the execution history matching q.
func (e *Engine) Executions(q execstore.Query) []*model.Execution {
	return e.store.Find(q)
}

// Positions returns a copy of the current position map.
func (e *Engine) Positions() map[string]decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(e.positions))
	for sym, qty := range e.positions {
		out[sym] = qty
	}
	return out
}

// GetPositions satisfies the risk package's PositionProvider capability.
func (e *Engine) GetPositions() map[string]decimal.Decimal {
	return e.Positions()
}

// Cash returns the current cash balance.
func (e *Engine) Cash() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash
}

func (e *Engine) snapshotListeners() []OrderListener {
	out := make([]OrderListener, len(e.listeners))
	copy(out, e.listeners)
	return out
}
