package oms

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/marketsim/pkg/marketdata"
	"github.com/joripage/marketsim/pkg/oms/model"
)

var one = decimal.NewFromInt(1)

// OnTick is the feed callback: one matching pass over the ticked symbol's
// open orders. Orders are evaluated in submission order so that fills are
// reproducible across runs. Missing or non-positive quote fields leave an
// order pending for this tick.
func (e *Engine) OnTick(tick *marketdata.Tick) {
	e.mu.Lock()

	var pending []notification
	now := time.Now().UTC()

	for _, id := range e.orderSeq {
		order := e.orders[id]
		if order.Symbol != tick.Symbol || !order.IsActive() || !order.RemainingQuantity().IsPositive() {
			continue
		}

		price, ok := e.fillPrice(order, tick)
		if !ok {
			continue
		}
		pending = append(pending, e.fill(order, price, now)...)
	}

	listeners := e.snapshotListeners()
	e.mu.Unlock()

	e.dispatch(pending, listeners)
}

// fillPrice decides whether order fills on this tick and at what price.
func (e *Engine) fillPrice(order *model.Order, tick *marketdata.Tick) (decimal.Decimal, bool) {
	bid := quotePrice(tick.Bid)
	ask := quotePrice(tick.Ask)
	last := quotePrice(tick.Last)

	switch order.Type {
	case model.OrderTypeMarket:
		touch := ask
		slip := one.Add(e.cfg.Slippage)
		if order.Side == model.OrderSideSell {
			touch = bid
			slip = one.Sub(e.cfg.Slippage)
		}
		if !touch.IsPositive() {
			return decimal.Zero, false
		}
		return touch.Mul(slip), true

	case model.OrderTypeLimit:
		touch, crossed := limitCross(order, bid, ask)
		if !crossed || !e.limitFills() {
			return decimal.Zero, false
		}
		return touch, true

	case model.OrderTypeStop:
		if !stopTriggered(order, last) {
			return decimal.Zero, false
		}
		return last, true

	case model.OrderTypeStopLimit:
		if !stopTriggered(order, last) {
			return decimal.Zero, false
		}
		touch, crossed := limitCross(order, bid, ask)
		if !crossed {
			return decimal.Zero, false
		}
		return touch, true
	}

	return decimal.Zero, false
}

// limitCross reports whether the opposite touch crosses the limit price and
// returns that touch: ask <= limit for buys, bid >= limit for sells.
func limitCross(order *model.Order, bid, ask decimal.Decimal) (decimal.Decimal, bool) {
	if order.Side == model.OrderSideBuy {
		if ask.IsPositive() && ask.LessThanOrEqual(order.LimitPrice) {
			return ask, true
		}
		return decimal.Zero, false
	}
	if bid.IsPositive() && bid.GreaterThanOrEqual(order.LimitPrice) {
		return bid, true
	}
	return decimal.Zero, false
}

// stopTriggered reports whether the last trade moved through the stop
// threshold in the order's direction.
func stopTriggered(order *model.Order, last decimal.Decimal) bool {
	if !last.IsPositive() {
		return false
	}
	if order.Side == model.OrderSideBuy {
		return last.GreaterThanOrEqual(order.StopPrice)
	}
	return last.LessThanOrEqual(order.StopPrice)
}

// limitFills rolls the queue-priority die for a qualifying limit order.
func (e *Engine) limitFills() bool {
	return e.rng.Float64() < e.cfg.LimitFillProbability
}

// fill executes the full remaining quantity of order at price and applies
// the bookkeeping as one logical step: order state, position delta, cash
// delta, commission, ledger append. Caller holds the engine mutex.
func (e *Engine) fill(order *model.Order, price decimal.Decimal, now time.Time) []notification {
	qty := order.RemainingQuantity()
	notional := price.Mul(qty)
	commission := notional.Mul(e.cfg.Commission)

	order.ApplyFill(qty, price, now)

	posDelta := qty
	cashDelta := notional.Neg()
	if order.Side == model.OrderSideSell {
		posDelta = qty.Neg()
		cashDelta = notional
	}
	e.positions[order.Symbol] = e.positions[order.Symbol].Add(posDelta)
	e.cash = e.cash.Add(cashDelta).Sub(commission)

	exec := model.NewExecution(order, price, qty, commission, now)
	e.store.Append(exec)

	e.log.Info("execution",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("price", price.String()),
		zap.String("qty", qty.String()),
		zap.String("status", string(order.Status)))

	return []notification{
		e.notifyOrderStatus(order),
		e.notifyExecution(exec),
	}
}

// quotePrice converts a float quote field to decimal; non-positive fields
// stay zero, which every matcher treats as "no quote".
func quotePrice(v float64) decimal.Decimal {
	if v <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
