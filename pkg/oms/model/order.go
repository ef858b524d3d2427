package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPendingNew      OrderStatus = "PENDING_NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusPendingCancel   OrderStatus = "PENDING_CANCEL"
	OrderStatusPendingReplace  OrderStatus = "PENDING_REPLACE"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

type OrderTimeInForce string

const (
	OrderTimeInForceDAY OrderTimeInForce = "DAY"
	OrderTimeInForceGTC OrderTimeInForce = "GTC"
	OrderTimeInForceIOC OrderTimeInForce = "IOC"
	OrderTimeInForceFOK OrderTimeInForce = "FOK"
)

// Order is the engine-owned order record. It is created at submit time and
// mutated only by the matching engine or by explicit cancel/replace; it is
// never deleted for the lifetime of the session.
//
// Invariant: 0 <= FilledQuantity <= Quantity, and the status never moves
// back out of a terminal state.
type Order struct {
	Symbol      string
	Side        OrderSide
	Type        OrderType
	TimeInForce OrderTimeInForce
	Quantity    decimal.Decimal
	LimitPrice  decimal.Decimal // zero = unset
	StopPrice   decimal.Decimal // zero = unset

	ClientOrderID string
	OrderID       string // engine-assigned
	Status        OrderStatus

	FilledQuantity decimal.Decimal
	AvgFillPrice   decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time

	// Seq is the submission sequence assigned by the engine; matching walks
	// open orders in Seq order so fills are reproducible.
	Seq int64
}

// NewOrder builds a validated order in status NEW.
func NewOrder(symbol string, side OrderSide, qty decimal.Decimal, typ OrderType) (*Order, error) {
	o := &Order{
		Symbol:      symbol,
		Side:        side,
		Type:        typ,
		TimeInForce: OrderTimeInForceDAY,
		Quantity:    qty,
		Status:      OrderStatusNew,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the structural order invariants.
func (o *Order) Validate() error {
	if o.Symbol == "" {
		return ErrMissingSymbol
	}
	if o.Side != OrderSideBuy && o.Side != OrderSideSell {
		return ErrUnknownSide
	}
	if !o.Quantity.IsPositive() {
		return ErrNonPositiveQuantity
	}
	switch o.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if !o.LimitPrice.IsPositive() {
			return ErrMissingLimitPrice
		}
	case OrderTypeStop:
		if !o.StopPrice.IsPositive() {
			return ErrMissingStopPrice
		}
	case OrderTypeStopLimit:
		if !o.LimitPrice.IsPositive() {
			return ErrMissingLimitPrice
		}
		if !o.StopPrice.IsPositive() {
			return ErrMissingStopPrice
		}
	default:
		return ErrUnknownOrderType
	}
	return nil
}

// RemainingQuantity is the unfilled part of the order.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsActive reports whether the order is still eligible for matching,
// cancellation, or replacement.
func (o *Order) IsActive() bool {
	switch o.Status {
	case OrderStatusNew, OrderStatusPendingNew, OrderStatusPartiallyFilled,
		OrderStatusPendingCancel, OrderStatusPendingReplace:
		return true
	}
	return false
}

// IsTerminal reports whether the order reached a final state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// ApplyFill records one fill of qty at price, keeping the quantity-weighted
// average fill price. The caller guarantees qty <= RemainingQuantity.
func (o *Order) ApplyFill(qty, price decimal.Decimal, now time.Time) {
	prevFilled := o.FilledQuantity
	o.FilledQuantity = o.FilledQuantity.Add(qty)

	if prevFilled.IsZero() {
		o.AvgFillPrice = price
	} else {
		notional := o.AvgFillPrice.Mul(prevFilled).Add(price.Mul(qty))
		o.AvgFillPrice = notional.Div(o.FilledQuantity)
	}

	if o.RemainingQuantity().IsZero() {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
	o.UpdatedAt = now
}
