package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Execution is one fill of an order. Executions are immutable once created.
type Execution struct {
	ExecutionID   string
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	Commission    decimal.Decimal
	Timestamp     time.Time
}

// NewExecution builds an execution record for one fill of order.
func NewExecution(order *Order, price, qty, commission decimal.Decimal, ts time.Time) *Execution {
	return &Execution{
		ExecutionID:   NewExecutionID(),
		OrderID:       order.OrderID,
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Price:         price,
		Quantity:      qty,
		Commission:    commission,
		Timestamp:     ts,
	}
}

func NewExecutionID() string {
	return fmt.Sprintf("exec_%s", uuid.New().String())
}
