package rule

import (
	"fmt"

	"github.com/joripage/marketsim/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// ValidOrderRule rejects structurally invalid orders: non-positive quantity,
// unknown type or side, missing limit/stop prices.
type ValidOrderRule struct{}

func (ValidOrderRule) Check(order *model.Order) error {
	return order.Validate()
}

// MaxNotionalRule caps quantity x limit price. Market orders pass, their
// notional is unknown until fill time.
type MaxNotionalRule struct {
	Max decimal.Decimal
}

func (r *MaxNotionalRule) Check(order *model.Order) error {
	if !r.Max.IsPositive() || !order.LimitPrice.IsPositive() {
		return nil
	}
	if notional := order.Quantity.Mul(order.LimitPrice); notional.GreaterThan(r.Max) {
		return fmt.Errorf("notional %s exceeds limit %s", notional, r.Max)
	}
	return nil
}
