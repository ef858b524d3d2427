package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr error
	}{
		{
			name:   "valid market order",
			mutate: func(o *Order) {},
		},
		{
			name:    "zero quantity",
			mutate:  func(o *Order) { o.Quantity = decimal.Zero },
			wantErr: ErrNonPositiveQuantity,
		},
		{
			name:    "negative quantity",
			mutate:  func(o *Order) { o.Quantity = d("-5") },
			wantErr: ErrNonPositiveQuantity,
		},
		{
			name:    "unknown type",
			mutate:  func(o *Order) { o.Type = OrderType("TWAP") },
			wantErr: ErrUnknownOrderType,
		},
		{
			name:    "unknown side",
			mutate:  func(o *Order) { o.Side = OrderSide("SHORT") },
			wantErr: ErrUnknownSide,
		},
		{
			name:    "missing symbol",
			mutate:  func(o *Order) { o.Symbol = "" },
			wantErr: ErrMissingSymbol,
		},
		{
			name:    "limit order without limit price",
			mutate:  func(o *Order) { o.Type = OrderTypeLimit },
			wantErr: ErrMissingLimitPrice,
		},
		{
			name:    "stop order without stop price",
			mutate:  func(o *Order) { o.Type = OrderTypeStop },
			wantErr: ErrMissingStopPrice,
		},
		{
			name: "stop limit needs both prices",
			mutate: func(o *Order) {
				o.Type = OrderTypeStopLimit
				o.LimitPrice = d("100")
			},
			wantErr: ErrMissingStopPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{
				Symbol:   "AAPL",
				Side:     OrderSideBuy,
				Type:     OrderTypeMarket,
				Quantity: d("100"),
			}
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewOrderStartsNew(t *testing.T) {
	o, err := NewOrder("AAPL", OrderSideBuy, d("100"), OrderTypeMarket)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusNew, o.Status)
	assert.True(t, o.IsActive())
	assert.False(t, o.IsTerminal())
	assert.True(t, o.RemainingQuantity().Equal(d("100")))
}

func TestApplyFillFull(t *testing.T) {
	o, err := NewOrder("AAPL", OrderSideBuy, d("100"), OrderTypeMarket)
	require.NoError(t, err)

	o.ApplyFill(d("100"), d("150.50"), time.Now())

	assert.Equal(t, OrderStatusFilled, o.Status)
	assert.True(t, o.FilledQuantity.Equal(d("100")))
	assert.True(t, o.RemainingQuantity().IsZero())
	assert.True(t, o.AvgFillPrice.Equal(d("150.50")))
	assert.True(t, o.IsTerminal())
}

func TestApplyFillWeightedAverage(t *testing.T) {
	o, err := NewOrder("AAPL", OrderSideBuy, d("100"), OrderTypeMarket)
	require.NoError(t, err)

	o.ApplyFill(d("40"), d("100"), time.Now())
	assert.Equal(t, OrderStatusPartiallyFilled, o.Status)
	assert.True(t, o.IsActive())

	o.ApplyFill(d("60"), d("110"), time.Now())
	assert.Equal(t, OrderStatusFilled, o.Status)

	// (40*100 + 60*110) / 100 = 106
	assert.True(t, o.AvgFillPrice.Equal(d("106")), "got %s", o.AvgFillPrice)
}

func TestFillInvariant(t *testing.T) {
	o, err := NewOrder("AAPL", OrderSideSell, d("30"), OrderTypeMarket)
	require.NoError(t, err)

	for _, qty := range []string{"10", "10", "10"} {
		o.ApplyFill(d(qty), d("99"), time.Now())
		assert.True(t, o.FilledQuantity.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, o.FilledQuantity.LessThanOrEqual(o.Quantity))
		assert.True(t, o.RemainingQuantity().Equal(o.Quantity.Sub(o.FilledQuantity)))
	}
	assert.Equal(t, OrderStatusFilled, o.Status)
}
