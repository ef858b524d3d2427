package risk

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// PositionProvider is anything that can report current positions.
type PositionProvider interface {
	GetPositions() map[string]decimal.Decimal
}

// PriceProvider is anything that can report a latest price per symbol.
type PriceProvider interface {
	GetPrice(symbol string) decimal.Decimal
}

// VaRResult is one historical Value-at-Risk figure.
type VaRResult struct {
	ValueAtRisk decimal.Decimal
	Confidence  float64
	Window      int
	Timestamp   time.Time
}

// HistoricalVaR computes non-parametric historical VaR from a position
// snapshot and a price panel. It holds no mutable state between calls.
type HistoricalVaR struct {
	positions  PositionProvider
	prices     PriceProvider // fallback when the panel has no last price
	confidence float64
	window     int
}

func NewHistoricalVaR(positions PositionProvider, prices PriceProvider, confidence float64, window int) *HistoricalVaR {
	if confidence == 0 {
		confidence = 0.99
	}
	if window == 0 {
		window = 252
	}
	return &HistoricalVaR{
		positions:  positions,
		prices:     prices,
		confidence: confidence,
		window:     window,
	}
}

// Compute takes the trailing window of panel, forms the daily portfolio P&L
// vector from simple returns weighted by position x last price, and reports
// the loss percentile at the configured confidence. Insufficient history
// yields a zero-valued result rather than an error.
func (h *HistoricalVaR) Compute(panel *Panel) VaRResult {
	result := VaRResult{
		ValueAtRisk: decimal.Zero,
		Confidence:  h.confidence,
		Window:      h.window,
		Timestamp:   time.Now().UTC(),
	}

	window := panel.Tail(h.window)
	if window.Rows() < 2 {
		return result
	}

	pos := h.positions.GetPositions()
	weights := make([]float64, len(window.Symbols))
	last := window.Row(window.Rows() - 1)
	for i, sym := range window.Symbols {
		qty, _ := pos[sym].Float64()
		lastPrice := last[i]
		if lastPrice == 0 && h.prices != nil {
			lastPrice, _ = h.prices.GetPrice(sym).Float64()
		}
		weights[i] = qty * lastPrice
	}

	// daily P&L: sum over symbols of return * position * last price
	pnl := make([]float64, 0, window.Rows()-1)
	for day := 1; day < window.Rows(); day++ {
		prev, cur := window.Row(day-1), window.Row(day)
		var dayPnL float64
		for i := range window.Symbols {
			if prev[i] == 0 {
				continue
			}
			ret := cur[i]/prev[i] - 1
			dayPnL += ret * weights[i]
		}
		pnl = append(pnl, -dayPnL)
	}

	varValue, err := stats.Percentile(pnl, h.confidence*100)
	if err != nil {
		return result
	}
	result.ValueAtRisk = decimal.NewFromFloat(varValue)
	return result
}
