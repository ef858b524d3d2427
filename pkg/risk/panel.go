package risk

import (
	"time"

	"github.com/joripage/marketsim/pkg/marketdata"
)

// Panel is a dates x symbols price matrix, one row per date in ascending
// order. It is the offline input to the VaR calculation.
type Panel struct {
	Dates   []time.Time
	Symbols []string
	prices  [][]float64 // prices[row][symbolIndex]
}

func NewPanel(symbols []string) *Panel {
	return &Panel{Symbols: symbols}
}

// AddRow appends one date of prices; len(prices) must equal len(Symbols).
func (p *Panel) AddRow(date time.Time, prices []float64) {
	row := make([]float64, len(prices))
	copy(row, prices)
	p.Dates = append(p.Dates, date)
	p.prices = append(p.prices, row)
}

// Rows returns the number of dates in the panel.
func (p *Panel) Rows() int { return len(p.prices) }

// Row returns the price row at index i.
func (p *Panel) Row(i int) []float64 { return p.prices[i] }

// Tail returns a view over the trailing n rows.
func (p *Panel) Tail(n int) *Panel {
	if n >= len(p.prices) {
		return p
	}
	start := len(p.prices) - n
	return &Panel{
		Dates:   p.Dates[start:],
		Symbols: p.Symbols,
		prices:  p.prices[start:],
	}
}

// PanelFromBars builds a close-price panel from per-symbol bar series, e.g.
// generated history. Series are aligned by index; the shortest series bounds
// the row count.
func PanelFromBars(symbols []string, series map[string][]marketdata.Bar) *Panel {
	rows := -1
	for _, sym := range symbols {
		if n := len(series[sym]); rows < 0 || n < rows {
			rows = n
		}
	}
	if rows <= 0 {
		return NewPanel(symbols)
	}

	panel := NewPanel(symbols)
	for i := 0; i < rows; i++ {
		prices := make([]float64, len(symbols))
		var date time.Time
		for j, sym := range symbols {
			bar := series[sym][i]
			prices[j] = bar.Close
			date = bar.Timestamp
		}
		panel.AddRow(date, prices)
	}
	return panel
}
