package marketdata

import (
	"math"
	"time"
)

// History generates a synthetic OHLCV series for symbol over [start, end]
// at the given frequency. Volatility is scaled down by sqrt(periods per day)
// for sub-daily frequencies. A degenerate range yields an empty slice.
func (p *PriceProcess) History(symbol string, start, end time.Time, freq Frequency) []Bar {
	if !start.Before(end) && !start.Equal(end) {
		return nil
	}

	step := freq.step()
	var dates []time.Time
	for ts := start; !ts.After(end); ts = ts.Add(step) {
		dates = append(dates, ts)
	}
	if len(dates) == 0 {
		return nil
	}

	vol := p.cfg.Volatility / math.Sqrt(freq.periodsPerDay())

	price, ok := p.prices[symbol]
	if !ok {
		price = 100 + p.rng.Float64()*400
	}

	bars := make([]Bar, 0, len(dates))
	for _, ts := range dates {
		open := roundTo(price*uniform(p, 0.995, 1.005), 0.01)
		close := roundTo(price*uniform(p, 0.995, 1.005), 0.01)
		high := roundTo(math.Max(open, close)*uniform(p, 1.0, 1.01), 0.01)
		low := roundTo(math.Min(open, close)*uniform(p, 0.99, 1.0), 0.01)

		bars = append(bars, Bar{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    int64(1000 + p.rng.Intn(999001)),
		})

		ret := p.rng.NormFloat64() * vol
		price = roundTo(price*(1+ret), p.cfg.TickSize)
	}

	return bars
}

func uniform(p *PriceProcess, lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}
