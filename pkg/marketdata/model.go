package marketdata

import "time"

// Level is one price level of the synthetic depth book.
type Level struct {
	Price float64
	Size  int64
}

// Tick is a single quote/trade update for one symbol. Ticks are produced by
// the price process and must be treated as read-only by subscribers.
type Tick struct {
	Symbol    string
	Timestamp time.Time

	Bid    float64
	Ask    float64
	Last   float64
	Volume int64

	// five levels per side, best first
	Bids []Level
	Asks []Level
}

// Mid returns the quote midpoint, or 0 when either touch is missing.
func (t *Tick) Mid() float64 {
	if t.Bid <= 0 || t.Ask <= 0 {
		return 0
	}
	return (t.Bid + t.Ask) / 2
}

// Bar is one OHLCV period of generated history.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Frequency selects the period of generated history.
type Frequency string

const (
	FrequencyTick    Frequency = "TICK"
	FrequencySecond  Frequency = "SECOND"
	FrequencyMinute  Frequency = "MINUTE"
	FrequencyHour    Frequency = "HOUR"
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// step returns the time between consecutive bars.
func (f Frequency) step() time.Duration {
	switch f {
	case FrequencyTick, FrequencySecond:
		return time.Second
	case FrequencyMinute:
		return time.Minute
	case FrequencyHour:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// periodsPerDay returns how many periods fit in one 6.5h trading day.
// Daily and lower frequencies count as a single period.
func (f Frequency) periodsPerDay() float64 {
	switch f {
	case FrequencyTick, FrequencySecond:
		return secondsPerTradingDay
	case FrequencyMinute:
		return 6.5 * 60
	case FrequencyHour:
		return 6.5
	default:
		return 1
	}
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }
