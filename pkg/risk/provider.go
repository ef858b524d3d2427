package risk

import "github.com/shopspring/decimal"

// MidQuoter is the slice of the market-data hub the price adapter needs.
type MidQuoter interface {
	Mid(symbol string) float64
}

// FeedPrices adapts a quote source to the PriceProvider capability.
type FeedPrices struct {
	Quotes MidQuoter
}

func (f FeedPrices) GetPrice(symbol string) decimal.Decimal {
	mid := f.Quotes.Mid(symbol)
	if mid <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(mid)
}
