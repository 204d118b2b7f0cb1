package yahoo

import (
	"context"
	"fmt"

	"github.com/adityap2202/portfolios/internal/quotes"
	"github.com/piquette/finance-go/quote"
)

// QuoteFetcher fetches the current market price for a symbol via the
// finance-go quote API.
type QuoteFetcher struct{}

// NewQuoteFetcher creates a QuoteFetcher.
func NewQuoteFetcher() *QuoteFetcher {
	return &QuoteFetcher{}
}

// Fetch implements quotes.Fetcher. The finance-go client does not accept a
// context, so the per-attempt deadline is its internal HTTP timeout.
func (f *QuoteFetcher) Fetch(_ context.Context, symbol string) (float64, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return 0, fmt.Errorf("quote fetch for %s failed: %v: %w", symbol, err, quotes.ErrTransient)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return 0, fmt.Errorf("no quote for %s: %w", symbol, quotes.ErrNotFound)
	}
	return q.RegularMarketPrice, nil
}
