// Package yahoo implements the two quote-resolution collaborators against
// Yahoo Finance: symbol search (ISIN -> candidate tickers) over the public
// search endpoint, and price fetch via the finance-go quote API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adityap2202/portfolios/internal/quotes"
)

const defaultSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"

// SearchClient resolves security identifiers to candidate ticker symbols
// using the Yahoo Finance search endpoint. An ISIN query returns the
// listings that reference it, typically the NSE and BSE tickers for Indian
// equities.
type SearchClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSearchClient creates a search client against the public endpoint.
func NewSearchClient() *SearchClient {
	return NewSearchClientWithBaseURL(defaultSearchURL)
}

// NewSearchClientWithBaseURL creates a search client with a custom base URL
// (for testing).
func NewSearchClientWithBaseURL(baseURL string) *SearchClient {
	return &SearchClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// searchResponse is the subset of the search payload we care about.
type searchResponse struct {
	Quotes []searchQuote `json:"quotes"`
}

type searchQuote struct {
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	QuoteType string `json:"quoteType"`
}

// Search implements quotes.Searcher. Failures are classified with the
// quotes sentinel errors so the resolver can decide whether to retry.
func (c *SearchClient) Search(ctx context.Context, identifier string) ([]quotes.Candidate, error) {
	params := url.Values{}
	params.Set("q", identifier)
	params.Set("quotesCount", "10")
	params.Set("newsCount", "0")

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "portfolios/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %v: %w", err, quotes.ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("search returned status %d: %w", resp.StatusCode, quotes.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("search returned status %d: %w", resp.StatusCode, quotes.ErrTransient)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", quotes.ErrTransient)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var candidates []quotes.Candidate
	for _, q := range sr.Quotes {
		if q.Symbol == "" || q.QuoteType != "EQUITY" {
			continue
		}
		candidates = append(candidates, quotes.Candidate{
			Symbol:   q.Symbol,
			Exchange: parseExchange(q.Exchange),
		})
	}
	return candidates, nil
}

// parseExchange maps Yahoo exchange codes to the venues we rank. Yahoo uses
// "NSI" for the National Stock Exchange and "BSE" for the Bombay Stock
// Exchange.
func parseExchange(code string) quotes.Exchange {
	switch strings.ToUpper(code) {
	case "NSI", "NSE":
		return quotes.ExchangeNSE
	case "BSE", "BOM":
		return quotes.ExchangeBSE
	default:
		return quotes.ExchangeUnknown
	}
}
