package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/adityap2202/portfolios/internal/quotes"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UploadedStatement reports the outcome of parsing one uploaded file.
type UploadedStatement struct {
	Filename string `json:"filename"`
	Account  string `json:"account,omitempty"`
	Holdings int    `json:"holdings,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UploadResponse represents the response to a statement upload.
type UploadResponse struct {
	Statements []UploadedStatement `json:"statements"`
	Accounts   []Account           `json:"accounts"`
}

// HoldingView is a holding augmented with the latest resolved market price,
// when one is available. CurrentPrice falls back to the statement rate for
// unresolved securities, with PriceSource saying which one applied.
type HoldingView struct {
	Holding
	CurrentPrice decimal.Decimal `json:"current_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PriceSource  string          `json:"price_source"` // "live" or "statement"
}

// PortfolioSummary carries the aggregate metrics shown at the top of a
// portfolio tab.
type PortfolioSummary struct {
	TotalValue     decimal.Decimal `json:"total_value"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	Gain           decimal.Decimal `json:"gain"`
	GainPercent    decimal.Decimal `json:"gain_percent"`
	NumHoldings    int             `json:"num_holdings"`
	AvgPerHolding  decimal.Decimal `json:"avg_per_holding"`
	LivePriceCount int             `json:"live_price_count"`
}

// TopHolding is one slice of the top-holdings breakdown.
type TopHolding struct {
	CompanyName string          `json:"company_name"`
	Value       decimal.Decimal `json:"value"`
	Share       decimal.Decimal `json:"share"` // fraction of total value
}

// DistributionBucket is one bar of the statement-rate histogram.
type DistributionBucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// PortfolioView is the full per-account (or consolidated) dashboard payload.
type PortfolioView struct {
	Account      Account              `json:"account"`
	Holdings     []HoldingView        `json:"holdings"`
	Summary      PortfolioSummary     `json:"summary"`
	TopHoldings  []TopHolding         `json:"top_holdings"`
	Distribution []DistributionBucket `json:"distribution"`
}

// RefreshResponse reports a completed price-refresh run.
type RefreshResponse struct {
	Requested int                      `json:"requested"`
	Resolved  int                      `json:"resolved"`
	Results   map[string]quotes.Result `json:"results"`
}

// RefreshStatus is the advisory progress of the current or last refresh.
type RefreshStatus struct {
	Running          bool      `json:"running"`
	Done             int       `json:"done"`
	Total            int       `json:"total"`
	NextMarketUpdate time.Time `json:"next_market_update"`
}
