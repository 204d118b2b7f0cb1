package services

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adityap2202/portfolios/internal/models"
	"github.com/adityap2202/portfolios/internal/quotes"
	"github.com/adityap2202/portfolios/internal/statement"
)

var ErrAccountNotFound = errors.New("account not found")

// ConsolidatedID addresses the merged view of all loaded accounts.
const ConsolidatedID = "consolidated"

const (
	topHoldingsCount = 5
	distributionBins = 20
)

// PriceLookup returns the latest resolved quote for an ISIN, if any.
type PriceLookup func(isin string) (quotes.Result, bool)

// PortfolioService keeps the uploaded demat accounts in memory and builds
// the dashboard views over them. Accounts live only for the process
// lifetime; re-uploading a statement replaces the account with the same
// display name.
type PortfolioService struct {
	mu       sync.RWMutex
	accounts []*models.Account
	byID     map[string]*models.Account
}

// NewPortfolioService creates an empty PortfolioService.
func NewPortfolioService() *PortfolioService {
	return &PortfolioService{
		byID: make(map[string]*models.Account),
	}
}

// AddAccount registers a parsed statement as an account and returns it.
func (s *PortfolioService) AddAccount(info statement.AccountInfo, holdings []models.Holding) *models.Account {
	account := &models.Account{
		ID:          slugify(info.DisplayName),
		PersonName:  info.PersonName,
		DPID:        info.DPID,
		DisplayName: info.DisplayName,
		Holdings:    holdings,
		UploadedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byID[account.ID]; ok {
		// Same statement uploaded again: replace in place.
		*existing = *account
		return existing
	}
	s.accounts = append(s.accounts, account)
	s.byID[account.ID] = account
	return account
}

// ListAccounts returns all accounts in upload order.
func (s *PortfolioService) ListAccounts() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out
}

// GetAccount returns one account by ID. The consolidated pseudo-account is
// built on demand.
func (s *PortfolioService) GetAccount(id string) (models.Account, error) {
	if id == ConsolidatedID {
		return s.Consolidated(), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return *account, nil
}

// Consolidated merges every account's holdings into a single portfolio,
// grouped by company name: balances and values are summed, the rate is
// averaged, and scrip type and ISIN are taken from the first occurrence.
func (s *PortfolioService) Consolidated() models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type group struct {
		holding models.Holding
		count   int
	}
	var order []string
	groups := make(map[string]*group)

	for _, account := range s.accounts {
		for _, h := range account.Holdings {
			g, ok := groups[h.CompanyName]
			if !ok {
				order = append(order, h.CompanyName)
				groups[h.CompanyName] = &group{holding: h, count: 1}
				continue
			}
			g.holding.Balance += h.Balance
			g.holding.Value += h.Value
			g.holding.Rate += h.Rate
			g.count++
		}
	}

	holdings := make([]models.Holding, 0, len(order))
	for _, name := range order {
		g := groups[name]
		g.holding.Rate /= float64(g.count)
		holdings = append(holdings, g.holding)
	}

	return models.Account{
		ID:          ConsolidatedID,
		PersonName:  "Consolidated",
		DisplayName: "Consolidated Portfolio",
		Holdings:    holdings,
		UploadedAt:  time.Now(),
	}
}

// DistinctISINs returns the distinct ISINs across all accounts, in
// first-seen order.
func (s *PortfolioService) DistinctISINs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var isins []string
	for _, account := range s.accounts {
		for _, h := range account.Holdings {
			if h.ISIN == "" {
				continue
			}
			if _, ok := seen[h.ISIN]; ok {
				continue
			}
			seen[h.ISIN] = struct{}{}
			isins = append(isins, h.ISIN)
		}
	}
	return isins
}

// BuildView assembles the dashboard payload for one account. Holdings with
// a live quote are valued at the current price; unresolved ones fall back
// to the statement rate, which keeps the batch usable when the market
// lookup partially fails.
func (s *PortfolioService) BuildView(account models.Account, priceFor PriceLookup) models.PortfolioView {
	holdings := make([]models.HoldingView, 0, len(account.Holdings))

	totalValue := decimal.Zero
	currentValue := decimal.Zero
	liveCount := 0

	for _, h := range account.Holdings {
		view := models.HoldingView{Holding: h, PriceSource: "statement"}

		price := decimal.NewFromFloat(h.Rate)
		if priceFor != nil {
			if res, ok := priceFor(h.ISIN); ok && res.Resolved {
				price = decimal.NewFromFloat(res.Price)
				view.PriceSource = "live"
				liveCount++
			}
		}

		balance := decimal.NewFromFloat(h.Balance)
		view.CurrentPrice = price
		view.CurrentValue = balance.Mul(price)

		totalValue = totalValue.Add(decimal.NewFromFloat(h.Value))
		currentValue = currentValue.Add(view.CurrentValue)
		holdings = append(holdings, view)
	}

	summary := models.PortfolioSummary{
		TotalValue:     totalValue,
		CurrentValue:   currentValue,
		Gain:           currentValue.Sub(totalValue),
		NumHoldings:    len(holdings),
		LivePriceCount: liveCount,
	}
	if n := len(holdings); n > 0 {
		summary.AvgPerHolding = totalValue.DivRound(decimal.NewFromInt(int64(n)), 2)
	}
	if totalValue.IsPositive() {
		summary.GainPercent = summary.Gain.Mul(decimal.NewFromInt(100)).DivRound(totalValue, 2)
	}

	return models.PortfolioView{
		Account:      account,
		Holdings:     holdings,
		Summary:      summary,
		TopHoldings:  topHoldings(account.Holdings, totalValue),
		Distribution: rateDistribution(account.Holdings),
	}
}

// topHoldings returns the largest positions by statement value and each
// one's share of the total.
func topHoldings(holdings []models.Holding, total decimal.Decimal) []models.TopHolding {
	sorted := make([]models.Holding, len(holdings))
	copy(sorted, holdings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	n := topHoldingsCount
	if len(sorted) < n {
		n = len(sorted)
	}

	top := make([]models.TopHolding, 0, n)
	for _, h := range sorted[:n] {
		value := decimal.NewFromFloat(h.Value)
		share := decimal.Zero
		if total.IsPositive() {
			share = value.DivRound(total, 4)
		}
		top = append(top, models.TopHolding{
			CompanyName: h.CompanyName,
			Value:       value,
			Share:       share,
		})
	}
	return top
}

// rateDistribution buckets the statement rates into a fixed-bin histogram
// for the price-distribution chart.
func rateDistribution(holdings []models.Holding) []models.DistributionBucket {
	if len(holdings) == 0 {
		return nil
	}

	min, max := holdings[0].Rate, holdings[0].Rate
	for _, h := range holdings[1:] {
		if h.Rate < min {
			min = h.Rate
		}
		if h.Rate > max {
			max = h.Rate
		}
	}

	if min == max {
		return []models.DistributionBucket{{From: min, To: max, Count: len(holdings)}}
	}

	width := (max - min) / distributionBins
	buckets := make([]models.DistributionBucket, distributionBins)
	for i := range buckets {
		buckets[i].From = min + float64(i)*width
		buckets[i].To = min + float64(i+1)*width
	}
	for _, h := range holdings {
		idx := int((h.Rate - min) / width)
		if idx >= distributionBins {
			idx = distributionBins - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
