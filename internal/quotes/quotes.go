// Package quotes resolves security identifiers (ISINs) to live market
// prices. Resolution is a two-step lookup: a symbol search maps the
// identifier to candidate ticker symbols, then a price fetch retrieves the
// quote for the preferred candidate. Lookups run through a bounded worker
// pool with per-identifier retry, and every input identifier gets exactly
// one result — failures are recorded as unresolved outcomes, never returned
// as errors.
package quotes

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Sentinel errors used by Searcher and Fetcher implementations to classify
// failures. Wrap them with fmt.Errorf("...: %w", ...) so errors.Is works.
var (
	// ErrNotFound means the upstream has no quote for the symbol. Not retried.
	ErrNotFound = errors.New("quote not found")
	// ErrRateLimited means the upstream rejected the call for rate reasons.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient covers network failures and upstream 5xx responses.
	ErrTransient = errors.New("transient error")
)

// Exchange identifies the listing venue of a candidate symbol.
type Exchange string

const (
	ExchangeNSE     Exchange = "NSE"
	ExchangeBSE     Exchange = "BSE"
	ExchangeUnknown Exchange = ""
)

// rank orders exchanges by preference; lower is better. NSE listings are
// preferred over BSE, and both over anything unrecognized.
func (e Exchange) rank() int {
	switch e {
	case ExchangeNSE:
		return 0
	case ExchangeBSE:
		return 1
	default:
		return 2
	}
}

// Candidate is one (symbol, exchange) pair proposed by the symbol search as
// a match for an identifier.
type Candidate struct {
	Symbol   string   `json:"symbol"`
	Exchange Exchange `json:"exchange"`
}

// BestCandidate picks the candidate on the most preferred exchange. Ties
// keep the search result order (stable sort), so the first match wins.
// Returns false when candidates is empty.
func BestCandidate(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Exchange.rank() < sorted[j].Exchange.rank()
	})
	return sorted[0], true
}

// Reason explains why an identifier could not be resolved.
type Reason string

const (
	// ReasonNoCandidates: the symbol search returned no matches.
	ReasonNoCandidates Reason = "no_candidates"
	// ReasonNotFound: a candidate existed but the upstream has no quote for it.
	ReasonNotFound Reason = "not_found"
	// ReasonRateLimited: retries exhausted against rate limiting.
	ReasonRateLimited Reason = "rate_limited"
	// ReasonTransientError: retries exhausted against transient failures.
	ReasonTransientError Reason = "transient_error"
)

// Result is the outcome of resolving one identifier. Either Resolved is
// true and Price holds a positive quote, or Reason explains the failure.
type Result struct {
	Identifier string    `json:"identifier"`
	Resolved   bool      `json:"resolved"`
	Symbol     string    `json:"symbol,omitempty"`
	Exchange   Exchange  `json:"exchange,omitempty"`
	Price      float64   `json:"price,omitempty"`
	Reason     Reason    `json:"reason,omitempty"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
}

// Searcher maps an identifier to zero or more candidate symbols.
// Implementations must be idempotent and safe for concurrent use.
type Searcher interface {
	Search(ctx context.Context, identifier string) ([]Candidate, error)
}

// Fetcher retrieves the current price for a ticker symbol.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (float64, error)
}

// classify maps a lookup error to the unresolved reason recorded in the
// result mapping.
func classify(err error) Reason {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	default:
		return ReasonTransientError
	}
}
