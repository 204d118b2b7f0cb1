package quotes_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityap2202/portfolios/internal/quotes"
)

// fakeSearcher counts calls per identifier and serves canned candidates.
type fakeSearcher struct {
	mu         sync.Mutex
	calls      map[string]int
	candidates map[string][]quotes.Candidate
	err        error
	latency    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		calls:      make(map[string]int),
		candidates: make(map[string][]quotes.Candidate),
	}
}

func (s *fakeSearcher) Search(_ context.Context, identifier string) ([]quotes.Candidate, error) {
	cur := s.inFlight.Add(1)
	for {
		max := s.maxInFlight.Load()
		if cur <= max || s.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	defer s.inFlight.Add(-1)

	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	s.mu.Lock()
	s.calls[identifier]++
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return s.candidates[identifier], nil
}

func (s *fakeSearcher) callCount(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[identifier]
}

// fakeFetcher serves canned prices or a scripted error sequence per symbol.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	prices map[string]float64
	errs   map[string][]error // consumed before prices; nil entry means success
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:  make(map[string]int),
		prices: make(map[string]float64),
		errs:   make(map[string][]error),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[symbol]++
	if seq := f.errs[symbol]; len(seq) > 0 {
		err := seq[0]
		f.errs[symbol] = seq[1:]
		if err != nil {
			return 0, err
		}
	}
	return f.prices[symbol], nil
}

func (f *fakeFetcher) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func defaultConfig() quotes.Config {
	return quotes.Config{
		MaxParallel: 2,
		MaxRetries:  0,
		BaseDelay:   time.Millisecond,
	}
}

func TestResolveEmptyInput(t *testing.T) {
	r := quotes.NewResolver(newFakeSearcher(), newFakeFetcher())

	results, err := r.Resolve(context.Background(), nil, defaultConfig())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResolveInvalidConfig(t *testing.T) {
	searcher := newFakeSearcher()
	r := quotes.NewResolver(searcher, newFakeFetcher())

	_, err := r.Resolve(context.Background(), []string{"INE002A01018"}, quotes.Config{MaxParallel: 0})
	require.Error(t, err)
	assert.Equal(t, 0, searcher.callCount("INE002A01018"), "config errors must fail before any lookup")

	_, err = r.Resolve(context.Background(), []string{"INE002A01018"}, quotes.Config{MaxParallel: 1, MaxRetries: -1})
	require.Error(t, err)
}

func TestResolveCompleteMapping(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()
	searcher.candidates["INE002A01018"] = []quotes.Candidate{{Symbol: "RELIANCE.NS", Exchange: quotes.ExchangeNSE}}
	fetcher.prices["RELIANCE.NS"] = 2847.55

	r := quotes.NewResolver(searcher, fetcher)
	ids := []string{"INE002A01018", "INE009A01021", "INE467B01029"}
	results, err := r.Resolve(context.Background(), ids, defaultConfig())
	require.NoError(t, err)

	require.Len(t, results, len(ids), "result key set must equal the input identifier set")
	for _, id := range ids {
		require.Contains(t, results, id)
	}

	res := results["INE002A01018"]
	assert.True(t, res.Resolved)
	assert.Equal(t, "RELIANCE.NS", res.Symbol)
	assert.Equal(t, 2847.55, res.Price)
	assert.False(t, res.FetchedAt.IsZero())

	// The other two found no candidates but are still present.
	assert.Equal(t, quotes.ReasonNoCandidates, results["INE009A01021"].Reason)
	assert.Equal(t, quotes.ReasonNoCandidates, results["INE467B01029"].Reason)
}

func TestResolveDeduplicatesIdentifiers(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()
	searcher.candidates["INE002A01018"] = []quotes.Candidate{{Symbol: "RELIANCE.NS", Exchange: quotes.ExchangeNSE}}
	fetcher.prices["RELIANCE.NS"] = 2847.55

	r := quotes.NewResolver(searcher, fetcher)
	ids := []string{"INE002A01018", "INE002A01018", "INE002A01018", "INE040A01034", "INE040A01034"}
	results, err := r.Resolve(context.Background(), ids, defaultConfig())
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Equal(t, 1, searcher.callCount("INE002A01018"), "search must run at most once per distinct identifier")
	assert.Equal(t, 1, searcher.callCount("INE040A01034"))
}

func TestResolveRetryBoundOnRateLimit(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()
	searcher.candidates["INE002A01018"] = []quotes.Candidate{{Symbol: "RELIANCE.NS", Exchange: quotes.ExchangeNSE}}
	fetcher.errs["RELIANCE.NS"] = []error{
		fmt.Errorf("429: %w", quotes.ErrRateLimited),
		fmt.Errorf("429: %w", quotes.ErrRateLimited),
		fmt.Errorf("429: %w", quotes.ErrRateLimited),
		fmt.Errorf("429: %w", quotes.ErrRateLimited),
	}

	cfg := defaultConfig()
	cfg.MaxRetries = 2

	r := quotes.NewResolver(searcher, fetcher)
	results, err := r.Resolve(context.Background(), []string{"INE002A01018"}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.callCount("RELIANCE.NS"), "one attempt plus exactly MaxRetries retries")
	res := results["INE002A01018"]
	assert.False(t, res.Resolved)
	assert.Equal(t, quotes.ReasonRateLimited, res.Reason)
}

func TestResolveTransientThenSuccess(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()
	searcher.candidates["INE009A01021"] = []quotes.Candidate{{Symbol: "INFY.NS", Exchange: quotes.ExchangeNSE}}
	fetcher.errs["INFY.NS"] = []error{fmt.Errorf("boom: %w", quotes.ErrTransient), nil}
	fetcher.prices["INFY.NS"] = 1511.20

	cfg := defaultConfig()
	cfg.MaxRetries = 3

	r := quotes.NewResolver(searcher, fetcher)
	results, err := r.Resolve(context.Background(), []string{"INE009A01021"}, cfg)
	require.NoError(t, err)

	res := results["INE009A01021"]
	assert.True(t, res.Resolved)
	assert.Equal(t, 1511.20, res.Price)
	assert.Equal(t, 2, fetcher.callCount("INFY.NS"))
}

func TestResolveNoCandidatesShortCircuit(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()

	cfg := defaultConfig()
	cfg.MaxRetries = 5

	r := quotes.NewResolver(searcher, fetcher)
	results, err := r.Resolve(context.Background(), []string{"INE999Z09999"}, cfg)
	require.NoError(t, err)

	res := results["INE999Z09999"]
	assert.False(t, res.Resolved)
	assert.Equal(t, quotes.ReasonNoCandidates, res.Reason)
	assert.Equal(t, 1, searcher.callCount("INE999Z09999"), "empty search results are not retried")
	assert.Empty(t, fetcher.calls, "no price fetch without a candidate")
}

func TestResolveNotFoundNotRetried(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()
	searcher.candidates["INE002A01018"] = []quotes.Candidate{{Symbol: "RELIANCE.NS", Exchange: quotes.ExchangeNSE}}
	fetcher.errs["RELIANCE.NS"] = []error{fmt.Errorf("gone: %w", quotes.ErrNotFound)}

	cfg := defaultConfig()
	cfg.MaxRetries = 5

	r := quotes.NewResolver(searcher, fetcher)
	results, err := r.Resolve(context.Background(), []string{"INE002A01018"}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.callCount("RELIANCE.NS"))
	assert.Equal(t, quotes.ReasonNotFound, results["INE002A01018"].Reason)
}

func TestResolveExchangePreference(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()
	// Secondary listing first: the NSE candidate must still win.
	searcher.candidates["INE002A01018"] = []quotes.Candidate{
		{Symbol: "RELIANCE.BO", Exchange: quotes.ExchangeBSE},
		{Symbol: "RELIANCE.NS", Exchange: quotes.ExchangeNSE},
	}
	fetcher.prices["RELIANCE.NS"] = 2847.55
	fetcher.prices["RELIANCE.BO"] = 2846.00

	r := quotes.NewResolver(searcher, fetcher)
	results, err := r.Resolve(context.Background(), []string{"INE002A01018"}, defaultConfig())
	require.NoError(t, err)

	res := results["INE002A01018"]
	assert.Equal(t, "RELIANCE.NS", res.Symbol)
	assert.Equal(t, quotes.ExchangeNSE, res.Exchange)
	assert.Equal(t, 0, fetcher.callCount("RELIANCE.BO"))
}

func TestResolveConcurrencyCap(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.latency = 50 * time.Millisecond
	fetcher := newFakeFetcher()

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("INE%03dA01010", i)
	}

	cfg := defaultConfig()
	cfg.MaxParallel = 3

	r := quotes.NewResolver(searcher, fetcher)
	start := time.Now()
	results, err := r.Resolve(context.Background(), ids, cfg)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Len(t, results, 10)
	assert.LessOrEqual(t, searcher.maxInFlight.Load(), int32(3), "no more than MaxParallel lookups in flight")
	// 10 lookups of 50ms through 3 workers need at least ceil(10/3)=4 rounds.
	assert.GreaterOrEqual(t, elapsed, 4*50*time.Millisecond)
}

func TestResolveProgressReporting(t *testing.T) {
	searcher := newFakeSearcher()
	fetcher := newFakeFetcher()

	ids := []string{"INE001", "INE002", "INE003", "INE004", "INE002"}

	var mu sync.Mutex
	var reports [][2]int
	cfg := defaultConfig()
	cfg.OnProgress = func(done, total int) {
		mu.Lock()
		reports = append(reports, [2]int{done, total})
		mu.Unlock()
	}

	r := quotes.NewResolver(searcher, fetcher)
	_, err := r.Resolve(context.Background(), ids, cfg)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reports, 4, "one report per distinct identifier")
	last := 0
	for _, rep := range reports {
		assert.Equal(t, 4, rep[1])
		assert.Greater(t, rep[0], last, "completed count must be monotonically increasing")
		last = rep[0]
	}
	assert.Equal(t, 4, last)
}

func TestBestCandidateTieKeepsFirst(t *testing.T) {
	best, ok := quotes.BestCandidate([]quotes.Candidate{
		{Symbol: "TCS.NS", Exchange: quotes.ExchangeNSE},
		{Symbol: "TCSALT.NS", Exchange: quotes.ExchangeNSE},
	})
	require.True(t, ok)
	assert.Equal(t, "TCS.NS", best.Symbol)
}

func TestBestCandidateUnknownLast(t *testing.T) {
	best, ok := quotes.BestCandidate([]quotes.Candidate{
		{Symbol: "TCS.XX", Exchange: quotes.ExchangeUnknown},
		{Symbol: "TCS.BO", Exchange: quotes.ExchangeBSE},
	})
	require.True(t, ok)
	assert.Equal(t, "TCS.BO", best.Symbol)

	_, ok = quotes.BestCandidate(nil)
	assert.False(t, ok)
}
