package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Config controls one resolution run. MaxParallel and MaxRetries are
// required to be sane up front; an invalid config is the only error
// Resolve returns, and it fails before any network activity.
type Config struct {
	// MaxParallel caps the number of lookups in flight at once. Must be >= 1.
	MaxParallel int
	// MaxRetries is the number of retries after the first attempt of a
	// rate-limited or transient lookup call. Must be >= 0.
	MaxRetries int
	// BaseDelay seeds the exponential backoff between retries.
	BaseDelay time.Duration
	// ThrottleEvery pauses the completing worker for ThrottlePause after
	// every ThrottleEvery completed lookups, limiting sustained request
	// rate independent of MaxParallel. Zero disables the throttle.
	ThrottleEvery int
	ThrottlePause time.Duration
	// OnProgress, when set, is invoked after each identifier completes with
	// the monotonically increasing completed count and the total number of
	// distinct identifiers. Advisory only; called from worker goroutines.
	OnProgress func(done, total int)
}

func (c Config) validate() error {
	if c.MaxParallel < 1 {
		return fmt.Errorf("quotes: max parallel must be >= 1, got %d", c.MaxParallel)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("quotes: max retries must be >= 0, got %d", c.MaxRetries)
	}
	return nil
}

// Resolver resolves batches of identifiers to prices through a Searcher
// and a Fetcher.
type Resolver struct {
	searcher Searcher
	fetcher  Fetcher
}

// NewResolver creates a Resolver over the given collaborators.
func NewResolver(searcher Searcher, fetcher Fetcher) *Resolver {
	return &Resolver{
		searcher: searcher,
		fetcher:  fetcher,
	}
}

// Resolve looks up a price for every identifier in the batch and returns a
// mapping that covers each distinct input identifier exactly once.
// Duplicate identifiers are deduplicated before dispatch, so the searcher
// is invoked at most once per distinct identifier per run. Individual
// failures never abort the batch; they surface as unresolved results.
func (r *Resolver) Resolve(ctx context.Context, identifiers []string, cfg Config) (map[string]Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	distinct := dedup(identifiers)
	results := make(map[string]Result, len(distinct))
	if len(distinct) == 0 {
		return results, nil
	}

	policy := RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		Multiplier: 2,
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed int
		throttled int
	)
	sem := semaphore.NewWeighted(int64(cfg.MaxParallel))
	total := len(distinct)

	for _, id := range distinct {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			var res Result
			if err := sem.Acquire(ctx, 1); err != nil {
				// Run was canceled before this lookup started. Still record
				// an outcome so the mapping stays complete.
				res = unresolved(id, ReasonTransientError)
			} else {
				res = r.lookup(ctx, id, policy)

				mu.Lock()
				throttled++
				throttle := cfg.ThrottleEvery > 0 && throttled%cfg.ThrottleEvery == 0
				mu.Unlock()
				if throttle && cfg.ThrottlePause > 0 {
					// Sleep while still holding the semaphore slot.
					sleep(ctx, cfg.ThrottlePause)
				}
				sem.Release(1)
			}

			mu.Lock()
			// Each identifier maps to exactly one worker, so this is the
			// slot's only write. The progress callback runs under the same
			// lock to keep the completed counts in order.
			results[id] = res
			completed++
			if cfg.OnProgress != nil {
				cfg.OnProgress(completed, total)
			}
			mu.Unlock()
		}(id)
	}

	wg.Wait()
	return results, nil
}

// lookup resolves a single identifier: search for candidates, pick the
// preferred exchange listing, fetch its price.
func (r *Resolver) lookup(ctx context.Context, id string, policy RetryPolicy) Result {
	var candidates []Candidate
	err := retryCall(ctx, policy, func() error {
		var searchErr error
		candidates, searchErr = r.searcher.Search(ctx, id)
		return searchErr
	})
	if err != nil {
		return unresolved(id, classify(err))
	}

	best, ok := BestCandidate(candidates)
	if !ok {
		// Retrying is pointless without new data.
		return unresolved(id, ReasonNoCandidates)
	}

	var price float64
	err = retryCall(ctx, policy, func() error {
		var fetchErr error
		price, fetchErr = r.fetcher.Fetch(ctx, best.Symbol)
		return fetchErr
	})
	if err != nil {
		res := unresolved(id, classify(err))
		res.Symbol = best.Symbol
		res.Exchange = best.Exchange
		return res
	}
	if price <= 0 {
		res := unresolved(id, ReasonNotFound)
		res.Symbol = best.Symbol
		res.Exchange = best.Exchange
		return res
	}

	return Result{
		Identifier: id,
		Resolved:   true,
		Symbol:     best.Symbol,
		Exchange:   best.Exchange,
		Price:      price,
		FetchedAt:  time.Now(),
	}
}

func unresolved(id string, reason Reason) Result {
	return Result{Identifier: id, Reason: reason}
}

// dedup returns the distinct identifiers in first-seen order, dropping
// empty strings.
func dedup(identifiers []string) []string {
	seen := make(map[string]struct{}, len(identifiers))
	out := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
