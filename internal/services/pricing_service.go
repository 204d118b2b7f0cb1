package services

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/adityap2202/portfolios/internal/cache"
	"github.com/adityap2202/portfolios/internal/models"
	"github.com/adityap2202/portfolios/internal/quotes"
	"github.com/adityap2202/portfolios/internal/util"
)

// PricingService sits between the dashboard and the quote resolver. It
// keeps a TTL cache of resolved quotes so repeated refreshes only hit the
// network for ISINs whose quotes have gone stale, coalesces concurrent
// refresh runs, and tracks advisory progress for the UI.
type PricingService struct {
	quoteCache *cache.QuoteCache
	resolver   *quotes.Resolver
	resolveCfg quotes.Config

	sf singleflight.Group

	mu      sync.Mutex
	running bool
	done    int
	total   int
}

// NewPricingService creates a PricingService. resolveCfg carries the
// worker-pool and retry settings applied to every refresh run.
func NewPricingService(quoteCache *cache.QuoteCache, resolver *quotes.Resolver, resolveCfg quotes.Config) *PricingService {
	return &PricingService{
		quoteCache: quoteCache,
		resolver:   resolver,
		resolveCfg: resolveCfg,
	}
}

// PriceFor returns the cached quote for an ISIN, if fresh.
func (s *PricingService) PriceFor(isin string) (quotes.Result, bool) {
	return s.quoteCache.Get(isin)
}

// RefreshAll resolves current prices for the given ISINs. Cached fresh
// quotes are returned as-is; only the rest go through the resolver.
// Concurrent callers share a single resolution run. The returned mapping
// covers every requested ISIN; unresolved ones carry their failure reason.
func (s *PricingService) RefreshAll(ctx context.Context, isins []string) (map[string]quotes.Result, error) {
	results := make(map[string]quotes.Result, len(isins))
	var missing []string
	for _, isin := range isins {
		if isin == "" {
			continue
		}
		if _, dup := results[isin]; dup {
			continue
		}
		if res, ok := s.quoteCache.Get(isin); ok {
			results[isin] = res
			continue
		}
		results[isin] = quotes.Result{} // placeholder, filled below
		missing = append(missing, isin)
	}

	if len(missing) == 0 {
		return results, nil
	}

	v, err, shared := s.sf.Do("refresh-prices", func() (interface{}, error) {
		return s.resolve(ctx, missing)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("refresh run coalesced with concurrent caller")
	}

	resolved := v.(map[string]quotes.Result)
	for _, isin := range missing {
		if res, ok := resolved[isin]; ok {
			results[isin] = res
		} else {
			// Coalesced into a run that didn't include this ISIN. Fall back
			// to the cache (the run may have filled it) or report transient.
			if res, ok := s.quoteCache.Get(isin); ok {
				results[isin] = res
			} else {
				results[isin] = quotes.Result{Identifier: isin, Reason: quotes.ReasonTransientError}
			}
		}
	}
	return results, nil
}

func (s *PricingService) resolve(ctx context.Context, isins []string) (map[string]quotes.Result, error) {
	s.mu.Lock()
	s.running = true
	s.done = 0
	s.total = len(isins)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	cfg := s.resolveCfg
	cfg.OnProgress = func(done, total int) {
		s.mu.Lock()
		s.done = done
		s.total = total
		s.mu.Unlock()
	}

	start := time.Now()
	results, err := s.resolver.Resolve(ctx, isins, cfg)
	if err != nil {
		return nil, err
	}

	resolved := 0
	for _, res := range results {
		if res.Resolved {
			resolved++
		}
		s.quoteCache.Set(res)
	}
	log.WithFields(log.Fields{
		"requested": len(isins),
		"resolved":  resolved,
		"duration":  time.Since(start),
	}).Info("price refresh complete")

	return results, nil
}

// Status reports the advisory progress of the current (or last) refresh
// run, plus when fresh end-of-day prices next become available.
func (s *PricingService) Status() models.RefreshStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.RefreshStatus{
		Running:          s.running,
		Done:             s.done,
		Total:            s.total,
		NextMarketUpdate: util.NextMarketClose(time.Now()),
	}
}
