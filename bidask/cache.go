package bidask

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"golang.org/x/sync/errgroup"
)

// PriceCache stores the latest bid/ask per instrument id and resolves
// direct, reversed, and cross prices between any two currencies (spec §4.1).
type PriceCache struct {
	mu sync.RWMutex

	prices         map[string]Bidask
	baseQuoteIndex map[string]map[string]string // base -> quote -> instrument id
	quoteBaseIndex map[string]map[string]string // quote -> base -> instrument id

	matrix Matrix
	solver Solver
}

// NewPriceCache builds the cache from a collateral set, the known
// instruments, and an initial price snapshot. It derives the additional
// cross pairs every instrument needs against every collateral currency
// (generateRequiredCrosses) and resolves them with workerCount parallel
// workers, returning any non-fatal resolution errors alongside the cache.
func NewPriceCache(collaterals map[string]struct{}, instruments []Instrument, cachedPrices []Bidask, workerCount int) (*PriceCache, []CrossCalculationsError) {
	required := generateRequiredCrosses(instruments, collaterals)
	matrix, errs := resolveCrossesParallel(required, instruments, workerCount)

	prices := make(map[string]Bidask, len(cachedPrices))
	baseQuoteIndex := make(map[string]map[string]string, len(instruments))
	quoteBaseIndex := make(map[string]map[string]string, len(instruments))

	pc := &PriceCache{
		prices:         prices,
		baseQuoteIndex: baseQuoteIndex,
		quoteBaseIndex: quoteBaseIndex,
		matrix:         matrix,
		solver:         BFSSolver{},
	}

	for _, p := range cachedPrices {
		pc.insertIndexed(p)
	}

	for _, err := range errs {
		log.Printf("[PriceCache] cross resolution failed: %v", err)
	}

	return pc, errs
}

// insertIndexed upserts a price and, the first time an id is seen, wires
// its (base,quote)/(quote,base) direction indices. Caller must hold mu.
func (c *PriceCache) insertIndexed(b Bidask) {
	_, existed := c.prices[b.ID]
	c.prices[b.ID] = b

	if existed {
		return
	}

	if c.baseQuoteIndex[b.Base] == nil {
		c.baseQuoteIndex[b.Base] = make(map[string]string)
	}
	c.baseQuoteIndex[b.Base][b.Quote] = b.ID

	if c.quoteBaseIndex[b.Quote] == nil {
		c.quoteBaseIndex[b.Quote] = make(map[string]string)
	}
	c.quoteBaseIndex[b.Quote][b.Base] = b.ID
}

// HandleNew upserts a price by id (spec §4.1 handle_new).
func (c *PriceCache) HandleNew(b Bidask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertIndexed(b)
}

// GetByID is a direct lookup by instrument id.
func (c *PriceCache) GetByID(id string) (Bidask, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.prices[id]
	return b, ok
}

func (c *PriceCache) getBaseQuote(base, quote string) (Bidask, bool) {
	id, ok := c.baseQuoteIndex[base][quote]
	if !ok {
		return Bidask{}, false
	}
	b, ok := c.prices[id]
	return b, ok
}

func (c *PriceCache) getQuoteBase(quote, base string) (Bidask, bool) {
	id, ok := c.quoteBaseIndex[quote][base]
	if !ok {
		return Bidask{}, false
	}
	b, ok := c.prices[id]
	return b, ok
}

// GetPrice resolves a bidask for base/quote: the blank identity if
// base==quote, else a direct hit, else the inverse of a reversed direct
// hit, else a cross computed without leg tracking (spec §4.1).
func (c *PriceCache) GetPrice(base, quote string) (Bidask, bool) {
	if base == quote {
		return Blank(), true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if direct, ok := c.getBaseQuote(base, quote); ok {
		return direct, true
	}
	if reversed, ok := c.getQuoteBase(base, quote); ok {
		return reversed.Reverse(), true
	}

	rate, err := c.solver.Resolve(base, quote, c.matrix, (*unlockedSource)(c), false)
	if err != nil {
		return Bidask{}, false
	}
	return crossRateToBidask(rate), true
}

// GetPriceWithSource is GetPrice plus the exact set of instrument ids whose
// updates would move the result: none for base==quote or a direct hit, the
// single reversed leg for an inverse hit, both legs for a cross hit. A
// cross that cannot be resolved returns (Bidask{}, nil, false).
func (c *PriceCache) GetPriceWithSource(base, quote string) (Bidask, []string, bool) {
	if base == quote {
		return Blank(), nil, true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if direct, ok := c.getBaseQuote(base, quote); ok {
		return direct, nil, true
	}
	if reversed, ok := c.getQuoteBase(base, quote); ok {
		return reversed.Reverse(), []string{reversed.ID}, true
	}

	rate, err := c.solver.Resolve(base, quote, c.matrix, (*unlockedSource)(c), true)
	if err != nil {
		return Bidask{}, nil, false
	}
	return crossRateToBidask(rate), []string{rate.LeftLegID, rate.RightLegID}, true
}

// GetAll returns a snapshot of every cached price, for diagnostics/metrics
// export (adapted from original_source's get_all).
func (c *PriceCache) GetAll() map[string]Bidask {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Bidask, len(c.prices))
	for k, v := range c.prices {
		out[k] = v
	}
	return out
}

func crossRateToBidask(rate CrossRate) Bidask {
	id := fmt.Sprintf("%s-%s", rate.LeftLegID, rate.RightLegID)
	if rate.LeftLegID == "" && rate.RightLegID == "" {
		id = fmt.Sprintf("CROSS-%s-%s", rate.Base, rate.Quote)
	}
	return Bidask{ID: id, Bid: rate.Bid, Ask: rate.Ask, Base: rate.Base, Quote: rate.Quote}
}

// unlockedSource adapts *PriceCache to PriceSource for solver calls made
// while c.mu is already held by the caller (GetPrice/GetPriceWithSource).
type unlockedSource PriceCache

func (u *unlockedSource) GetByID(id string) (Bidask, bool) {
	b, ok := (*PriceCache)(u).prices[id]
	return b, ok
}

// generateRequiredCrosses derives, for every instrument and every
// collateral currency, any (x, collateral) pair not already directly or
// reversely present among the known instruments (spec §4.1).
func generateRequiredCrosses(instruments []Instrument, collaterals map[string]struct{}) [][2]string {
	contains := make(map[string]struct{}, len(instruments))
	for _, instr := range instruments {
		contains[instr.Base+instr.Quote] = struct{}{}
	}

	seen := make(map[[2]string]struct{})
	var out [][2]string
	addIfNeeded := func(symbol, collateral string) {
		if symbol == collateral {
			return
		}
		if _, ok := contains[symbol+collateral]; ok {
			return
		}
		if _, ok := contains[collateral+symbol]; ok {
			return
		}
		key := [2]string{symbol, collateral}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}

	for _, instr := range instruments {
		for collateral := range collaterals {
			addIfNeeded(instr.Base, collateral)
			addIfNeeded(instr.Quote, collateral)
		}
	}
	return out
}

// resolveCrossesParallel partitions requiredPairs across workerCount
// workers using rendezvous hashing (the same consistent-hashing idiom the
// teacher uses for WebSocket cluster routing), resolves each worker's
// share of the matrix concurrently, and merges results deterministically.
func resolveCrossesParallel(requiredPairs [][2]string, instruments []Instrument, workerCount int) (Matrix, []CrossCalculationsError) {
	adjacency := buildAdjacency(instruments)
	matrix := Matrix{adjacency: adjacency}

	if len(requiredPairs) == 0 {
		return matrix, nil
	}
	if workerCount < 1 {
		workerCount = 1
	}

	workers := make([]string, workerCount)
	for i := range workers {
		workers[i] = strconv.Itoa(i)
	}
	router := rendezvous.New(workers, xxhash.Sum64String)

	buckets := make([][][2]string, workerCount)
	for _, pair := range requiredPairs {
		key := pair[0] + "/" + pair[1]
		worker := router.Lookup(key)
		idx, _ := strconv.Atoi(worker)
		buckets[idx] = append(buckets[idx], pair)
	}

	results := make([][]CrossCalculationsError, workerCount)
	g, _ := errgroup.WithContext(context.Background())
	for i, bucket := range buckets {
		i, bucket := i, bucket
		if len(bucket) == 0 {
			continue
		}
		g.Go(func() error {
			var errs []CrossCalculationsError
			for _, pair := range bucket {
				if _, _, ok := matrix.findTwoLegPath(pair[0], pair[1]); !ok {
					errs = append(errs, CrossCalculationsError{
						Base: pair[0], Quote: pair[1],
						Cause: "no two-leg chain through known instruments",
					})
				}
			}
			results[i] = errs
			return nil
		})
	}
	_ = g.Wait()

	var merged []CrossCalculationsError
	for _, errs := range results {
		merged = append(merged, errs...)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Base != merged[j].Base {
			return merged[i].Base < merged[j].Base
		}
		return merged[i].Quote < merged[j].Quote
	})
	return matrix, merged
}
