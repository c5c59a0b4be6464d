package positions

import (
	"fmt"
	"sync"

	"github.com/fxrisk/microengine/bidask"
	"github.com/fxrisk/microengine/microerr"
	"github.com/fxrisk/microengine/settings"
)

// Update is one position's recalculated gross PnL. The engine uses its
// AccountID to choose which accounts to recalculate; the Account Cache then
// recomputes account aggregates from the positions themselves (spec §4.5
// step 3, §5 lock ordering).
type Update struct {
	PositionID string
	AccountID  string
	GrossPL    float64
}

// Cache holds every open position plus the four inverted indices (spec §2
// "Position Cache"). Guarded by its own RWMutex — when a caller holds both,
// the Account Cache's lock is taken first, never the other way round (spec §5).
type Cache struct {
	mu        sync.RWMutex
	positions map[string]*Position
	index     index
}

// NewCache builds a Position Cache from the initial snapshot, computing
// each position's profit-conversion subscription via the Price Cache
// (spec §4.7 initialize).
func NewCache(priceCache *bidask.PriceCache, initial []*Position) *Cache {
	c := &Cache{
		positions: make(map[string]*Position, len(initial)),
		index:     newIndex(),
	}
	for _, p := range initial {
		resolveSubscription(p, priceCache)
		c.positions[p.ID] = p
		c.index.insert(p)
	}
	return c
}

// resolveSubscription recomputes which instrument id(s) feed a position's
// quote->collateral conversion, using the Price Cache's leg ids when the
// conversion crosses (spec §3 invariant, §4.1 leg tracking). Returns false
// if quote != collateral and no conversion could be resolved at all.
func resolveSubscription(p *Position, priceCache *bidask.PriceCache) bool {
	if p.Quote == p.Collateral {
		p.ProfitPriceAssetsSubscriptions = map[string]struct{}{}
		return true
	}

	conversion, legs, ok := priceCache.GetPriceWithSource(p.Quote, p.Collateral)
	subs := make(map[string]struct{})
	if ok {
		subs[conversion.ID] = struct{}{}
		for _, leg := range legs {
			subs[leg] = struct{}{}
		}
	}
	p.ProfitPriceAssetsSubscriptions = subs
	return ok
}

// AddPosition inserts or replaces a position, recomputing its profit
// subscription and refreshing the indices (spec §4.5 "insert/replace").
// Returns microerr.ErrProfitPriceNotFound, leaving any existing position
// with this id untouched, if the position's quote->collateral conversion
// cannot be resolved from the Price Cache.
func (c *Cache) AddPosition(p *Position, priceCache *bidask.PriceCache) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !resolveSubscription(p, priceCache) {
		return microerr.ErrProfitPriceNotFound
	}

	if existing, ok := c.positions[p.ID]; ok {
		c.index.remove(existing)
	}
	c.positions[p.ID] = p
	c.index.insert(p)
	return nil
}

// RemovePosition deletes a position and unwinds its indices; returns false
// if it was not present.
func (c *Cache) RemovePosition(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.positions[id]
	if !ok {
		return false
	}
	c.index.remove(p)
	delete(c.positions, id)
	return true
}

// GetPosition returns a position by id.
func (c *Cache) GetPosition(id string) (*Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	return p, ok
}

// GetAccountPositions returns every position belonging to an account.
func (c *Cache) GetAccountPositions(accountID string) []*Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.index.byAccount[accountID])
}

// GetTraderPositions returns every position belonging to a trader.
func (c *Cache) GetTraderPositions(traderID string) []*Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.index.byTrader[traderID])
}

// GetAllPositions returns every open position.
func (c *Cache) GetAllPositions() []*Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Position, 0, len(c.positions))
	for _, p := range c.positions {
		out = append(out, p)
	}
	return out
}

func (c *Cache) collect(ids map[string]struct{}) []*Position {
	out := make([]*Position, 0, len(ids))
	for id := range ids {
		if p, ok := c.positions[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// RecalculatePositionsPL applies one incoming price to every position it
// affects (spec §4.5): resolves each affected position's account's group
// settings first, silently skipping positions whose group is unknown
// (§7's "silent skip" rule), then calls Position.UpdateBidAsk and reports
// the resulting gross PnL per position so the caller can recalculate the
// affected accounts.
func (c *Cache) RecalculatePositionsPL(incoming bidask.Bidask, priceCache *bidask.PriceCache, settingsCache *settings.Cache) []Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	affected := c.index.idsForPrice(incoming.ID)
	if len(affected) == 0 {
		return nil
	}

	updates := make([]Update, 0, len(affected))
	for id := range affected {
		p, ok := c.positions[id]
		if !ok {
			continue
		}
		group, ok := settingsCache.ResolveByAccount(p.AccountID)
		if !ok {
			continue
		}

		oldSubs := p.ProfitPriceAssetsSubscriptions
		p.UpdateBidAsk(incoming, priceCache, group)
		resolveSubscription(p, priceCache)
		c.reindexSubscription(p, oldSubs)

		updates = append(updates, Update{PositionID: p.ID, AccountID: p.AccountID, GrossPL: p.GetGrossPL()})
	}
	return updates
}

// reindexSubscription refreshes the bySubscribed index entries for a
// position whose conversion leg set may have shifted after a cross-rate
// resolution change.
func (c *Cache) reindexSubscription(p *Position, oldSubs map[string]struct{}) {
	for instrumentID := range oldSubs {
		remove(c.index.bySubscribed, instrumentID, p.ID)
	}
	for instrumentID := range p.ProfitPriceAssetsSubscriptions {
		add(c.index.bySubscribed, instrumentID, p.ID)
	}
}

// RecalculateAllPositions reapplies each position's current group settings
// to the latest raw price the Price Cache holds for its asset pair (or to
// its ActiveBidask when the Price Cache has none), without any new price
// tick — used by
// engine.Engine.RecalculateAll after a bulk settings change (spec §9 Open
// Question) to bring every position's markup, conversion subscription, and
// PL in line with the new settings in one pass.
func (c *Cache) RecalculateAllPositions(priceCache *bidask.PriceCache, settingsCache *settings.Cache) ([]Update, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	updates := make([]Update, 0, len(c.positions))
	var errs []error
	for _, p := range c.positions {
		group, ok := settingsCache.ResolveByAccount(p.AccountID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: account %s", microerr.ErrAccountNotFound, p.AccountID))
			continue
		}
		oldSubs := p.ProfitPriceAssetsSubscriptions
		latest, ok := priceCache.GetByID(p.AssetPair)
		if !ok {
			latest = p.ActiveBidask
		}
		p.UpdateBidAsk(latest, priceCache, group)
		resolveSubscription(p, priceCache)
		c.reindexSubscription(p, oldSubs)
		updates = append(updates, Update{PositionID: p.ID, AccountID: p.AccountID, GrossPL: p.GetGrossPL()})
	}
	return updates, errs
}
