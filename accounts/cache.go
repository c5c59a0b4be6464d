package accounts

import (
	"sync"

	"github.com/fxrisk/microengine/microerr"
	"github.com/fxrisk/microengine/positions"
	"github.com/fxrisk/microengine/settings"
)

// Cache holds every account plus a trader->accounts index (spec §2
// "Account Cache"). Callers taking this lock must release the Position
// Cache's and Settings Cache's locks first when acquiring in the other
// direction — the fixed order is dirty-set -> accounts -> positions ->
// settings -> prices (spec §5).
type Cache struct {
	mu          sync.RWMutex
	accounts    map[string]*Account
	traderIndex map[string]map[string]struct{}
}

// NewCache builds an Account Cache from the initial snapshot (spec §4.7 initialize).
func NewCache(initial []*Account) *Cache {
	c := &Cache{
		accounts:    make(map[string]*Account, len(initial)),
		traderIndex: make(map[string]map[string]struct{}),
	}
	for _, a := range initial {
		c.accounts[a.ID] = a
		c.indexTrader(a)
	}
	return c
}

func (c *Cache) indexTrader(a *Account) {
	set, ok := c.traderIndex[a.TraderID]
	if !ok {
		set = make(map[string]struct{})
		c.traderIndex[a.TraderID] = set
	}
	set[a.ID] = struct{}{}
}

// GetAccount returns an account by id.
func (c *Cache) GetAccount(id string) (*Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[id]
	return a, ok
}

// GetTraderAccounts returns every account belonging to a trader.
func (c *Cache) GetTraderAccounts(traderID string) []*Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.traderIndex[traderID]
	out := make([]*Account, 0, len(ids))
	for id := range ids {
		if a, ok := c.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// GetAllAccounts returns every known account.
func (c *Cache) GetAllAccounts() []*Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Account, 0, len(c.accounts))
	for _, a := range c.accounts {
		out = append(out, a)
	}
	return out
}

// RecalculateAccountData recomputes one account (spec §4.6). Returns false
// if the account or its trading group settings cannot be resolved — the
// §7 silent-skip rule.
func (c *Cache) RecalculateAccountData(settingsCache *settings.Cache, positionsCache *positions.Cache, accountID string) (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	account, ok := c.accounts[accountID]
	if !ok {
		return Update{}, false
	}
	accountPositions := positionsCache.GetAccountPositions(accountID)
	group, ok := settingsCache.ResolveByAccount(accountID)
	if !ok {
		return Update{}, false
	}
	return account.RecalculateAccountData(accountPositions, group), true
}

// RecalculateAccountsData recomputes a specific set of accounts, skipping
// any whose settings cannot be resolved (spec §4.6, batch form used after
// a price tick moves a known set of accounts).
func (c *Cache) RecalculateAccountsData(settingsCache *settings.Cache, positionsCache *positions.Cache, accountIDs []string) []Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	updates := make([]Update, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		account, ok := c.accounts[accountID]
		if !ok {
			continue
		}
		accountPositions := positionsCache.GetAccountPositions(accountID)
		group, ok := settingsCache.ResolveByAccount(accountID)
		if !ok {
			continue
		}
		updates = append(updates, account.RecalculateAccountData(accountPositions, group))
	}
	return updates
}

// RecalculateAllAccounts recomputes every account (spec §9 Open Question:
// used for a full pass after a bulk settings change, never triggered
// automatically by TradingSettingsChanged itself).
func (c *Cache) RecalculateAllAccounts(settingsCache *settings.Cache, positionsCache *positions.Cache) []Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	updates := make([]Update, 0, len(c.accounts))
	for id, account := range c.accounts {
		accountPositions := positionsCache.GetAccountPositions(id)
		group, ok := settingsCache.ResolveByAccount(id)
		if !ok {
			continue
		}
		updates = append(updates, account.RecalculateAccountData(accountPositions, group))
	}
	return updates
}

// InsertOrUpdateAccount upserts an account, refreshes the settings cache's
// account->group mapping, and recalculates it immediately — returning
// AccountSettingsNotFoundError if its trading group has no known settings
// (spec §4.7 insert_or_update_account).
func (c *Cache) InsertOrUpdateAccount(account *Account, settingsCache *settings.Cache, positionsCache *positions.Cache) (Update, error) {
	settingsCache.AccountUpdated(account.ID, account.TradingGroupID)

	group, ok := settingsCache.ResolveByAccount(account.ID)
	if !ok {
		return Update{}, &microerr.AccountSettingsNotFoundError{GroupID: account.TradingGroupID}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	accountPositions := positionsCache.GetAccountPositions(account.ID)
	update := account.RecalculateAccountData(accountPositions, group)

	c.accounts[account.ID] = account
	c.indexTrader(account)

	return update, nil
}
