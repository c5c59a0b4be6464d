package settings

import "sync"

// AccountRef is the minimal view of an account the settings cache needs
// to build its account->group mapping, satisfied by accounts.Account.
type AccountRef interface {
	AccountID() string
	TradingGroup() string
}

// Cache maps accounts to trading groups and holds every known
// TradingGroupSettings (spec §2 "Settings Cache").
type Cache struct {
	mu sync.RWMutex

	accountsMapping map[string]string // account id -> group id
	groups          map[string]TradingGroupSettings
}

// NewCache builds the settings cache from the known groups and the
// initial account population (spec §4.7 initialize).
func NewCache(groupList []TradingGroupSettings, accounts []AccountRef) *Cache {
	groups := make(map[string]TradingGroupSettings, len(groupList))
	for _, g := range groupList {
		groups[g.ID] = g
	}

	mapping := make(map[string]string, len(accounts))
	for _, a := range accounts {
		mapping[a.AccountID()] = a.TradingGroup()
	}

	return &Cache{accountsMapping: mapping, groups: groups}
}

// ResolveByAccount returns the TradingGroupSettings for the group an
// account belongs to, or false if either the account or its group is unknown.
func (c *Cache) ResolveByAccount(accountID string) (TradingGroupSettings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groupID, ok := c.accountsMapping[accountID]
	if !ok {
		return TradingGroupSettings{}, false
	}
	g, ok := c.groups[groupID]
	return g, ok
}

// AccountUpdated refreshes the account->group mapping after an account's
// trading_group is externally mutated (spec §3: "balance and trading_group
// are externally mutated").
func (c *Cache) AccountUpdated(accountID, tradingGroup string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountsMapping[accountID] = tradingGroup
}

// InsertOrReplaceSettings upserts a trading group's settings and returns
// the ids of every account currently mapped to it (original_source's
// insert_or_replace_settings) so callers can decide whether to force a
// recalculation — trading_settings_changed itself never does (spec §9
// Open Question, resolved in DESIGN.md).
func (c *Cache) InsertOrReplaceSettings(g TradingGroupSettings) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.groups[g.ID] = g

	var affected []string
	for accountID, groupID := range c.accountsMapping {
		if groupID == g.ID {
			affected = append(affected, accountID)
		}
	}
	return affected
}

// Group returns a trading group's settings by id directly, without going
// through an account.
func (c *Cache) Group(groupID string) (TradingGroupSettings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[groupID]
	return g, ok
}
