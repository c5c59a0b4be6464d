package positions

// index is the four inverted maps a Cache keeps alongside the primary
// id -> Position map (spec §2 "Position Cache"): by trader, by account, by
// asset pair, and by profit-conversion subscription, so a price tick for
// any of those can find every affected position without a full scan.
type index struct {
	byTrader      map[string]map[string]struct{}
	byAccount     map[string]map[string]struct{}
	byAssetPair   map[string]map[string]struct{}
	bySubscribed  map[string]map[string]struct{}
}

func newIndex() index {
	return index{
		byTrader:     make(map[string]map[string]struct{}),
		byAccount:    make(map[string]map[string]struct{}),
		byAssetPair:  make(map[string]map[string]struct{}),
		bySubscribed: make(map[string]map[string]struct{}),
	}
}

func add(m map[string]map[string]struct{}, key, positionID string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[positionID] = struct{}{}
}

func remove(m map[string]map[string]struct{}, key, positionID string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, positionID)
	if len(set) == 0 {
		delete(m, key)
	}
}

// insert adds a position into every index it belongs to, including one
// bySubscribed entry per conversion-pair instrument id it watches.
func (ix *index) insert(p *Position) {
	add(ix.byTrader, p.TraderID, p.ID)
	add(ix.byAccount, p.AccountID, p.ID)
	add(ix.byAssetPair, p.AssetPair, p.ID)
	for instrumentID := range p.ProfitPriceAssetsSubscriptions {
		add(ix.bySubscribed, instrumentID, p.ID)
	}
}

// remove undoes insert entirely for a position being deleted or re-indexed.
func (ix *index) remove(p *Position) {
	remove(ix.byTrader, p.TraderID, p.ID)
	remove(ix.byAccount, p.AccountID, p.ID)
	remove(ix.byAssetPair, p.AssetPair, p.ID)
	for instrumentID := range p.ProfitPriceAssetsSubscriptions {
		remove(ix.bySubscribed, instrumentID, p.ID)
	}
}

// idsForPrice returns the union of position ids that must react to a tick
// on priceID: positions whose asset_pair matches, plus positions whose
// profit conversion is subscribed to it (spec §4.5).
func (ix *index) idsForPrice(priceID string) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range ix.byAssetPair[priceID] {
		out[id] = struct{}{}
	}
	for id := range ix.bySubscribed[priceID] {
		out[id] = struct{}{}
	}
	return out
}
