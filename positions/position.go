// Package positions holds the Position type, the Position Cache with its
// four inverted indices, and the per-position PnL recalculation (spec §4.4, §4.5).
package positions

import (
	"github.com/fxrisk/microengine/bidask"
	"github.com/fxrisk/microengine/settings"
)

// Position is one open position, keyed by id. Mutated only by
// recalculation writing PL, ActiveBidask, and ProfitBidask (spec §3).
type Position struct {
	ID         string
	TraderID   string
	AccountID  string
	Base       string
	Quote      string
	Collateral string
	AssetPair  string

	LotsAmount   float64
	ContractSize float64
	IsBuy        bool

	PL         float64
	Commission float64
	SwapsSum   float64

	OpenBidask   bidask.Bidask
	ActiveBidask bidask.Bidask
	MarginBidask bidask.Bidask
	ProfitBidask bidask.Bidask

	// ProfitPriceAssetsSubscriptions is the set of instrument ids whose
	// ticks feed the quote->collateral conversion: the id of the bidask the
	// last successful lookup returned plus any leg ids reported with it.
	// Empty when quote == collateral, and also when no conversion could be
	// resolved.
	ProfitPriceAssetsSubscriptions map[string]struct{}
}

// New constructs a position with ProfitBidask defaulting to the blank
// identity, so a position whose conversion pair has never ticked still
// prices at factor 1, not 0 (spec §9 Open Question, resolved).
func New(id, traderID, accountID, base, quote, collateral, assetPair string, lots, contractSize float64, isBuy bool, openBidask, marginBidask bidask.Bidask) *Position {
	return &Position{
		ID:           id,
		TraderID:     traderID,
		AccountID:    accountID,
		Base:         base,
		Quote:        quote,
		Collateral:   collateral,
		AssetPair:    assetPair,
		LotsAmount:   lots,
		ContractSize: contractSize,
		IsBuy:        isBuy,
		OpenBidask:   openBidask,
		ActiveBidask: openBidask,
		MarginBidask: marginBidask,
		ProfitBidask: bidask.Blank(),
	}
}

// GetGrossPL is the realised-and-floating total: floating PL minus
// commission plus accrued swaps (spec §4.4 step 4).
func (p *Position) GetGrossPL() float64 {
	return p.PL - p.Commission + p.SwapsSum
}

// UpdateBidAsk applies one incoming price tick to this position (spec §4.4).
// If the incoming instrument has no settings in the position's trading
// group, the update is a silent no-op — not even ActiveBidask changes —
// matching §7's "silent skip" rule for misconfigured instruments.
func (p *Position) UpdateBidAsk(incoming bidask.Bidask, priceCache *bidask.PriceCache, group settings.TradingGroupSettings) {
	instrumentSettings, ok := group.Instruments[incoming.ID]
	if !ok {
		return
	}

	markedUpBid, markedUpAsk := instrumentSettings.CalculateBidAsk(incoming)
	markedUp := bidask.Bidask{ID: incoming.ID, Bid: markedUpBid, Ask: markedUpAsk, Base: incoming.Base, Quote: incoming.Quote}

	if p.AssetPair == incoming.ID {
		p.ActiveBidask = markedUp
	}

	if _, subscribed := p.ProfitPriceAssetsSubscriptions[incoming.ID]; subscribed {
		p.resolveProfitBidask(incoming, markedUp, priceCache, group, instrumentSettings)
	}

	p.recomputePL(group)
}

// resolveProfitBidask implements spec §4.4 step 2. When the incoming tick
// directly *is* the quote->collateral conversion (or its inverse), the
// conversion price is derived straight from it, using the incoming
// instrument's own settings — never a reversed synthetic id's settings.
// Otherwise the conversion is looked up fresh via the Price Cache (which
// may itself cross), and marked up using whatever settings are keyed by
// the id that lookup returns, if any.
func (p *Position) resolveProfitBidask(incoming, markedUpIncoming bidask.Bidask, priceCache *bidask.PriceCache, group settings.TradingGroupSettings, incomingSettings settings.InstrumentSettings) {
	if p.Quote == p.Collateral {
		p.ProfitBidask = bidask.Blank()
		return
	}

	switch {
	case incoming.Base == p.Quote && incoming.Quote == p.Collateral:
		p.ProfitBidask = markedUpIncoming

	case incoming.Base == p.Collateral && incoming.Quote == p.Quote:
		reversed := incoming.Reverse()
		bid, ask := incomingSettings.CalculateBidAsk(reversed)
		p.ProfitBidask = bidask.Bidask{ID: reversed.ID, Bid: bid, Ask: ask, Base: reversed.Base, Quote: reversed.Quote}

	default:
		conversion, ok := priceCache.GetPrice(p.Quote, p.Collateral)
		if !ok {
			return
		}
		if convSettings, ok := group.Instruments[conversion.ID]; ok {
			bid, ask := convSettings.CalculateBidAsk(conversion)
			conversion = bidask.Bidask{ID: conversion.ID, Bid: bid, Ask: ask, Base: conversion.Base, Quote: conversion.Quote}
		}
		p.ProfitBidask = conversion
	}
}

// recomputePL implements spec §4.4 steps 3-4: the profit leg is chosen by
// the sign of diff (not of realised PnL including commission/swap), and
// rounding is applied only to PL — commission and swaps enter GrossPL at
// full precision.
func (p *Position) recomputePL(group settings.TradingGroupSettings) {
	openPrice := p.OpenBidask.OpenPrice(p.IsBuy)
	closePrice := p.ActiveBidask.ClosePrice(p.IsBuy)

	var diff float64
	if p.IsBuy {
		diff = closePrice - openPrice
	} else {
		diff = openPrice - closePrice
	}

	var conv float64
	if diff >= 0 {
		conv = p.ProfitBidask.Bid
	} else {
		conv = p.ProfitBidask.Ask
	}

	raw := diff * p.LotsAmount * p.ContractSize * conv
	p.PL = roundTo(raw, group.CollateralDigits(p.Collateral))
}
