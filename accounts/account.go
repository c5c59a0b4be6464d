// Package accounts holds the Account type and Account Cache: per-trader
// account aggregates (margin, equity, free margin, margin level) derived
// from a trader's open positions under hedging rules (spec §4.6).
package accounts

import (
	"github.com/fxrisk/microengine/positions"
	"github.com/fxrisk/microengine/settings"
)

// Account is one trading account. Balance and TradingGroup are externally
// mutated by the caller (spec §3); every other field is written only by
// RecalculateAccountData.
type Account struct {
	ID             string
	TraderID       string
	TradingGroupID string

	Balance  float64
	Leverage float64

	Margin      float64
	Equity      float64
	FreeMargin  float64
	MarginLevel float64
}

// AccountID satisfies settings.AccountRef.
func (a *Account) AccountID() string { return a.ID }

// TradingGroup satisfies settings.AccountRef.
func (a *Account) TradingGroup() string { return a.TradingGroupID }

// Update is the result of one RecalculateAccountData call (spec §4.6).
type Update struct {
	AccountID   string
	Margin      float64
	Equity      float64
	FreeMargin  float64
	MarginLevel float64
}

// marginLevelZeroThreshold guards the margin_level divide-by-zero case:
// below this, margin is treated as zero for the ratio (original_source
// uses the same 0.00001 epsilon in account.rs).
const marginLevelZeroThreshold = 0.00001

// RecalculateAccountData recomputes margin, equity, free margin, and
// margin level from the account's current positions and trading group
// settings (spec §4.6).
func (a *Account) RecalculateAccountData(accountPositions []*positions.Position, group settings.TradingGroupSettings) Update {
	margin, grossPL := calculateMarginAndGrossPL(accountPositions, a, group)

	a.Margin = margin
	a.Equity = a.Balance + grossPL
	a.FreeMargin = a.Equity - a.Margin

	if a.Margin < marginLevelZeroThreshold {
		a.MarginLevel = 0.0
	} else {
		a.MarginLevel = a.Equity / a.Margin * 100.0
	}

	return Update{
		AccountID:   a.ID,
		Margin:      a.Margin,
		Equity:      a.Equity,
		FreeMargin:  a.FreeMargin,
		MarginLevel: a.MarginLevel,
	}
}

// calculateMarginAndGrossPL groups positions by asset pair and sums each
// group's margin and gross PnL contribution (spec §4.6 step 1). A position
// in an instrument the group has no settings for contributes zero to both
// — the same silent-skip rule as §7.
func calculateMarginAndGrossPL(accountPositions []*positions.Position, account *Account, group settings.TradingGroupSettings) (margin, grossPL float64) {
	byAsset := make(map[string][]*positions.Position)
	for _, p := range accountPositions {
		byAsset[p.AssetPair] = append(byAsset[p.AssetPair], p)
	}

	for asset, assetPositions := range byAsset {
		instrumentSettings, ok := group.Instruments[asset]
		if !ok {
			continue
		}
		m, g := calculateSpecificInstrumentMarginAndGrossPL(assetPositions, account, group.HedgeCoef, instrumentSettings)
		margin += m
		grossPL += g
	}
	return margin, grossPL
}

// calculateSpecificInstrumentMarginAndGrossPL implements spec §4.6 step 2:
// the hedged/not-hedged volume split, contract_size averaging across the
// group, and the leverage cap (the lesser of the instrument's max_leverage
// and the account's own leverage).
func calculateSpecificInstrumentMarginAndGrossPL(positionsGroup []*positions.Position, account *Account, hedgeCoef *float64, instrumentSettings settings.InstrumentSettings) (margin, grossPL float64) {
	if len(positionsGroup) == 0 {
		return 0, 0
	}

	leverage := account.Leverage
	if instrumentSettings.MaxLeverage != nil && *instrumentSettings.MaxLeverage < leverage {
		leverage = *instrumentSettings.MaxLeverage
	}

	var buyMarginPriceSum, sellMarginPriceSum float64
	var buyVolume, sellVolume, contractSizeSum float64

	for _, p := range positionsGroup {
		grossPL += p.GetGrossPL()
		openPrice := p.MarginBidask.OpenPrice(p.IsBuy)
		if p.IsBuy {
			buyMarginPriceSum += openPrice * p.LotsAmount
			buyVolume += p.LotsAmount
		} else {
			sellMarginPriceSum += openPrice * p.LotsAmount
			sellVolume += p.LotsAmount
		}
		contractSizeSum += p.ContractSize
	}

	contractSize := contractSizeSum / float64(len(positionsGroup))
	hedgedVolume := min(buyVolume, sellVolume)

	var hedgedMargin float64
	if buyVolume > 0.0 && sellVolume > 0.0 {
		coef := 1.0
		if hedgeCoef != nil {
			coef = *hedgeCoef
		}
		hedgedMarginPrice := (buyMarginPriceSum + sellMarginPriceSum) / (buyVolume + sellVolume)
		hedgedMargin = hedgedVolume * contractSize * hedgedMarginPrice / leverage * coef
	}

	var notHedgedMarginPrice float64
	if buyVolume > sellVolume {
		notHedgedMarginPrice = buyMarginPriceSum / buyVolume
	} else {
		notHedgedMarginPrice = sellMarginPriceSum / sellVolume
	}
	notHedgedVolume := buyVolume - sellVolume
	if notHedgedVolume < 0 {
		notHedgedVolume = -notHedgedVolume
	}

	notHedgedMargin := notHedgedVolume * contractSize * notHedgedMarginPrice / leverage
	return hedgedMargin + notHedgedMargin, grossPL
}
