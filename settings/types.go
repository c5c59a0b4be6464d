// Package settings holds per-trading-group instrument parameters (digits,
// leverage cap, markup, spread clamps, hedge coefficient, collateral
// digits) and the account -> group mapping (spec §3, §4.3).
package settings

import (
	"log"

	"golang.org/x/text/currency"
)

// MarkupSettings is the optional markup/spread-clamp configuration for one
// instrument within a trading group (spec §3).
type MarkupSettings struct {
	MarkupBid float64
	MarkupAsk float64
	MinSpread *float64
	MaxSpread *float64
}

// InstrumentSettings is the per-instrument configuration within a trading
// group: decimal digits, an optional leverage cap, and optional markup.
type InstrumentSettings struct {
	Digits      int32
	MaxLeverage *float64
	Markup      *MarkupSettings
}

// CollateralSettings carries the decimal digits used when rounding PnL
// for a given collateral currency (spec §4.4 step 3).
type CollateralSettings struct {
	Digits int32
}

// DefaultCollateralDigits is used when a trading group has no explicit
// entry for a collateral currency (spec §4.4 step 3).
const DefaultCollateralDigits = 2

// TradingGroupSettings is the full parameter set for one trading group.
type TradingGroupSettings struct {
	ID          string
	HedgeCoef   *float64
	Instruments map[string]InstrumentSettings
	Collaterals map[string]CollateralSettings
}

// CollateralDigits returns the configured digits for a collateral currency,
// falling back to DefaultCollateralDigits when the group has no entry for
// it (spec §4.4 step 3). The currency code is validated against ISO 4217
// purely for diagnostics: an unparseable code never fails the lookup, it
// only logs a warning, consistent with §7's "no fatal errors" rule.
func (g TradingGroupSettings) CollateralDigits(code string) int32 {
	if cfg, ok := g.Collaterals[code]; ok {
		return cfg.Digits
	}
	if _, err := currency.ParseISO(code); err != nil {
		log.Printf("[Settings] group %s: collateral code %q is not ISO 4217, defaulting to %d digits", g.ID, code, DefaultCollateralDigits)
	}
	return DefaultCollateralDigits
}
