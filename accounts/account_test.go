package accounts

import (
	"testing"

	"github.com/fxrisk/microengine/bidask"
	"github.com/fxrisk/microengine/positions"
	"github.com/fxrisk/microengine/settings"
)

func approxEqual(t *testing.T, got, want, tolerance float64) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Fatalf("got %.5f, want %.5f", got, want)
	}
}

func groupForTest() settings.TradingGroupSettings {
	return settings.TradingGroupSettings{
		ID: "standard",
		Instruments: map[string]settings.InstrumentSettings{
			"EURUSD": {Digits: 4},
		},
		Collaterals: map[string]settings.CollateralSettings{"USD": {Digits: 2}},
	}
}

// TestScenarioS1Account reproduces spec.md §9 scenario S1's account-level
// expectations: margin=62.77100, equity=99999.4, free_margin=99936.629
// for a single 0.05-lot EURUSD buy at 100x leverage, 100000 balance.
func TestScenarioS1Account(t *testing.T) {
	openAndMargin := bidask.Bidask{ID: "EURUSD", Bid: 1.25540, Ask: 1.25542, Base: "EUR", Quote: "USD"}
	p := positions.New("p-1", "trader-1", "acct-1", "EUR", "USD", "USD", "EURUSD", 0.05, 100000, true, openAndMargin, openAndMargin)
	p.PL = -0.6

	account := &Account{ID: "acct-1", TraderID: "trader-1", TradingGroupID: "standard", Balance: 100000, Leverage: 100}

	update := account.RecalculateAccountData([]*positions.Position{p}, groupForTest())

	approxEqual(t, update.Margin, 62.771, 0.001)
	approxEqual(t, update.Equity, 99999.4, 0.001)
	approxEqual(t, update.FreeMargin, 99936.629, 0.001)
}

func TestRecalculateAccountDataZeroMarginGivesZeroMarginLevel(t *testing.T) {
	account := &Account{ID: "acct-1", TraderID: "trader-1", TradingGroupID: "standard", Balance: 1000, Leverage: 100}
	update := account.RecalculateAccountData(nil, groupForTest())

	if update.Margin != 0 {
		t.Fatalf("expected zero margin with no positions, got %f", update.Margin)
	}
	if update.MarginLevel != 0 {
		t.Fatalf("expected margin_level 0 when margin is below threshold, got %f", update.MarginLevel)
	}
	approxEqual(t, update.Equity, 1000, 1e-9)
}

// TestHedgedPositionsSplitMarginByHedgeCoef covers the §4.6 hedging branch:
// equal buy/sell volume on the same instrument is fully hedged, and the
// hedge_coef scales the hedged slice of margin.
func TestHedgedPositionsSplitMarginByHedgeCoef(t *testing.T) {
	quote := bidask.Bidask{ID: "EURUSD", Bid: 1.1000, Ask: 1.1002, Base: "EUR", Quote: "USD"}
	buy := positions.New("p-buy", "trader-1", "acct-1", "EUR", "USD", "USD", "EURUSD", 1, 100000, true, quote, quote)
	sell := positions.New("p-sell", "trader-1", "acct-1", "EUR", "USD", "USD", "EURUSD", 1, 100000, false, quote, quote)

	account := &Account{ID: "acct-1", TraderID: "trader-1", TradingGroupID: "standard", Balance: 10000, Leverage: 100}

	halfCoef := 0.5
	group := groupForTest()
	group.HedgeCoef = &halfCoef

	update := account.RecalculateAccountData([]*positions.Position{buy, sell}, group)

	// fully hedged: hedged_volume=1, contract_size=100000, hedged_margin_price=avg(1.1002,1.1000)=1.1001
	// margin = 1*100000*1.1001/100*0.5 = 550.05
	approxEqual(t, update.Margin, 550.05, 0.01)
}
