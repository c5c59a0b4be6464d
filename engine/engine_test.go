package engine

import (
	"testing"

	"github.com/fxrisk/microengine/accounts"
	"github.com/fxrisk/microengine/bidask"
	"github.com/fxrisk/microengine/positions"
	"github.com/fxrisk/microengine/settings"
)

func testSnapshot() Snapshot {
	group := settings.TradingGroupSettings{
		ID: "standard",
		Instruments: map[string]settings.InstrumentSettings{
			"EURUSD": {Digits: 4},
		},
		Collaterals: map[string]settings.CollateralSettings{"USD": {Digits: 2}},
	}

	account := &accounts.Account{ID: "acct-1", TraderID: "trader-1", TradingGroupID: "standard", Balance: 100000, Leverage: 100}

	open := bidask.Bidask{ID: "EURUSD", Bid: 1.1000, Ask: 1.1002, Base: "EUR", Quote: "USD"}
	pos := positions.New("pos-1", "trader-1", "acct-1", "EUR", "USD", "USD", "EURUSD", 1, 100000, true, open, open)

	return Snapshot{
		Accounts:     []*accounts.Account{account},
		Positions:    []*positions.Position{pos},
		Groups:       []settings.TradingGroupSettings{group},
		Collaterals:  map[string]struct{}{"USD": {}},
		Instruments:  []bidask.Instrument{{ID: "EURUSD", Base: "EUR", Quote: "USD"}},
		CachedPrices: []bidask.Bidask{open},
		WorkerCount:  1,
	}
}

func TestRecalculateAccordingToUpdatesIsIdempotentOnCleanDirtySet(t *testing.T) {
	e, errs := Initialize(testSnapshot())
	if len(errs) != 0 {
		t.Fatalf("unexpected cross resolution errors: %v", errs)
	}

	e.HandleNewPrice([]bidask.Bidask{{ID: "EURUSD", Bid: 1.1010, Ask: 1.1012, Base: "EUR", Quote: "USD"}})

	first := e.RecalculateAccordingToUpdates()
	if len(first.PositionUpdates) != 1 {
		t.Fatalf("expected 1 position update on first cycle, got %d", len(first.PositionUpdates))
	}
	if len(first.AccountUpdates) != 1 {
		t.Fatalf("expected 1 account update on first cycle, got %d", len(first.AccountUpdates))
	}

	second := e.RecalculateAccordingToUpdates()
	if len(second.PositionUpdates) != 0 || len(second.AccountUpdates) != 0 {
		t.Fatalf("expected no updates on a clean dirty-set, got positions=%d accounts=%d", len(second.PositionUpdates), len(second.AccountUpdates))
	}
}

func TestInsertAndRemovePositionRoundTrip(t *testing.T) {
	e, _ := Initialize(testSnapshot())

	open := bidask.Bidask{ID: "EURUSD", Bid: 1.1, Ask: 1.1002, Base: "EUR", Quote: "USD"}
	newPos := positions.New("pos-2", "trader-1", "acct-1", "EUR", "USD", "USD", "EURUSD", 1, 100000, true, open, open)
	if _, err := e.InsertOrUpdatePosition(newPos); err != nil {
		t.Fatalf("unexpected error inserting pos-2: %v", err)
	}

	if _, ok := e.GetPosition("pos-2"); !ok {
		t.Fatalf("expected pos-2 to be retrievable after insert")
	}

	if _, err := e.RemovePosition("pos-2"); err != nil {
		t.Fatalf("unexpected error removing pos-2: %v", err)
	}
	if _, err := e.RemovePosition("pos-2"); err == nil {
		t.Fatalf("expected error removing an already-removed position")
	}
}

func TestInsertPositionFailsWhenProfitPriceUnresolved(t *testing.T) {
	e, _ := Initialize(testSnapshot())

	// GBP/JPY has neither a direct nor a two-leg chain to USD in this
	// minimal snapshot (only EURUSD is known), so its conversion can't resolve.
	open := bidask.Bidask{ID: "GBPJPY", Bid: 195.00, Ask: 195.05, Base: "GBP", Quote: "JPY"}
	unresolvable := positions.New("pos-3", "trader-1", "acct-1", "GBP", "JPY", "USD", "GBPJPY", 1, 100000, true, open, open)

	if _, err := e.InsertOrUpdatePosition(unresolvable); err == nil {
		t.Fatalf("expected ErrProfitPriceNotFound, got nil")
	}
	if _, ok := e.GetPosition("pos-3"); ok {
		t.Fatalf("expected pos-3 not to be stored after a failed insert")
	}
}

func TestRecalculateAllReappliesSettingsWithoutNewTick(t *testing.T) {
	e, _ := Initialize(testSnapshot())

	positionUpdates, errs, accountUpdates := e.RecalculateAll()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(positionUpdates) != 1 {
		t.Fatalf("expected 1 position update, got %d", len(positionUpdates))
	}
	if len(accountUpdates) != 1 {
		t.Fatalf("expected 1 account update, got %d", len(accountUpdates))
	}
}

func TestTradingSettingsChangedDoesNotForceRecalculation(t *testing.T) {
	e, _ := Initialize(testSnapshot())

	group := settings.TradingGroupSettings{
		ID: "standard",
		Instruments: map[string]settings.InstrumentSettings{
			"EURUSD": {Digits: 4},
		},
		Collaterals: map[string]settings.CollateralSettings{"USD": {Digits: 0}},
	}

	affected := e.TradingSettingsChanged(group)
	if len(affected) != 1 || affected[0] != "acct-1" {
		t.Fatalf("expected [acct-1], got %v", affected)
	}

	// Settings changed without any price tick: the dirty-set is still
	// empty, so a recalculation cycle reports no updates.
	result := e.RecalculateAccordingToUpdates()
	if len(result.PositionUpdates) != 0 {
		t.Fatalf("expected trading_settings_changed to not force a recalculation, got %d position updates", len(result.PositionUpdates))
	}
}
