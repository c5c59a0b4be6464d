// Package engine is the MicroEngine façade: the single entry point that
// wires the Price, Settings, Position, and Account caches together and
// enforces the fixed lock-acquisition order spec §5 mandates.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fxrisk/microengine/accounts"
	"github.com/fxrisk/microengine/bidask"
	"github.com/fxrisk/microengine/metrics"
	"github.com/fxrisk/microengine/microerr"
	"github.com/fxrisk/microengine/positions"
	"github.com/fxrisk/microengine/settings"
)

// Engine holds the four caches plus the dirty-set of instrument ids
// touched since the last recalculation cycle (spec §2, §5). Lock order
// when more than one of these must be held at once: dirty-set -> accounts
// -> positions -> settings -> prices. Each cache already guards itself
// with its own mutex; Engine never takes a second lock on a cache it
// already holds.
type Engine struct {
	dirtyMu    sync.Mutex
	dirtyPrice map[string]struct{}

	accounts  *accounts.Cache
	positions *positions.Cache
	settings  *settings.Cache
	prices    *bidask.PriceCache
}

// Snapshot is the initial population handed to Initialize (spec §4.7).
type Snapshot struct {
	Accounts     []*accounts.Account
	Positions    []*positions.Position
	Groups       []settings.TradingGroupSettings
	Collaterals  map[string]struct{}
	Instruments  []bidask.Instrument
	CachedPrices []bidask.Bidask
	WorkerCount  int
}

// Initialize builds every cache from a snapshot (spec §4.7), returning any
// non-fatal cross-rate resolution failures alongside the built engine.
func Initialize(snap Snapshot) (*Engine, []bidask.CrossCalculationsError) {
	accountsCache := accounts.NewCache(snap.Accounts)

	priceCache, crossErrs := bidask.NewPriceCache(snap.Collaterals, snap.Instruments, snap.CachedPrices, snap.WorkerCount)
	for _, err := range crossErrs {
		metrics.RecordCrossResolutionFailure(err.Base, err.Quote)
	}

	accountRefs := make([]settings.AccountRef, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accountRefs = append(accountRefs, a)
	}
	settingsCache := settings.NewCache(snap.Groups, accountRefs)

	positionsCache := positions.NewCache(priceCache, snap.Positions)

	metrics.SetLiveAccounts(len(snap.Accounts))
	metrics.SetLivePositions(len(snap.Positions))

	return &Engine{
		dirtyPrice: make(map[string]struct{}),
		accounts:   accountsCache,
		positions:  positionsCache,
		settings:   settingsCache,
		prices:     priceCache,
	}, crossErrs
}

// HandleNewPrice upserts each incoming price and marks its instrument id
// dirty for the next recalculation cycle (spec §4.1 handle_new, §5).
func (e *Engine) HandleNewPrice(ticks []bidask.Bidask) {
	e.dirtyMu.Lock()
	defer e.dirtyMu.Unlock()

	for _, tick := range ticks {
		e.dirtyPrice[tick.ID] = struct{}{}
		e.prices.HandleNew(tick)
		metrics.RecordPriceTick(tick.ID)
	}
}

// RecalculationResult is the output of one RecalculateAccordingToUpdates cycle.
type RecalculationResult struct {
	CycleID         string
	AccountUpdates  []accounts.Update
	PositionUpdates []positions.Update
}

// RecalculateAccordingToUpdates drains the dirty-set and runs the
// two-phase recalculation: every affected position first, then every
// account those positions belong to (spec §4.5, §4.6, §5). Two successive
// calls with no intervening price update drain an empty set and return a
// RecalculationResult with nil updates — recalculation is idempotent on a
// clean dirty-set.
func (e *Engine) RecalculateAccordingToUpdates() RecalculationResult {
	cycleID := uuid.NewString()
	start := time.Now()
	defer func() {
		metrics.ObserveRecalculationLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	dirty := e.drainDirtySet()
	metrics.ObserveDirtySetSizeAtDrain(len(dirty))
	if len(dirty) == 0 {
		return RecalculationResult{CycleID: cycleID}
	}

	var positionUpdates []positions.Update
	for _, priceID := range dirty {
		price, ok := e.prices.GetByID(priceID)
		if !ok {
			continue
		}
		positionUpdates = append(positionUpdates, e.positions.RecalculatePositionsPL(price, e.prices, e.settings)...)
	}

	affectedAccounts := dedupeAccountIDs(positionUpdates)
	accountUpdates := e.accounts.RecalculateAccountsData(e.settings, e.positions, affectedAccounts)

	return RecalculationResult{
		CycleID:         cycleID,
		AccountUpdates:  accountUpdates,
		PositionUpdates: positionUpdates,
	}
}

func (e *Engine) drainDirtySet() []string {
	e.dirtyMu.Lock()
	defer e.dirtyMu.Unlock()

	out := make([]string, 0, len(e.dirtyPrice))
	for id := range e.dirtyPrice {
		out = append(out, id)
	}
	e.dirtyPrice = make(map[string]struct{})
	return out
}

func dedupeAccountIDs(updates []positions.Update) []string {
	seen := make(map[string]struct{}, len(updates))
	out := make([]string, 0, len(updates))
	for _, u := range updates {
		if _, ok := seen[u.AccountID]; ok {
			continue
		}
		seen[u.AccountID] = struct{}{}
		out = append(out, u.AccountID)
	}
	return out
}

// InsertOrUpdatePosition adds or replaces a position, then recomputes and
// returns its account's Update (spec §4.7 insert_or_update_position).
// Fails with microerr.ErrProfitPriceNotFound if the position's
// quote->collateral conversion can't be resolved from the Price Cache, or
// microerr.ErrAccountNotFound if the position's account is unknown.
func (e *Engine) InsertOrUpdatePosition(p *positions.Position) (accounts.Update, error) {
	if err := e.positions.AddPosition(p, e.prices); err != nil {
		return accounts.Update{}, err
	}
	metrics.SetLivePositions(len(e.positions.GetAllPositions()))

	update, ok := e.accounts.RecalculateAccountData(e.settings, e.positions, p.AccountID)
	if !ok {
		return accounts.Update{}, microerr.ErrAccountNotFound
	}
	return update, nil
}

// RemovePosition deletes a position by id, then recomputes and returns its
// former account's Update against the now-smaller position set (spec §4.7
// remove_position). Fails with microerr.ErrPositionNotFound if the position
// was never present, or microerr.ErrAccountNotFound if its account is unknown.
func (e *Engine) RemovePosition(id string) (accounts.Update, error) {
	p, ok := e.positions.GetPosition(id)
	if !ok {
		return accounts.Update{}, microerr.ErrPositionNotFound
	}
	e.positions.RemovePosition(id)
	metrics.SetLivePositions(len(e.positions.GetAllPositions()))

	update, ok := e.accounts.RecalculateAccountData(e.settings, e.positions, p.AccountID)
	if !ok {
		return accounts.Update{}, microerr.ErrAccountNotFound
	}
	return update, nil
}

// RecalculateAll forces a full recalculation pass over every known position
// and then every known account, reapplying current group settings without
// requiring a fresh price tick per instrument. Intended for a bulk settings
// import, where TradingSettingsChanged's lighter touch (upsert plus the
// affected-account-id list) isn't enough on its own (spec §9 Open Question).
func (e *Engine) RecalculateAll() ([]positions.Update, []error, []accounts.Update) {
	positionUpdates, errs := e.positions.RecalculateAllPositions(e.prices, e.settings)
	accountUpdates := e.accounts.RecalculateAllAccounts(e.settings, e.positions)
	return positionUpdates, errs, accountUpdates
}

// InsertOrUpdateAccount adds or replaces an account, recalculating it
// immediately against its current positions (spec §4.7 insert_or_update_account).
func (e *Engine) InsertOrUpdateAccount(a *accounts.Account) (accounts.Update, error) {
	update, err := e.accounts.InsertOrUpdateAccount(a, e.settings, e.positions)
	if err != nil {
		return accounts.Update{}, err
	}
	metrics.SetLiveAccounts(len(e.accounts.GetAllAccounts()))
	return update, nil
}

// TradingSettingsChanged upserts a trading group's settings, returning the
// ids of every account currently mapped to it. It never forces a
// recalculation itself (spec §9 Open Question, resolved — see DESIGN.md);
// callers that want the new settings reflected immediately should follow
// up with RecalculateAll. RecalculateAccordingToUpdates only processes
// instrument ids marked dirty by HandleNewPrice, so it does not pick up a
// settings change on its own.
func (e *Engine) TradingSettingsChanged(g settings.TradingGroupSettings) []string {
	return e.settings.InsertOrReplaceSettings(g)
}

// GetAccount, GetPosition, GetPrice are read-through accessors for callers
// that need a single current value without waiting for a recalculation cycle.
func (e *Engine) GetAccount(id string) (*accounts.Account, bool) { return e.accounts.GetAccount(id) }
func (e *Engine) GetPosition(id string) (*positions.Position, bool) {
	return e.positions.GetPosition(id)
}
func (e *Engine) GetPrice(base, quote string) (bidask.Bidask, bool) {
	return e.prices.GetPrice(base, quote)
}
