// Package microerr defines the operational error taxonomy the engine
// surfaces to callers. There are no fatal errors in the core (spec §7) —
// every variant here is recoverable by the caller at the call site that
// produced it.
package microerr

import (
	"errors"
	"fmt"
)

var (
	// ErrProfitPriceNotFound is returned when a position's quote->collateral
	// conversion rate cannot be resolved, directly or via cross, at insert time.
	ErrProfitPriceNotFound = errors.New("profit price not found")

	// ErrAccountNotFound is returned when an operation references an account
	// id the Account Cache does not know about.
	ErrAccountNotFound = errors.New("account not found")

	// ErrPositionNotFound is returned when an operation references a position
	// id the Position Cache does not know about.
	ErrPositionNotFound = errors.New("position not found")
)

// AccountSettingsNotFoundError is returned when an account's trading_group
// does not resolve to a known TradingGroupSettings entry.
type AccountSettingsNotFoundError struct {
	GroupID string
}

func (e *AccountSettingsNotFoundError) Error() string {
	return fmt.Sprintf("account settings not found for group %q", e.GroupID)
}

// NewAccountSettingsNotFound builds an AccountSettingsNotFoundError for groupID.
func NewAccountSettingsNotFound(groupID string) error {
	return &AccountSettingsNotFoundError{GroupID: groupID}
}
