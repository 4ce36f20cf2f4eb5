package cashoutService

import "errors"

var (
	// ErrInvalidWager marks a wager with a non-positive stake or odds
	// below 1.0. No valuation is computed for it.
	ErrInvalidWager = errors.New("invalid wager: stake must be positive and odds >= 1.0")

	// ErrWagerClosed marks a valuation or settlement attempt against a
	// wager that is no longer pending.
	ErrWagerClosed = errors.New("wager is no longer pending")

	// ErrSettlementConflict fires when the wager's result changed
	// between valuation and the settlement write. The attempt is
	// aborted without side effects.
	ErrSettlementConflict = errors.New("bet no longer eligible for cash-out")

	// ErrInvalidPercentage marks a partial cash-out request outside 1-100.
	ErrInvalidPercentage = errors.New("partial percentage must be between 1 and 100")
)
