package portfolio

import "errors"

var (
	// ErrInvalidOrder is returned for non-positive quantities or prices,
	// fee rates outside [0,1) and unknown sides.
	ErrInvalidOrder = errors.New("invalid order")

	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")

	// ErrZeroInitialCash is returned by ReturnRate when the ledger was
	// opened without any cash, the rate is undefined in that case.
	ErrZeroInitialCash = errors.New("initial cash is zero")

	ErrNotPending = errors.New("trade is not pending")
)
