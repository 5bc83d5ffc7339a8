package exchange

import "errors"

// Rejection reasons surfaced by the service. Every one of them aborts the
// whole operation; no partial settlement is ever committed.
var (
	// ErrOrderNotFound is returned when the referenced order id does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderClosed is returned when the order is no longer OPEN.
	ErrOrderClosed = errors.New("order is closed or cancelled")

	// ErrSelfTrade is returned when a taker tries to fill their own order.
	ErrSelfTrade = errors.New("cannot trade with yourself")

	// ErrInvalidAmount is returned for amounts that are zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidRate is returned for rates that are zero or negative.
	ErrInvalidRate = errors.New("rate must be positive")

	// ErrInvalidSide is returned for order sides other than BUY or SELL.
	ErrInvalidSide = errors.New("side must be BUY or SELL")

	// ErrSameCurrency is returned when an order names the same currency on
	// both legs.
	ErrSameCurrency = errors.New("currency and target currency must differ")

	// ErrInsufficientQuantity is returned when a fill asks for more than the
	// order's remaining unfilled amount.
	ErrInsufficientQuantity = errors.New("fill amount exceeds remaining order quantity")

	// ErrInsufficientFunds is returned when the buyer or the seller lacks the
	// balance a fill requires.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotOrderOwner is returned when someone other than the maker tries to
	// cancel an order.
	ErrNotOrderOwner = errors.New("order belongs to another user")
)
