package trader

import "errors"

// Request-scoped trade failures. All of these leave the account, the trade
// log and the performance counters untouched.
var (
	ErrInvalidSide          = errors.New("side must be BUY or SELL")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrPriceUnavailable     = errors.New("no price available for symbol")
	ErrInsufficientFunds    = errors.New("insufficient cash for buy")
	ErrInsufficientPosition = errors.New("insufficient position for sell")
)
