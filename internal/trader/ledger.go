package trader

import (
	"fmt"

	"paper-trade-bot-go/internal/models"
)

// ledger owns the cash balance and the per-symbol position quantities of the
// simulated account. It is not safe for concurrent use; the Service serializes
// access to it.
type ledger struct {
	cash           float64
	positions      map[string]float64
	positionsValue float64
	equity         float64
}

func newLedger(balance float64) *ledger {
	return &ledger{
		cash:      balance,
		equity:    balance,
		positions: make(map[string]float64),
	}
}

// applyBuy debits cash and credits the position. The price paid is also the
// mark for the bought quantity, so equity stays cash + positions value.
func (l *ledger) applyBuy(symbol string, quantity, price float64) error {
	cost := quantity * price
	if cost > l.cash {
		return fmt.Errorf("%w: cost %.2f exceeds cash %.2f", ErrInsufficientFunds, cost, l.cash)
	}

	l.cash -= cost
	l.positions[symbol] += quantity
	l.positionsValue += cost
	l.equity = l.cash + l.positionsValue
	return nil
}

// applySell debits the position and credits cash with the proceeds.
func (l *ledger) applySell(symbol string, quantity, price float64) error {
	held := l.positions[symbol]
	if quantity > held {
		return fmt.Errorf("%w: requested %v exceeds held %v %s", ErrInsufficientPosition, quantity, held, symbol)
	}

	l.positions[symbol] -= quantity
	if l.positions[symbol] <= 0 {
		delete(l.positions, symbol)
	}
	proceeds := quantity * price
	l.cash += proceeds
	// The incremental value is an estimate until the next recompute; it must
	// never go negative or survive an emptied book.
	if l.positionsValue -= proceeds; l.positionsValue < 0 || len(l.positions) == 0 {
		l.positionsValue = 0
	}
	l.equity = l.cash + l.positionsValue
	return nil
}

// recompute marks every held position against the given prices. Symbols with
// no price contribute nothing this round; the next lookup that resolves them
// corrects the value.
func (l *ledger) recompute(prices map[string]float64) {
	var value float64
	for symbol, quantity := range l.positions {
		if price, ok := prices[symbol]; ok {
			value += quantity * price
		}
	}
	l.positionsValue = value
	l.equity = l.cash + l.positionsValue
}

// reset clears all positions and restores cash to the given balance.
func (l *ledger) reset(balance float64) {
	l.cash = balance
	l.equity = balance
	l.positionsValue = 0
	l.positions = make(map[string]float64)
}

// snapshot copies the ledger into its wire representation. UnrealizedPnL is
// always zero, there is no cost-basis tracking yet.
func (l *ledger) snapshot() models.AccountSnapshot {
	positions := make(map[string]float64, len(l.positions))
	for symbol, quantity := range l.positions {
		positions[symbol] = quantity
	}
	return models.AccountSnapshot{
		Cash:           l.cash,
		Equity:         l.equity,
		PositionsValue: l.positionsValue,
		UnrealizedPnL:  0,
		Positions:      positions,
	}
}
