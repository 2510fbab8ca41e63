package models

// AccountSnapshot is the current state of the simulated account.
// Equity is always cash plus the marked value of open positions.
type AccountSnapshot struct {
	Cash           float64            `json:"cash"`
	Equity         float64            `json:"equity"`
	PositionsValue float64            `json:"positions_value"`
	UnrealizedPnL  float64            `json:"unrealized_pnl"`
	Positions      map[string]float64 `json:"positions"`
}

// Performance holds the running counters for the current session.
// There is no day-boundary rollover; the counters reset only with the account.
type Performance struct {
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	TradesCount   int     `json:"trades_count"`
}

// RiskSettings are stored and served but not enforced in the trade path.
type RiskSettings struct {
	PositionSize float64 `json:"position_size"`
	MaxDailyLoss float64 `json:"max_daily_loss"`
	StopLossPct  float64 `json:"stop_loss_pct"`
}

// RiskUpdate is a partial update to RiskSettings; nil fields are left unchanged.
type RiskUpdate struct {
	PositionSize *float64
	MaxDailyLoss *float64
	StopLossPct  *float64
}
