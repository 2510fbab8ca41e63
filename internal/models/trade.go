package models

import "gorm.io/gorm"

// Trade sides accepted by the executor.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade represents one executed paper trade in the trade log.
type Trade struct {
	gorm.Model `json:"-"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // "BUY" or "SELL"
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Time       string  `json:"time"` // UTC, RFC 3339
}
