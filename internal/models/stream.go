package models

// PricesMessage is the tick pushed to every streaming session while the
// feed is running.
type PricesMessage struct {
	Type      string             `json:"type"` // always "prices"
	Timestamp string             `json:"timestamp"`
	Data      map[string]float64 `json:"data"`
}

// StatusMessage is the terminal notice pushed when the feed stops.
type StatusMessage struct {
	Type   string `json:"type"` // always "status"
	Status string `json:"status"`
}
