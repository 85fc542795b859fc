package models

import "time"

// AccountSnapshot is the dashboard aggregate built from three upstream
// calls: account balance, current-month CDRs and origination gateways.
type AccountSnapshot struct {
	Balance        float64   `json:"balance"`
	Currency       string    `json:"currency"`
	CallsThisMonth int       `json:"calls_this_month"`
	TotalDuration  string    `json:"total_duration"` // "3h 27m"
	ActiveGateways int       `json:"active_gateways"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// LiveCall is one active call as reported by the switch, with attribute
// keys already canonicalized by the gateway.
type LiveCall struct {
	ID          string  `json:"id"`
	SrcNumber   string  `json:"src_number"`
	DstNumber   string  `json:"dst_number"`
	Duration    int     `json:"duration"`
	DestRate    float64 `json:"destination_rate"`
	CountryName string  `json:"country_name"`
}
