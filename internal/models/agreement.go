package models

import "time"

// Threshold is the weather parameter at or above which the insured event counts as occurred
const Threshold = 50

// AgreementStatus is the lifecycle state of an agreement
type AgreementStatus string

const (
	StatusPending        AgreementStatus = "pending"
	StatusResultRecorded AgreementStatus = "result_recorded"
	StatusClaimed        AgreementStatus = "claimed"
	StatusRefunded       AgreementStatus = "refunded"
)

// Terminal reports whether no further lifecycle transition is possible
func (s AgreementStatus) Terminal() bool {
	return s == StatusClaimed || s == StatusRefunded
}

// Agreement is a single insurance contract between a customer and an insurer
type Agreement struct {
	// Identification
	Key      string `json:"agreement_key"`
	DappName string `json:"dapp_name"` // config name at creation time

	// Parties
	Customer string `json:"customer"`
	Insurer  string `json:"insurer"`
	Funder   string `json:"funder"` // account debited at creation

	// Insured event
	Location  string `json:"location"`
	Timestamp int64  `json:"timestamp"`  // naive local unix seconds
	UTCOffset int64  `json:"utc_offset"` // hours

	// Financials
	Amount  int64 `json:"amount"`
	Premium int64 `json:"premium"`
	Fee     int64 `json:"fee"`
	Locked  int64 `json:"locked"` // value still held in escrow

	// Outcome
	Status       AgreementStatus `json:"status"`
	WeatherParam int64           `json:"weather_param"`
	OracleCost   int64           `json:"oracle_cost"`
	Payee        string          `json:"payee,omitempty"`
	Payout       int64           `json:"payout,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventTime returns the absolute UTC time of the insured event
func (a *Agreement) EventTime() time.Time {
	return time.Unix(a.Timestamp-a.UTCOffset*3600, 0).UTC()
}

// EventOccurred reports whether the recorded weather parameter reaches the threshold
func (a *Agreement) EventOccurred() bool {
	return a.WeatherParam >= Threshold
}

// Total is the value locked when the agreement is created. ok is false when the sum overflows int64.
func (a *Agreement) Total() (total int64, ok bool) {
	return SumAmounts(a.Amount, a.Premium, a.Fee)
}
