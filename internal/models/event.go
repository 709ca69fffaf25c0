package models

import "time"

// EventType identifies a lifecycle notification
type EventType string

const (
	EventDeploy       EventType = "deploy"
	EventConfigUpdate EventType = "config-update"
	EventAgreement    EventType = "agreement"
	EventResultNotice EventType = "result-notice"
	EventPayOut       EventType = "pay-out"
	EventTransfer     EventType = "transfer"
	EventRefundAll    EventType = "refund-all"
	EventDelete       EventType = "delete"
	EventDeposit      EventType = "deposit"
	EventWithdraw     EventType = "withdraw"
)

// ContractEvent is a notification emitted after a successful state change
type ContractEvent struct {
	// Identification
	EventID      string    `json:"event_id"`
	EventType    EventType `json:"event_type"`
	AgreementKey string    `json:"agreement_key,omitempty"`

	// Event data
	Data map[string]interface{} `json:"data,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// EventFilter provides criteria for filtering persisted events
type EventFilter struct {
	AgreementKey string
	EventType    EventType
	Limit        int
	Offset       int
}
