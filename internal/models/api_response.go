package models

import (
	"time"
)

// InvokeRequest is the JSON body of POST /invoke
type InvokeRequest struct {
	Operation string `json:"operation"`
	// Args are base64 encoded XDR ScVal values
	Args []string `json:"args"`
	// Signatures maps a Stellar account ID to a base64 ed25519 signature over that signer's payload
	Signatures map[string]string `json:"signatures,omitempty"`
	// Sequences maps each signer to the sequence it signed at (GET /sequences/{account}); absent means 0
	Sequences map[string]uint64 `json:"sequences,omitempty"`
}

// SequenceResponse is the next signing sequence of an account
type SequenceResponse struct {
	Account  string `json:"account"`
	Sequence uint64 `json:"sequence"`
}

// InvokeResponse mirrors dispatch.Result on the wire
type InvokeResponse struct {
	Operation string      `json:"operation"`
	OK        bool        `json:"ok"`
	Value     interface{} `json:"value,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// AgreementResponse represents an agreement with derived fields for API responses
type AgreementResponse struct {
	Agreement
	EventTimeUTC  time.Time `json:"event_time_utc"`
	EventOccurred *bool     `json:"event_occurred,omitempty"` // nil until a result is recorded
}

// ConfigResponse represents the deployed configuration
type ConfigResponse struct {
	GlobalConfig
	Owner          string `json:"owner"`
	OrderingHolds  bool   `json:"ordering_holds"`
	ThresholdValue int    `json:"threshold"`
}

// EventsResponse represents a list of events
type EventsResponse struct {
	AgreementKey string          `json:"agreement_key,omitempty"`
	Events       []ContractEvent `json:"events"`
	Total        int             `json:"total"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
