package types

import (
	"encoding/json"
	"time"
)

// Message kinds exchanged between the observer, the bridge, the control
// surface and the coordinator.
const (
	KindTradePlanCaptured = "trade-plan-captured"
	KindToggleCapture     = "toggle-capture"
	KindGetStatus         = "get-status"
)

// Failure reasons carried in a CaptureResult.
const (
	ReasonDisabled         = "disabled"
	ReasonInvalidData      = "invalid-data"
	ReasonPersistenceError = "persistence-error"
	ReasonParseError       = "parse-error"
	ReasonRelayError       = "relay-error"
)

// FallbackTicker is used when a payload has no usable ticker field.
const FallbackTicker = "UNKNOWN"

// CaptureEvent is one observed trade plan response. It is passed by value and
// never stored.
type CaptureEvent struct {
	Payload    json.RawMessage
	SourceURL  string
	CapturedAt time.Time
}

// CaptureResult is the coordinator's verdict for a single CaptureEvent.
type CaptureResult struct {
	Succeeded    bool   `json:"succeeded"`
	Reason       string `json:"reason,omitempty"`
	SavedName    string `json:"savedName,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Ticker       string `json:"ticker,omitempty"`
	Location     string `json:"location,omitempty"`
}

// CaptureMessage is the wire form of a CaptureEvent.
type CaptureMessage struct {
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	SourceURL  string          `json:"sourceUrl"`
	CapturedAt int64           `json:"capturedAt"`
}

// NewCaptureMessage converts an event to its wire form with millisecond time.
func NewCaptureMessage(ev CaptureEvent) CaptureMessage {
	return CaptureMessage{
		Kind:       KindTradePlanCaptured,
		Payload:    ev.Payload,
		SourceURL:  ev.SourceURL,
		CapturedAt: ev.CapturedAt.UnixMilli(),
	}
}

// Event converts the wire form back to a CaptureEvent. A missing capturedAt
// leaves CapturedAt zero.
func (m CaptureMessage) Event() CaptureEvent {
	ev := CaptureEvent{Payload: m.Payload, SourceURL: m.SourceURL}
	if m.CapturedAt > 0 {
		ev.CapturedAt = time.UnixMilli(m.CapturedAt)
	}
	return ev
}

// ToggleResult answers a toggle-capture message.
type ToggleResult struct {
	Succeeded bool `json:"succeeded"`
	Enabled   bool `json:"enabled"`
}

// StatusResult answers a get-status query.
type StatusResult struct {
	Succeeded bool     `json:"succeeded"`
	Settings  Settings `json:"settings"`
	Enabled   bool     `json:"enabled"`
}

// Message is the generic envelope used when the kind is not known up front.
type Message struct {
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SourceURL  string          `json:"sourceUrl,omitempty"`
	CapturedAt int64           `json:"capturedAt,omitempty"`
	Enabled    *bool           `json:"enabled,omitempty"`
}
