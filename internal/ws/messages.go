// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines the two message shapes broadcast to connected
// clients: every settlement-engine event fans out as one EventMessage,
// errors go to a single client as an ErrorMessage.
package ws

import (
	"encoding/json"
	"time"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeEvent MsgType = "event"
	MsgTypeError MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// EventMessage — one per settlement-engine state transition.
// ──────────────────────────────────────────────────────────────────────────────

// EventMessage wraps an events.Kind string and its JSON payload, broadcast
// to every connected client as soon as the originating transaction commits.
// Payload stays raw JSON rather than a typed struct — the hub has no
// package dependency on internal/events, the same import-cycle-avoiding
// shape service.Broadcaster itself uses.
type EventMessage struct {
	Type      MsgType         `json:"type"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func marshalEventMessage(kind, payload string) ([]byte, error) {
	raw := json.RawMessage(payload)
	if !json.Valid(raw) {
		raw = json.RawMessage(`{}`)
	}
	return json.Marshal(EventMessage{
		Type:      MsgTypeEvent,
		Kind:      kind,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}

func marshalErrorMessage(code, message string) ([]byte, error) {
	return json.Marshal(ErrorMessage{Type: MsgTypeError, Code: code, Message: message})
}
