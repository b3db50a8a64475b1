package models

import "encoding/json"

// Relay event names.
const (
	EventConnected = "connected"
	EventDraw      = "draw"
	EventClear     = "clear"
	EventLLMDraw   = "llm-draw"
)

// WSMessage is the frame exchanged on the relay socket.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ConnectedEvent struct {
	ClientID string `json:"clientId"`
}
