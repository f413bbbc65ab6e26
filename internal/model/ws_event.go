package model

import "encoding/json"

const (
	EventMessageNew          = "message:new"
	EventMessageReaction     = "message:reaction"
	EventMessageStatus       = "message:status"
	EventConversationNew     = "conversation:new"
	EventConversationUpdated = "conversation:updated"
	EventPong                = "pong"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Envelope is a realtime event plus the routing facts needed to decide which
// connected clients may receive it. Only Event is sent on the wire.
type Envelope struct {
	Event    WSEvent `json:"event"`
	ClientID string  `json:"clientId"`
	Private  bool    `json:"private"`
}

type ReactionEvent struct {
	MessageID      string     `json:"messageId"`
	ConversationID string     `json:"conversationId"`
	Reactions      []Reaction `json:"reactions"`
}

type StatusEvent struct {
	MessageID      string         `json:"messageId"`
	ConversationID string         `json:"conversationId"`
	Status         DeliveryStatus `json:"status"`
}
