package ws

import (
	"encoding/json"
	"time"
)

// Envelope frames every client -> server event.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Ack is the per-call acknowledgment. Failures travel here, never as a
// closed connection.
type Ack struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Pong      bool   `json:"pong,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func okAck() Ack {
	return Ack{Success: true}
}

func errAck(msg string) Ack {
	return Ack{Success: false, Error: msg}
}

// ackEnvelope ties an Ack back to the event it answers.
type ackEnvelope struct {
	Event   string `json:"event"`
	For     string `json:"for"`
	Payload Ack    `json:"payload"`
}

func marshalAck(for_ string, ack Ack) []byte {
	b, _ := json.Marshal(ackEnvelope{Event: "ack", For: for_, Payload: ack})
	return b
}

type authenticatePayload struct {
	Token      string `json:"token"`
	DeviceInfo struct {
		Device   string `json:"device,omitempty"`
		Platform string `json:"platform,omitempty"`
	} `json:"device_info"`
}

type roomPayload struct {
	RoomID string `json:"room_id"`
}

type sendMessagePayload struct {
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	Type           string         `json:"type,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ReplyToID      string         `json:"reply_to_id,omitempty"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
}

type markReadPayload struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

type updatePresencePayload struct {
	Status   string `json:"status,omitempty"`
	IsOnline *bool  `json:"is_online,omitempty"`
}

// Server -> client event payloads.

type typingEvent struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

type presenceEvent struct {
	UserID    string    `json:"user_id"`
	IsOnline  bool      `json:"is_online"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type readEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
