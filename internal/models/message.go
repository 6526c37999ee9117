package models

import "time"

type MessageType string

const (
	MessageText        MessageType = "text"
	MessageImage       MessageType = "image"
	MessageFile        MessageType = "file"
	MessageRecipeShare MessageType = "recipe_share"
	MessageBoxShare    MessageType = "box_share"
	MessageLocation    MessageType = "location"
)

type Message struct {
	ID             string         `bson:"_id,omitempty" json:"id"`
	ConversationID string         `bson:"conversation_id" json:"conversation_id"`
	SenderID       string         `bson:"sender_id" json:"sender_id"`
	Content        string         `bson:"content" json:"content"`
	Type           MessageType    `bson:"type" json:"type"`
	Metadata       map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	ReplyToID      string         `bson:"reply_to_id,omitempty" json:"reply_to_id,omitempty"`
	Edited         bool           `bson:"edited" json:"edited"`
	EditedAt       *time.Time     `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updated_at"`
}

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// rank orders statuses for the optional monotonicity check.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// MessageStatusRecord tracks per-recipient delivery state, unique per
// (message_id, user_id).
type MessageStatusRecord struct {
	MessageID string        `bson:"message_id" json:"message_id"`
	UserID    string        `bson:"user_id" json:"user_id"`
	Status    MessageStatus `bson:"status" json:"status"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
}

// MessageReaction is unique per (message_id, user_id, emoji).
type MessageReaction struct {
	MessageID string    `bson:"message_id" json:"message_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Emoji     string    `bson:"emoji" json:"emoji"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
