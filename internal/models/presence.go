package models

import "time"

// UserPresence has one record per user. When IsOnline is false, LastSeen
// stays frozen at the disconnect time.
type UserPresence struct {
	UserID        string    `bson:"_id" json:"user_id"`
	IsOnline      bool      `bson:"is_online" json:"is_online"`
	LastSeen      time.Time `bson:"last_seen" json:"last_seen"`
	Status        string    `bson:"status,omitempty" json:"status,omitempty"`
	CurrentDevice string    `bson:"current_device,omitempty" json:"current_device,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// TypingIndicator is unique per (conversation_id, user_id). A row only means
// "typing" while LastTyping is fresh; stale rows persist until overwritten or
// deleted.
type TypingIndicator struct {
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	IsTyping       bool      `bson:"is_typing" json:"is_typing"`
	LastTyping     time.Time `bson:"last_typing" json:"last_typing"`
}

func (t *TypingIndicator) Fresh(now time.Time, ttl time.Duration) bool {
	return t.IsTyping && now.Sub(t.LastTyping) <= ttl
}
