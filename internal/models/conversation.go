package models

import "time"

type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Conversation is a direct or group chat. LastMessage is a denormalized
// snapshot for list previews; the messages collection stays authoritative.
type Conversation struct {
	ID           string           `bson:"_id,omitempty" json:"id"`
	Type         ConversationType `bson:"type" json:"type"`
	Participants []string         `bson:"participants" json:"participants"`
	Name         string           `bson:"name,omitempty" json:"name,omitempty"`
	Image        string           `bson:"image,omitempty" json:"image,omitempty"`
	LastMessage  *Message         `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastActivity time.Time        `bson:"last_activity" json:"last_activity"`
	IsActive     bool             `bson:"is_active" json:"is_active"`
	CreatedBy    string           `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
