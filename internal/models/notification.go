package models

import "time"

type NotificationType string

const (
	NotifFriendRequest      NotificationType = "FRIEND_REQUEST"
	NotifFriendAccepted     NotificationType = "FRIEND_ACCEPTED"
	NotifMessageReceived    NotificationType = "MESSAGE_RECEIVED"
	NotifOrderStatusUpdate  NotificationType = "ORDER_STATUS_UPDATE"
	NotifPantryExpiry       NotificationType = "PANTRY_EXPIRY_WARNING"
	NotifRecipeShared       NotificationType = "RECIPE_SHARED"
	NotifBoxAvailable       NotificationType = "BOX_AVAILABLE"
	NotifSystemAnnouncement NotificationType = "SYSTEM_ANNOUNCEMENT"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifFriendRequest, NotifFriendAccepted, NotifMessageReceived,
		NotifOrderStatusUpdate, NotifPantryExpiry, NotifRecipeShared,
		NotifBoxAvailable, NotifSystemAnnouncement:
		return true
	}
	return false
}

type Notification struct {
	ID        string           `bson:"_id,omitempty" json:"id"`
	UserID    string           `bson:"user_id" json:"user_id"`
	Type      NotificationType `bson:"type" json:"type"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	Data      map[string]any   `bson:"data,omitempty" json:"data,omitempty"`
	IsRead    bool             `bson:"is_read" json:"is_read"`
	ActionURL string           `bson:"action_url,omitempty" json:"action_url,omitempty"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	ExpiresAt *time.Time       `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
}

// Expired records stay in storage; reads just skip them.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// NotificationSettings holds per-user preferences, one record per user.
type NotificationSettings struct {
	UserID          string    `bson:"_id" json:"user_id"`
	FriendActivity  bool      `bson:"friend_activity" json:"friend_activity"`
	Messages        bool      `bson:"messages" json:"messages"`
	Orders          bool      `bson:"orders" json:"orders"`
	Pantry          bool      `bson:"pantry" json:"pantry"`
	Recipes         bool      `bson:"recipes" json:"recipes"`
	Boxes           bool      `bson:"boxes" json:"boxes"`
	System          bool      `bson:"system" json:"system"`
	PushTokens      []string  `bson:"push_tokens,omitempty" json:"push_tokens,omitempty"`
	EmailFrequency  string    `bson:"email_frequency" json:"email_frequency"`
	QuietHoursStart string    `bson:"quiet_hours_start,omitempty" json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string    `bson:"quiet_hours_end,omitempty" json:"quiet_hours_end,omitempty"`
	Timezone        string    `bson:"timezone,omitempty" json:"timezone,omitempty"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// DefaultNotificationSettings enables every category.
func DefaultNotificationSettings(userID string) *NotificationSettings {
	return &NotificationSettings{
		UserID:         userID,
		FriendActivity: true,
		Messages:       true,
		Orders:         true,
		Pantry:         true,
		Recipes:        true,
		Boxes:          true,
		System:         true,
		EmailFrequency: "daily",
	}
}

// Allows reports whether the category behind a notification type is enabled.
func (s *NotificationSettings) Allows(t NotificationType) bool {
	switch t {
	case NotifFriendRequest, NotifFriendAccepted:
		return s.FriendActivity
	case NotifMessageReceived:
		return s.Messages
	case NotifOrderStatusUpdate:
		return s.Orders
	case NotifPantryExpiry:
		return s.Pantry
	case NotifRecipeShared:
		return s.Recipes
	case NotifBoxAvailable:
		return s.Boxes
	case NotifSystemAnnouncement:
		return s.System
	}
	return false
}
