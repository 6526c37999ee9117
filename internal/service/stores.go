package service

import (
	"context"
	"time"

	"github.com/mccartheney/food-loop-sub002/internal/models"
)

// Store interfaces are declared where they are consumed so tests can swap in
// mocks; internal/repository provides the mongo implementations.

type ConversationStore interface {
	InsertConversation(ctx context.Context, c *models.Conversation) error
	ConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	ConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	SetLastMessage(ctx context.Context, convID string, msg *models.Message) error
}

type MessageStore interface {
	InsertMessage(ctx context.Context, m *models.Message) error
	MessageByID(ctx context.Context, id string) (*models.Message, error)
	MessagesByConversation(ctx context.Context, convID string, limit, skip int64) ([]*models.Message, error)
	MarkEdited(ctx context.Context, id, content string, at time.Time) error
	StatusFor(ctx context.Context, messageID, userID string) (*models.MessageStatusRecord, error)
	UpsertStatus(ctx context.Context, rec *models.MessageStatusRecord) error
	InsertReaction(ctx context.Context, reaction *models.MessageReaction) error
	DeleteReaction(ctx context.Context, messageID, userID, emoji string) error
	ReactionsForMessage(ctx context.Context, messageID string) ([]*models.MessageReaction, error)
}

type PresenceStore interface {
	UpsertPresence(ctx context.Context, p *models.UserPresence) error
	PresenceFor(ctx context.Context, userID string) (*models.UserPresence, error)
	UpsertTyping(ctx context.Context, convID, userID string, at time.Time) error
	DeleteTyping(ctx context.Context, convID, userID string) error
	TypingByConversation(ctx context.Context, convID string) ([]*models.TypingIndicator, error)
	TypingByUser(ctx context.Context, userID string) ([]*models.TypingIndicator, error)
	DeleteTypingByUser(ctx context.Context, userID string) error
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	NotificationsForUser(ctx context.Context, userID string, limit, skip int64, now time.Time) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string, now time.Time) (int64, error)
	SettingsFor(ctx context.Context, userID string) (*models.NotificationSettings, error)
	UpsertSettings(ctx context.Context, s *models.NotificationSettings) error
}

// EventPublisher pushes durable message events onto the broker for the
// notification pipeline.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, msg *models.Message, participants []string) error
}

// LivenessCache is the cheap presence mirror consulted when deciding whether
// a recipient needs an offline notification.
type LivenessCache interface {
	SetPresence(ctx context.Context, userID string, online bool, ttl time.Duration) error
	IsOnline(ctx context.Context, userID string) (bool, error)
}
