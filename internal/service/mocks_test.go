package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mccartheney/food-loop-sub002/internal/models"
)

type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) InsertConversation(ctx context.Context, c *models.Conversation) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockConversationStore) ConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationStore) FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if c := args.Get(0); c != nil {
		return c.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationStore) ConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	args := m.Called(ctx, userID)
	if c := args.Get(0); c != nil {
		return c.([]*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationStore) SetLastMessage(ctx context.Context, convID string, msg *models.Message) error {
	return m.Called(ctx, convID, msg).Error(0)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageStore) MessageByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageStore) MessagesByConversation(ctx context.Context, convID string, limit, skip int64) ([]*models.Message, error) {
	args := m.Called(ctx, convID, limit, skip)
	if v := args.Get(0); v != nil {
		return v.([]*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageStore) MarkEdited(ctx context.Context, id, content string, at time.Time) error {
	return m.Called(ctx, id, content, at).Error(0)
}

func (m *MockMessageStore) StatusFor(ctx context.Context, messageID, userID string) (*models.MessageStatusRecord, error) {
	args := m.Called(ctx, messageID, userID)
	if v := args.Get(0); v != nil {
		return v.(*models.MessageStatusRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageStore) UpsertStatus(ctx context.Context, rec *models.MessageStatusRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockMessageStore) InsertReaction(ctx context.Context, reaction *models.MessageReaction) error {
	return m.Called(ctx, reaction).Error(0)
}

func (m *MockMessageStore) DeleteReaction(ctx context.Context, messageID, userID, emoji string) error {
	return m.Called(ctx, messageID, userID, emoji).Error(0)
}

func (m *MockMessageStore) ReactionsForMessage(ctx context.Context, messageID string) ([]*models.MessageReaction, error) {
	args := m.Called(ctx, messageID)
	if v := args.Get(0); v != nil {
		return v.([]*models.MessageReaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPresenceStore struct {
	mock.Mock
}

func (m *MockPresenceStore) UpsertPresence(ctx context.Context, p *models.UserPresence) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPresenceStore) PresenceFor(ctx context.Context, userID string) (*models.UserPresence, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*models.UserPresence), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPresenceStore) UpsertTyping(ctx context.Context, convID, userID string, at time.Time) error {
	return m.Called(ctx, convID, userID, at).Error(0)
}

func (m *MockPresenceStore) DeleteTyping(ctx context.Context, convID, userID string) error {
	return m.Called(ctx, convID, userID).Error(0)
}

func (m *MockPresenceStore) TypingByConversation(ctx context.Context, convID string) ([]*models.TypingIndicator, error) {
	args := m.Called(ctx, convID)
	if v := args.Get(0); v != nil {
		return v.([]*models.TypingIndicator), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPresenceStore) TypingByUser(ctx context.Context, userID string) ([]*models.TypingIndicator, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*models.TypingIndicator), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPresenceStore) DeleteTypingByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationStore) NotificationsForUser(ctx context.Context, userID string, limit, skip int64, now time.Time) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, limit, skip, now)
	if v := args.Get(0); v != nil {
		return v.([]*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationStore) MarkRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockNotificationStore) CountUnread(ctx context.Context, userID string, now time.Time) (int64, error) {
	args := m.Called(ctx, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationStore) SettingsFor(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*models.NotificationSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationStore) UpsertSettings(ctx context.Context, s *models.NotificationSettings) error {
	return m.Called(ctx, s).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMessageSent(ctx context.Context, msg *models.Message, participants []string) error {
	return m.Called(ctx, msg, participants).Error(0)
}

type MockLiveness struct {
	mock.Mock
}

func (m *MockLiveness) SetPresence(ctx context.Context, userID string, online bool, ttl time.Duration) error {
	return m.Called(ctx, userID, online, ttl).Error(0)
}

func (m *MockLiveness) IsOnline(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
