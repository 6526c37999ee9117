package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/mccartheney/food-loop-sub002/internal/models"
	"github.com/mccartheney/food-loop-sub002/internal/service"
)

func newPresenceService(store *MockPresenceStore, cache *MockLiveness) *service.PresenceService {
	var lc service.LivenessCache
	if cache != nil {
		lc = cache
	}
	return service.NewPresenceService(store, lc, 5*time.Second, zap.NewNop().Sugar())
}

func TestUpdateUserPresenceRefreshesLastSeen(t *testing.T) {
	store := new(MockPresenceStore)
	cache := new(MockLiveness)
	store.On("UpsertPresence", mock.Anything, mock.AnythingOfType("*models.UserPresence")).Return(nil)
	cache.On("SetPresence", mock.Anything, "user-1", false, mock.AnythingOfType("time.Duration")).Return(nil)

	svc := newPresenceService(store, cache)
	before := time.Now().UTC()
	p, err := svc.UpdateUserPresence(context.Background(), "user-1", service.PresenceUpdate{IsOnline: false})

	assert.NoError(t, err)
	assert.False(t, p.IsOnline)
	// last_seen refreshes on every transition, including going offline
	assert.False(t, p.LastSeen.Before(before))
	cache.AssertCalled(t, "SetPresence", mock.Anything, "user-1", false, mock.AnythingOfType("time.Duration"))
}

func TestSetTypingTrueUpserts(t *testing.T) {
	store := new(MockPresenceStore)
	store.On("UpsertTyping", mock.Anything, "conv-1", "user-1", mock.AnythingOfType("time.Time")).Return(nil)

	svc := newPresenceService(store, nil)
	assert.NoError(t, svc.SetTyping(context.Background(), "conv-1", "user-1", true))
	store.AssertCalled(t, "UpsertTyping", mock.Anything, "conv-1", "user-1", mock.AnythingOfType("time.Time"))
}

func TestSetTypingFalseDeletesRow(t *testing.T) {
	store := new(MockPresenceStore)
	store.On("DeleteTyping", mock.Anything, "conv-1", "user-1").Return(nil)

	svc := newPresenceService(store, nil)
	assert.NoError(t, svc.SetTyping(context.Background(), "conv-1", "user-1", false))
	store.AssertCalled(t, "DeleteTyping", mock.Anything, "conv-1", "user-1")
	store.AssertNotCalled(t, "UpsertTyping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTypingUsersAppliesFreshnessFilter(t *testing.T) {
	now := time.Now().UTC()
	store := new(MockPresenceStore)
	store.On("TypingByConversation", mock.Anything, "conv-1").Return([]*models.TypingIndicator{
		{ConversationID: "conv-1", UserID: "fresh", IsTyping: true, LastTyping: now.Add(-2 * time.Second)},
		{ConversationID: "conv-1", UserID: "stale", IsTyping: true, LastTyping: now.Add(-10 * time.Second)},
		{ConversationID: "conv-1", UserID: "flagged-off", IsTyping: false, LastTyping: now},
	}, nil)

	svc := newPresenceService(store, nil)
	users, err := svc.TypingUsers(context.Background(), "conv-1")

	assert.NoError(t, err)
	// a stale row stays in storage but never reads as typing
	assert.Equal(t, []string{"fresh"}, users)
}

func TestClearTypingReturnsAffectedConversations(t *testing.T) {
	store := new(MockPresenceStore)
	store.On("TypingByUser", mock.Anything, "user-1").Return([]*models.TypingIndicator{
		{ConversationID: "conv-1", UserID: "user-1", IsTyping: true},
		{ConversationID: "conv-2", UserID: "user-1", IsTyping: true},
	}, nil)
	store.On("DeleteTypingByUser", mock.Anything, "user-1").Return(nil)

	svc := newPresenceService(store, nil)
	convs, err := svc.ClearTyping(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"conv-1", "conv-2"}, convs)
	store.AssertCalled(t, "DeleteTypingByUser", mock.Anything, "user-1")
}
