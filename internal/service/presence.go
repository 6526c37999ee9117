package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mccartheney/food-loop-sub002/internal/apperr"
	"github.com/mccartheney/food-loop-sub002/internal/models"
)

// PresenceService tracks short-lived liveness state, decoupled from message
// durability. Mongo holds the record of truth; redis mirrors it with a TTL
// for cheap online checks.
type PresenceService struct {
	store     PresenceStore
	cache     LivenessCache
	typingTTL time.Duration
	cacheTTL  time.Duration
	logger    *zap.SugaredLogger
}

func NewPresenceService(store PresenceStore, cache LivenessCache, typingTTL time.Duration, logger *zap.SugaredLogger) *PresenceService {
	if typingTTL <= 0 {
		typingTTL = 5 * time.Second
	}
	return &PresenceService{
		store:     store,
		cache:     cache,
		typingTTL: typingTTL,
		cacheTTL:  24 * time.Hour,
		logger:    logger,
	}
}

type PresenceUpdate struct {
	IsOnline      bool
	Status        string
	CurrentDevice string
}

// UpdateUserPresence upserts the presence record. LastSeen always refreshes
// to now; for an offline transition that freezes it at the disconnect time.
func (s *PresenceService) UpdateUserPresence(ctx context.Context, userID string, up PresenceUpdate) (*models.UserPresence, error) {
	if userID == "" {
		return nil, apperr.Validationf("user_id is required")
	}
	now := time.Now().UTC()
	p := &models.UserPresence{
		UserID:        userID,
		IsOnline:      up.IsOnline,
		LastSeen:      now,
		Status:        up.Status,
		CurrentDevice: up.CurrentDevice,
		UpdatedAt:     now,
	}
	if err := s.store.UpsertPresence(ctx, p); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetPresence(ctx, userID, up.IsOnline, s.cacheTTL); err != nil {
			s.logger.Warnw("presence mirror update failed", "user", userID, "err", err)
		}
	}
	return p, nil
}

func (s *PresenceService) GetPresence(ctx context.Context, userID string) (*models.UserPresence, error) {
	return s.store.PresenceFor(ctx, userID)
}

// SetTyping upserts the indicator with a fresh timestamp, or deletes the row
// outright when typing stops.
func (s *PresenceService) SetTyping(ctx context.Context, convID, userID string, isTyping bool) error {
	if convID == "" || userID == "" {
		return apperr.Validationf("conversation_id and user_id are required")
	}
	if isTyping {
		return s.store.UpsertTyping(ctx, convID, userID, time.Now().UTC())
	}
	return s.store.DeleteTyping(ctx, convID, userID)
}

// TypingUsers applies the read-time freshness filter: a stored row only
// counts while its last_typing is within the TTL. Stale rows stay in storage
// until overwritten or deleted.
func (s *PresenceService) TypingUsers(ctx context.Context, convID string) ([]string, error) {
	rows, err := s.store.TypingByConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var users []string
	for _, row := range rows {
		if row.Fresh(now, s.typingTTL) {
			users = append(users, row.UserID)
		}
	}
	return users, nil
}

// ClearTyping drops every indicator a user owns and returns the affected
// conversation ids so the gateway can broadcast typing-stopped events.
func (s *PresenceService) ClearTyping(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.store.TypingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteTypingByUser(ctx, userID); err != nil {
		return nil, err
	}
	var convs []string
	for _, row := range rows {
		convs = append(convs, row.ConversationID)
	}
	return convs, nil
}
