package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mccartheney/food-loop-sub002/internal/apperr"
	"github.com/mccartheney/food-loop-sub002/internal/metrics"
	"github.com/mccartheney/food-loop-sub002/internal/models"
)

// NotificationService manages the poll-based alert store.
type NotificationService struct {
	store    NotificationStore
	liveness LivenessCache
	cfg      NotificationConfig
	logger   *zap.SugaredLogger
}

type NotificationConfig struct {
	DefaultPageSize int64
	MaxPageSize     int64
}

func NewNotificationService(store NotificationStore, liveness LivenessCache, cfg NotificationConfig, logger *zap.SugaredLogger) *NotificationService {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	return &NotificationService{store: store, liveness: liveness, cfg: cfg, logger: logger}
}

type CreateNotificationInput struct {
	UserID    string
	Type      models.NotificationType
	Title     string
	Message   string
	Data      map[string]any
	ActionURL string
	ExpiresAt *time.Time
}

// Create writes a notification unless the user has the category disabled.
// A nil return with created=false is a deliberate drop, not an error.
func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (*models.Notification, error) {
	if in.UserID == "" {
		return nil, apperr.Validationf("user_id is required")
	}
	if !in.Type.Valid() {
		return nil, apperr.Validationf("unknown notification type %q", in.Type)
	}
	if in.Title == "" {
		return nil, apperr.Validationf("title is required")
	}

	settings, err := s.Settings(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !settings.Allows(in.Type) {
		s.logger.Debugw("notification dropped by user settings", "user", in.UserID, "type", in.Type)
		return nil, nil
	}

	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Data:      in.Data,
		ActionURL: in.ActionURL,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: in.ExpiresAt,
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.Inc()
	return n, nil
}

// List returns unexpired notifications, newest first. Expiry is re-checked
// on the returned page so an entry that lapsed mid-query never leaks out.
func (s *NotificationService) List(ctx context.Context, userID string, limit, skip int64) ([]*models.Notification, error) {
	if userID == "" {
		return nil, apperr.Validationf("user_id is required")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if skip < 0 {
		skip = 0
	}
	now := time.Now().UTC()
	rows, err := s.store.NotificationsForUser(ctx, userID, limit, skip, now)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, n := range rows {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validationf("notification id is required")
	}
	return s.store.MarkRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.Validationf("user_id is required")
	}
	return s.store.MarkAllRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperr.Validationf("user_id is required")
	}
	return s.store.CountUnread(ctx, userID, time.Now().UTC())
}

// Settings returns the stored preferences, falling back to everything-on
// defaults for users who never saved any.
func (s *NotificationService) Settings(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	settings, err := s.store.SettingsFor(ctx, userID)
	if apperr.IsNotFound(err) {
		return models.DefaultNotificationSettings(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *NotificationService) UpdateSettings(ctx context.Context, settings *models.NotificationSettings) (*models.NotificationSettings, error) {
	if settings.UserID == "" {
		return nil, apperr.Validationf("user_id is required")
	}
	settings.PushTokens = dedupe(settings.PushTokens)
	settings.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// NotifyMessageReceived creates MESSAGE_RECEIVED notifications for every
// participant of a just-sent message who is not currently online. Fed by the
// broker consumer, not the request path.
func (s *NotificationService) NotifyMessageReceived(ctx context.Context, msg *models.Message, participants []string) error {
	for _, userID := range participants {
		if userID == msg.SenderID {
			continue
		}
		if s.liveness != nil {
			online, err := s.liveness.IsOnline(ctx, userID)
			if err != nil {
				s.logger.Warnw("liveness check failed", "user", userID, "err", err)
			} else if online {
				continue
			}
		}
		_, err := s.Create(ctx, CreateNotificationInput{
			UserID:  userID,
			Type:    models.NotifMessageReceived,
			Title:   "New message",
			Message: preview(msg),
			Data: map[string]any{
				"conversation_id": msg.ConversationID,
				"message_id":      msg.ID,
				"sender_id":       msg.SenderID,
			},
			ActionURL: "/messages?conversationId=" + msg.ConversationID,
		})
		if err != nil {
			s.logger.Warnw("message notification failed", "user", userID, "err", err)
		}
	}
	return nil
}

func preview(msg *models.Message) string {
	switch msg.Type {
	case models.MessageText:
		if len(msg.Content) > 80 {
			return msg.Content[:80] + "..."
		}
		return msg.Content
	case models.MessageImage:
		return "sent a photo"
	case models.MessageFile:
		return "sent a file"
	case models.MessageRecipeShare:
		return "shared a recipe"
	case models.MessageBoxShare:
		return "shared a food box"
	case models.MessageLocation:
		return "shared a location"
	}
	return "sent a message"
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
