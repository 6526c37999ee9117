package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mccartheney/food-loop-sub002/internal/apperr"
	"github.com/mccartheney/food-loop-sub002/internal/config"
	"github.com/mccartheney/food-loop-sub002/internal/metrics"
	"github.com/mccartheney/food-loop-sub002/internal/models"
)

// ChatService owns the durable message lifecycle, independent of whether
// participants are connected in realtime.
type ChatService struct {
	convs    ConversationStore
	msgs     MessageStore
	producer EventPublisher
	cfg      config.ChatCfg
	logger   *zap.SugaredLogger
}

func NewChatService(convs ConversationStore, msgs MessageStore, producer EventPublisher, cfg config.ChatCfg, logger *zap.SugaredLogger) *ChatService {
	return &ChatService{convs: convs, msgs: msgs, producer: producer, cfg: cfg, logger: logger}
}

type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
	Type           models.MessageType
	Metadata       map[string]any
	ReplyToID      string
}

func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, apperr.Validationf("conversation_id and sender_id are required")
	}
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if in.Type == models.MessageText && in.Content == "" {
		return nil, apperr.Validationf("content is required for text messages")
	}

	conv, err := s.convs.ConversationByID(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(in.SenderID) {
		return nil, apperr.Unauthorizedf("user %s is not in conversation %s", in.SenderID, in.ConversationID)
	}
	if in.ReplyToID != "" {
		parent, err := s.msgs.MessageByID(ctx, in.ReplyToID)
		if err != nil {
			return nil, err
		}
		if parent.ConversationID != in.ConversationID {
			return nil, apperr.Validationf("reply target is in another conversation")
		}
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		Type:           in.Type,
		Metadata:       in.Metadata,
		ReplyToID:      in.ReplyToID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.msgs.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	// Best-effort snapshot refresh; the messages collection is authoritative
	// and a failure here is healed by the next successful send.
	if err := s.convs.SetLastMessage(ctx, conv.ID, msg); err != nil {
		s.logger.Warnw("last-message snapshot update failed", "conversation", conv.ID, "err", err)
	}
	if s.producer != nil {
		if err := s.producer.PublishMessageSent(ctx, msg, conv.Participants); err != nil {
			s.logger.Warnw("message event publish failed", "message", msg.ID, "err", err)
		}
	}
	return msg, nil
}

type CreateConversationInput struct {
	Participants []string
	Type         models.ConversationType
	CreatedBy    string
	Name         string
	Image        string
}

// CreateConversation creates a conversation. Direct conversations are
// deduplicated: a second call for the same unordered pair returns the
// existing one.
func (s *ChatService) CreateConversation(ctx context.Context, in CreateConversationInput) (*models.Conversation, error) {
	if len(in.Participants) < 2 {
		return nil, apperr.Validationf("a conversation needs at least 2 participants")
	}
	if in.Type == "" {
		in.Type = models.ConversationDirect
	}
	if in.Type == models.ConversationDirect && len(in.Participants) != 2 {
		return nil, apperr.Validationf("a direct conversation has exactly 2 participants")
	}

	if in.Type == models.ConversationDirect {
		existing, err := s.convs.FindDirectConversation(ctx, in.Participants[0], in.Participants[1])
		if err == nil {
			return existing, nil
		}
		if !apperr.IsNotFound(err) {
			return nil, err
		}
	}

	participants := append([]string(nil), in.Participants...)
	sort.Strings(participants)

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:           uuid.New().String(),
		Type:         in.Type,
		Participants: participants,
		Name:         in.Name,
		Image:        in.Image,
		LastActivity: now,
		IsActive:     true,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.convs.InsertConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ChatService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.convs.ConversationByID(ctx, id)
}

func (s *ChatService) GetConversationMessages(ctx context.Context, convID string, limit, skip int64) ([]*models.Message, error) {
	if convID == "" {
		return nil, apperr.Validationf("conversation_id is required")
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
	return s.msgs.MessagesByConversation(ctx, convID, limit, skip)
}

func (s *ChatService) GetUserConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	if userID == "" {
		return nil, apperr.Validationf("user_id is required")
	}
	return s.convs.ConversationsForUser(ctx, userID)
}

// UpdateMessageStatus upserts the per-recipient delivery record. The
// sent -> delivered -> read ordering is the caller's responsibility unless
// EnforceStatusMonotonic is configured, in which case backward transitions
// are rejected.
func (s *ChatService) UpdateMessageStatus(ctx context.Context, messageID, userID string, status models.MessageStatus) (*models.MessageStatusRecord, error) {
	if messageID == "" || userID == "" {
		return nil, apperr.Validationf("message_id and user_id are required")
	}
	if status.Rank() == 0 {
		return nil, apperr.Validationf("unknown status %q", status)
	}

	if s.cfg.EnforceStatusMonotonic {
		current, err := s.msgs.StatusFor(ctx, messageID, userID)
		if err != nil && !apperr.IsNotFound(err) {
			return nil, err
		}
		if current != nil && status.Rank() < current.Status.Rank() {
			return nil, apperr.Validationf("status cannot move backward from %s to %s", current.Status, status)
		}
	}

	rec := &models.MessageStatusRecord{
		MessageID: messageID,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if err := s.msgs.UpsertStatus(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ChatService) EditMessage(ctx context.Context, messageID, senderID, content string) (*models.Message, error) {
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}
	msg, err := s.msgs.MessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != senderID {
		return nil, apperr.Unauthorizedf("only the sender may edit a message")
	}
	now := time.Now().UTC()
	if err := s.msgs.MarkEdited(ctx, messageID, content, now); err != nil {
		return nil, err
	}
	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &now
	msg.UpdatedAt = now
	return msg, nil
}

func (s *ChatService) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	return s.msgs.MessageByID(ctx, messageID)
}

func (s *ChatService) AddReaction(ctx context.Context, messageID, userID, emoji string) (*models.MessageReaction, error) {
	if emoji == "" {
		return nil, apperr.Validationf("emoji is required")
	}
	if _, err := s.msgs.MessageByID(ctx, messageID); err != nil {
		return nil, err
	}
	reaction := &models.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.msgs.InsertReaction(ctx, reaction); err != nil {
		return nil, err
	}
	return reaction, nil
}

func (s *ChatService) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	return s.msgs.DeleteReaction(ctx, messageID, userID, emoji)
}

func (s *ChatService) GetMessageReactions(ctx context.Context, messageID string) ([]*models.MessageReaction, error) {
	if _, err := s.msgs.MessageByID(ctx, messageID); err != nil {
		return nil, err
	}
	return s.msgs.ReactionsForMessage(ctx, messageID)
}
