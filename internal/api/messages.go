package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mccartheney/food-loop-sub002/internal/apperr"
	"github.com/mccartheney/food-loop-sub002/internal/auth"
	"github.com/mccartheney/food-loop-sub002/internal/models"
	"github.com/mccartheney/food-loop-sub002/internal/service"
)

type tokenRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// issueToken hands out a signed realtime-session token. In production the
// identity provider sits in front of this; the endpoint keeps local
// development and the test clients working.
func (s *Server) issueToken(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return respondErr(c, apperr.Validationf("user_id is required"))
	}
	token, err := auth.NewToken(s.cfg.JWT.Secret, req.UserID, req.Email, s.cfg.TokenTTL)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"token": token})
}

// getMessages serves two shapes: with conversationId it pages message
// history, with only userId it lists the user's conversations.
func (s *Server) getMessages(c *fiber.Ctx) error {
	convID := c.Query("conversationId")
	if convID != "" {
		limit := int64(c.QueryInt("limit", 0))
		skip := int64(c.QueryInt("skip", 0))
		msgs, err := s.chat.GetConversationMessages(c.Context(), convID, limit, skip)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(fiber.Map{"data": msgs})
	}

	userID := c.Query("userId")
	if userID == "" {
		return respondErr(c, apperr.Validationf("userId or conversationId is required"))
	}
	convs, err := s.chat.GetUserConversations(c.Context(), userID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": convs})
}

type postMessageRequest struct {
	// send shape
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Content        string         `json:"content"`
	Type           string         `json:"type"`
	Metadata       map[string]any `json:"metadata"`
	ReplyToID      string         `json:"reply_to_id"`
	// create shape
	Participants []string `json:"participants"`
	ConvType     string   `json:"conversation_type"`
	Name         string   `json:"name"`
	CreatedBy    string   `json:"created_by"`
}

// postMessages either sends a message or creates a conversation; the two
// request shapes are told apart by the presence of conversation_id.
func (s *Server) postMessages(c *fiber.Ctx) error {
	var req postMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, apperr.Validationf("malformed body"))
	}

	if req.ConversationID != "" {
		msg, err := s.chat.SendMessage(c.Context(), service.SendMessageInput{
			ConversationID: req.ConversationID,
			SenderID:       req.SenderID,
			Content:        req.Content,
			Type:           models.MessageType(req.Type),
			Metadata:       req.Metadata,
			ReplyToID:      req.ReplyToID,
		})
		if err != nil {
			return respondErr(c, err)
		}
		// deliver to connected participants; there is no originating
		// connection on the HTTP path so nobody is excluded
		s.hub.Broadcast(c.Context(), msg.ConversationID, "new_message", msg, "")
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": msg})
	}

	conv, err := s.chat.CreateConversation(c.Context(), service.CreateConversationInput{
		Participants: req.Participants,
		Type:         models.ConversationType(req.ConvType),
		CreatedBy:    req.CreatedBy,
		Name:         req.Name,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": conv})
}

type editMessageRequest struct {
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

func (s *Server) editMessage(c *fiber.Ctx) error {
	var req editMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, apperr.Validationf("malformed body"))
	}
	msg, err := s.chat.EditMessage(c.Context(), c.Params("id"), req.SenderID, req.Content)
	if err != nil {
		return respondErr(c, err)
	}
	s.hub.Broadcast(c.Context(), msg.ConversationID, "new_message", msg, "")
	return c.JSON(fiber.Map{"data": msg})
}

type reactionRequest struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

func (s *Server) addReaction(c *fiber.Ctx) error {
	var req reactionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, apperr.Validationf("malformed body"))
	}
	reaction, err := s.chat.AddReaction(c.Context(), c.Params("id"), req.UserID, req.Emoji)
	if err != nil {
		return respondErr(c, err)
	}
	if msg, err := s.chat.GetMessage(c.Context(), reaction.MessageID); err == nil {
		s.hub.Broadcast(c.Context(), msg.ConversationID, "message_reaction", reaction, "")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": reaction})
}

func (s *Server) getReactions(c *fiber.Ctx) error {
	reactions, err := s.chat.GetMessageReactions(c.Context(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	if reactions == nil {
		reactions = []*models.MessageReaction{}
	}
	return c.JSON(fiber.Map{"data": reactions})
}

func (s *Server) removeReaction(c *fiber.Ctx) error {
	var req reactionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, apperr.Validationf("malformed body"))
	}
	if err := s.chat.RemoveReaction(c.Context(), c.Params("id"), req.UserID, req.Emoji); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type statusRequest struct {
	MessageID      string `json:"message_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) updateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, apperr.Validationf("malformed body"))
	}
	rec, err := s.chat.UpdateMessageStatus(c.Context(), req.MessageID, req.UserID, models.MessageStatus(req.Status))
	if err != nil {
		return respondErr(c, err)
	}
	if rec.Status == models.StatusRead && req.ConversationID != "" {
		s.hub.Broadcast(c.Context(), req.ConversationID, "message_read", fiber.Map{
			"message_id": rec.MessageID,
			"user_id":    rec.UserID,
			"timestamp":  rec.Timestamp.Format(time.RFC3339Nano),
		}, "")
	}
	return c.JSON(fiber.Map{"data": rec})
}

func (s *Server) getTypingUsers(c *fiber.Ctx) error {
	users, err := s.presence.TypingUsers(c.Context(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	if users == nil {
		users = []string{}
	}
	return c.JSON(fiber.Map{"data": users})
}

func (s *Server) getPresence(c *fiber.Ctx) error {
	p, err := s.presence.GetPresence(c.Context(), c.Params("userId"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": p})
}
