package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mccartheney/food-loop-sub002/internal/auth"
	"github.com/mccartheney/food-loop-sub002/internal/hub"
	"github.com/mccartheney/food-loop-sub002/internal/models"
	"github.com/mccartheney/food-loop-sub002/internal/service"
)

// session is the per-connection protocol state machine: which user the
// connection is bound to, once authenticated. Room membership itself lives
// in the hub.
type session struct {
	g      *Gateway
	client *hub.Client
	userID string
}

func (s *session) authenticated() bool {
	return s.userID != ""
}

// handle dispatches one client event and returns its acknowledgment.
func (s *session) handle(ctx context.Context, env Envelope) Ack {
	switch env.Event {
	case "authenticate":
		return s.handleAuthenticate(ctx, env.Payload)
	case "join_room":
		return s.handleJoin(ctx, env.Payload)
	case "leave_room":
		return s.handleLeave(env.Payload)
	case "send_message":
		return s.handleSendMessage(ctx, env.Payload)
	case "typing_start":
		return s.handleTyping(ctx, env.Payload, true)
	case "typing_stop":
		return s.handleTyping(ctx, env.Payload, false)
	case "mark_read":
		return s.handleMarkRead(ctx, env.Payload)
	case "update_presence":
		return s.handleUpdatePresence(ctx, env.Payload)
	case "ping":
		return Ack{Success: true, Pong: true, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
	default:
		return errAck("unknown event " + env.Event)
	}
}

func (s *session) handleAuthenticate(ctx context.Context, raw json.RawMessage) Ack {
	var p authenticatePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Token == "" {
		return errAck("token is required")
	}
	claims, err := auth.ParseAndValidateToken(s.g.jwtSecret, p.Token)
	if err != nil {
		return errAck("invalid token")
	}
	s.userID = claims.UserID
	s.g.hub.Bind(s.client.ID, claims.UserID)

	if _, err := s.g.presence.UpdateUserPresence(ctx, claims.UserID, service.PresenceUpdate{
		IsOnline:      true,
		CurrentDevice: p.DeviceInfo.Device,
	}); err != nil {
		s.g.logger.Warnw("presence update on auth failed", "user", claims.UserID, "err", err)
	}
	return okAck()
}

// handleJoin admits the connection to a room only when the authenticated
// user is a participant of the backing conversation.
func (s *session) handleJoin(ctx context.Context, raw json.RawMessage) Ack {
	if !s.authenticated() {
		return errAck("not authenticated")
	}
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return errAck("room_id is required")
	}
	conv, err := s.g.chat.GetConversation(ctx, p.RoomID)
	if err != nil {
		return errAck("unknown room")
	}
	if !conv.HasParticipant(s.userID) {
		return errAck("not a participant of this conversation")
	}
	s.g.hub.Join(s.client.ID, p.RoomID)
	return okAck()
}

func (s *session) handleLeave(raw json.RawMessage) Ack {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return errAck("room_id is required")
	}
	s.g.hub.Leave(s.client.ID, p.RoomID)
	return okAck()
}

func (s *session) handleSendMessage(ctx context.Context, raw json.RawMessage) Ack {
	if !s.authenticated() {
		return errAck("not authenticated")
	}
	var p sendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errAck("malformed payload")
	}
	msg, err := s.g.chat.SendMessage(ctx, service.SendMessageInput{
		ConversationID: p.ConversationID,
		SenderID:       s.userID,
		Content:        p.Content,
		Type:           models.MessageType(p.Type),
		Metadata:       p.Metadata,
		ReplyToID:      p.ReplyToID,
	})
	if err != nil {
		return errAck(err.Error())
	}
	s.g.hub.Broadcast(ctx, msg.ConversationID, "new_message", msg, s.client.ID)
	return Ack{
		Success:   true,
		MessageID: msg.ID,
		Timestamp: msg.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (s *session) handleTyping(ctx context.Context, raw json.RawMessage, isTyping bool) Ack {
	if !s.authenticated() {
		return errAck("not authenticated")
	}
	var p typingPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ConversationID == "" {
		return errAck("conversation_id is required")
	}
	if err := s.g.presence.SetTyping(ctx, p.ConversationID, s.userID, isTyping); err != nil {
		return errAck(err.Error())
	}
	s.g.hub.Broadcast(ctx, p.ConversationID, "user_typing", typingEvent{
		UserID:         s.userID,
		ConversationID: p.ConversationID,
		IsTyping:       isTyping,
	}, s.client.ID)
	return okAck()
}

func (s *session) handleMarkRead(ctx context.Context, raw json.RawMessage) Ack {
	if !s.authenticated() {
		return errAck("not authenticated")
	}
	var p markReadPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == "" {
		return errAck("message_id is required")
	}
	rec, err := s.g.chat.UpdateMessageStatus(ctx, p.MessageID, s.userID, models.StatusRead)
	if err != nil {
		return errAck(err.Error())
	}
	if p.ConversationID != "" {
		s.g.hub.Broadcast(ctx, p.ConversationID, "message_read", readEvent{
			MessageID: p.MessageID,
			UserID:    s.userID,
			Timestamp: rec.Timestamp,
		}, s.client.ID)
	}
	return okAck()
}

func (s *session) handleUpdatePresence(ctx context.Context, raw json.RawMessage) Ack {
	if !s.authenticated() {
		return errAck("not authenticated")
	}
	var p updatePresencePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errAck("malformed payload")
	}
	online := true
	if p.IsOnline != nil {
		online = *p.IsOnline
	}
	pres, err := s.g.presence.UpdateUserPresence(ctx, s.userID, service.PresenceUpdate{
		IsOnline: online,
		Status:   p.Status,
	})
	if err != nil {
		return errAck(err.Error())
	}
	ev := presenceEvent{
		UserID:    s.userID,
		IsOnline:  pres.IsOnline,
		Status:    pres.Status,
		Timestamp: pres.UpdatedAt,
	}
	for _, room := range s.g.hub.RoomsOf(s.client.ID) {
		s.g.hub.Broadcast(ctx, room, "user_presence", ev, s.client.ID)
	}
	return okAck()
}

// closeSession runs the implicit-disconnect side effects: presence goes
// offline with last_seen frozen at now, and every typing indicator the user
// owns is cleared and broadcast as stopped.
func (s *session) closeSession(ctx context.Context) {
	rooms := s.g.hub.Unregister(s.client.ID)
	if !s.authenticated() {
		return
	}
	pres, err := s.g.presence.UpdateUserPresence(ctx, s.userID, service.PresenceUpdate{IsOnline: false})
	if err != nil {
		s.g.logger.Warnw("presence update on disconnect failed", "user", s.userID, "err", err)
	} else {
		ev := presenceEvent{UserID: s.userID, IsOnline: false, Timestamp: pres.UpdatedAt}
		for _, room := range rooms {
			s.g.hub.Broadcast(ctx, room, "user_presence", ev, "")
		}
	}

	convs, err := s.g.presence.ClearTyping(ctx, s.userID)
	if err != nil {
		s.g.logger.Warnw("typing cleanup on disconnect failed", "user", s.userID, "err", err)
		return
	}
	for _, convID := range convs {
		s.g.hub.Broadcast(ctx, convID, "user_typing", typingEvent{
			UserID:         s.userID,
			ConversationID: convID,
			IsTyping:       false,
		}, "")
	}
}
