package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/mccartheney/food-loop-sub002/internal/hub"
	"github.com/mccartheney/food-loop-sub002/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Gateway owns the websocket endpoint: it upgrades connections, runs the
// pumps and hands protocol events to a per-connection session.
type Gateway struct {
	hub       *hub.Hub
	chat      *service.ChatService
	presence  *service.PresenceService
	jwtSecret string
	logger    *zap.SugaredLogger
}

func NewGateway(h *hub.Hub, chat *service.ChatService, presence *service.PresenceService, jwtSecret string, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{hub: h, chat: chat, presence: presence, jwtSecret: jwtSecret, logger: logger}
}

// Handler is mounted behind the fiber websocket upgrade middleware.
func (g *Gateway) Handler() func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.NewClient()
		g.hub.Register(client)
		sess := &session{g: g, client: client}

		done := make(chan struct{})
		go g.writePump(c, client, done)
		g.readPump(c, sess)

		sess.closeSession(context.Background())
		close(done)
		_ = c.Close()
	}
}

func (g *Gateway) readPump(c *websocket.Conn, sess *session) {
	c.SetReadLimit(maxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debugw("read error", "conn", sess.client.ID, "err", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.logger.Debugw("bad envelope", "conn", sess.client.ID, "err", err)
			continue
		}
		ack := sess.handle(context.Background(), env)
		select {
		case sess.client.Send <- marshalAck(env.Event, ack):
		default:
		}
	}
}

func (g *Gateway) writePump(c *websocket.Conn, client *hub.Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.Send:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
