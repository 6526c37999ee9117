package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/mccartheney/food-loop-sub002/internal/apperr"
	"github.com/mccartheney/food-loop-sub002/internal/config"
	"github.com/mccartheney/food-loop-sub002/internal/hub"
	"github.com/mccartheney/food-loop-sub002/internal/middleware"
	"github.com/mccartheney/food-loop-sub002/internal/service"
	wsgw "github.com/mccartheney/food-loop-sub002/internal/ws"
)

// Server wires the HTTP surface: the polling API, the websocket upgrade
// route and a dev token endpoint.
type Server struct {
	app      *fiber.App
	cfg      *config.Config
	chat     *service.ChatService
	presence *service.PresenceService
	notif    *service.NotificationService
	hub      *hub.Hub
	logger   *zap.SugaredLogger
}

func NewServer(cfg *config.Config, chat *service.ChatService, presence *service.PresenceService,
	notif *service.NotificationService, h *hub.Hub, gateway *wsgw.Gateway,
	limiter *middleware.RateLimiter, logger *zap.SugaredLogger) *Server {

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	app.Use(fiberlogger.New())

	s := &Server{app: app, cfg: cfg, chat: chat, presence: presence, notif: notif, hub: h, logger: logger}

	v1 := app.Group("/v1")
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Post("/auth/token", s.issueToken)

	if gateway != nil {
		v1.Get("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		v1.Get("/ws", websocket.New(gateway.Handler()))
	}

	write := v1.Group("")
	if limiter != nil {
		write.Use(limiter.ByIP())
	}

	v1.Get("/messages", s.getMessages)
	write.Post("/messages", s.postMessages)
	write.Patch("/messages/:id", s.editMessage)
	v1.Get("/messages/:id/reactions", s.getReactions)
	write.Post("/messages/:id/reactions", s.addReaction)
	write.Delete("/messages/:id/reactions", s.removeReaction)
	write.Post("/messages/status", s.updateStatus)

	v1.Get("/conversations/:id/typing", s.getTypingUsers)
	v1.Get("/presence/:userId", s.getPresence)

	v1.Get("/notifications", s.getNotifications)
	write.Post("/notifications", s.postNotification)
	write.Post("/notifications/:id/read", s.markNotificationRead)
	write.Post("/notifications/read-all", s.markAllNotificationsRead)
	v1.Get("/notifications/unread-count", s.getUnreadCount)
	v1.Get("/notifications/settings/:userId", s.getNotificationSettings)
	write.Put("/notifications/settings/:userId", s.putNotificationSettings)

	return s
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func respondErr(c *fiber.Ctx, err error) error {
	return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
}
