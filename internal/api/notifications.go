package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mccartheney/food-loop-sub002/internal/apperr"
	"github.com/mccartheney/food-loop-sub002/internal/models"
	"github.com/mccartheney/food-loop-sub002/internal/service"
)

func (s *Server) getNotifications(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return respondErr(c, apperr.Validationf("userId is required"))
	}
	limit := int64(c.QueryInt("limit", 0))
	skip := int64(c.QueryInt("skip", 0))
	items, err := s.notif.List(c.Context(), userID, limit, skip)
	if err != nil {
		return respondErr(c, err)
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return c.JSON(fiber.Map{"data": items})
}

type createNotificationRequest struct {
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	ActionURL string         `json:"action_url"`
	ExpiresAt string         `json:"expires_at"`
}

func (s *Server) postNotification(c *fiber.Ctx) error {
	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, apperr.Validationf("malformed body"))
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return respondErr(c, apperr.Validationf("expires_at must be RFC3339"))
		}
		expiresAt = &t
	}
	n, err := s.notif.Create(c.Context(), service.CreateNotificationInput{
		UserID:    req.UserID,
		Type:      models.NotificationType(req.Type),
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
		ActionURL: req.ActionURL,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return respondErr(c, err)
	}
	if n == nil {
		// suppressed by the recipient's settings
		return c.JSON(fiber.Map{"data": nil, "suppressed": true})
	}
	s.hub.SendToUser(n.UserID, "notification", n)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": n})
}

func (s *Server) markNotificationRead(c *fiber.Ctx) error {
	if err := s.notif.MarkRead(c.Context(), c.Params("id")); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) markAllNotificationsRead(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return respondErr(c, apperr.Validationf("userId is required"))
	}
	if err := s.notif.MarkAllRead(c.Context(), userID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) getUnreadCount(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return respondErr(c, apperr.Validationf("userId is required"))
	}
	count, err := s.notif.UnreadCount(c.Context(), userID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

func (s *Server) getNotificationSettings(c *fiber.Ctx) error {
	settings, err := s.notif.Settings(c.Context(), c.Params("userId"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": settings})
}

func (s *Server) putNotificationSettings(c *fiber.Ctx) error {
	var settings models.NotificationSettings
	if err := c.BodyParser(&settings); err != nil {
		return respondErr(c, apperr.Validationf("malformed body"))
	}
	settings.UserID = c.Params("userId")
	updated, err := s.notif.UpdateSettings(c.Context(), &settings)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": updated})
}
