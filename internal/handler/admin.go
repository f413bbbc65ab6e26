package handler

import (
	"context"

	"github.com/adrianoneco/app-chatapp/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Counter interface {
	CountTotal(ctx context.Context) (int, error)
}

type OnlineCounter interface {
	OnlineCount() int
}

type AdminHandler struct {
	users         Counter
	conversations Counter
	hub           OnlineCounter
}

func NewAdminHandler(users, conversations Counter, hub OnlineCounter) *AdminHandler {
	return &AdminHandler{users: users, conversations: conversations, hub: hub}
}

// Stats reports headline counters for the admin dashboard. A failing count
// is logged and reported as zero.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	totalUsers, err := h.users.CountTotal(ctx)
	if err != nil {
		logger.Log.Warn("count users", zap.Error(err))
	}
	totalConversations, err := h.conversations.CountTotal(ctx)
	if err != nil {
		logger.Log.Warn("count conversations", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"usersTotal":         totalUsers,
		"conversationsTotal": totalConversations,
		"online":             h.hub.OnlineCount(),
	})
}
