package handler

import (
	"encoding/json"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/middleware"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const wsReadTimeout = 60 * time.Second

type WSHandler struct {
	hub  *service.WSHub
	auth middleware.Authenticator
}

func NewWSHandler(hub *service.WSHub, auth middleware.Authenticator) *WSHandler {
	return &WSHandler{hub: hub, auth: auth}
}

// Upgrade authenticates the access token passed as ?token= before switching
// protocols; browsers cannot set headers on websocket requests.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		return c.Status(401).JSON(fiber.Map{"error": "token required"})
	}
	p, err := h.auth.ValidateAccessToken(token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
	}
	c.Locals(middleware.PrincipalKey, p)
	return websocket.New(h.handleConnection)(c)
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	p, _ := c.Locals(middleware.PrincipalKey).(*model.Principal)
	if p == nil {
		_ = c.Close()
		return
	}

	client := service.NewWSClient(c, p, 256)

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	go func() {
		defer c.Close()
		for {
			select {
			case msg := <-client.Send:
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-client.Done():
				return
			}
		}
	}()

	_ = c.SetReadDeadline(time.Now().Add(wsReadTimeout))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		_ = c.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var event model.WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}

		switch event.Type {
		case "ping":
			pong, _ := json.Marshal(model.WSEvent{Type: model.EventPong})
			client.Queue(pong)
		default:
			logger.Log.Debug("ws unknown event", zap.String("type", event.Type), zap.String("user", p.UserID))
		}
	}
}
