package handler

import (
	"github.com/adrianoneco/app-chatapp/internal/middleware"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	msgSvc *service.MessageService
}

func NewMessageHandler(msgSvc *service.MessageService) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc}
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var req model.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	msg, err := h.msgSvc.Send(c.UserContext(), middleware.GetPrincipal(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(msg)
}

func (h *MessageHandler) React(c *fiber.Ctx) error {
	var req model.ReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.msgSvc.ToggleReaction(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), req.Emoji)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Forward responds 200 when at least one destination received a copy and
// 422 when every destination failed. Both carry the per-destination report.
func (h *MessageHandler) Forward(c *fiber.Ctx) error {
	var req model.ForwardRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.msgSvc.Forward(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), req.ConversationIDs)
	if err != nil {
		return respondError(c, err)
	}
	if len(res.Forwarded) == 0 {
		return c.Status(422).JSON(res)
	}
	return c.JSON(res)
}

func (h *MessageHandler) UpdateStatus(c *fiber.Ctx) error {
	var req model.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	msg, err := h.msgSvc.AdvanceStatus(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}
