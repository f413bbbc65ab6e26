package handler

import (
	"github.com/adrianoneco/app-chatapp/internal/middleware"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ConversationHandler struct {
	convSvc *service.ConversationService
	msgSvc  *service.MessageService
}

func NewConversationHandler(convSvc *service.ConversationService, msgSvc *service.MessageService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc, msgSvc: msgSvc}
}

// List supports ?status=, ?channelId= and ?search= filters. The tenancy
// scope always comes from the principal.
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	filter := model.ConversationFilter{
		Status:    model.ConversationStatus(c.Query("status")),
		ChannelID: c.Query("channelId"),
		Search:    c.Query("search"),
	}
	convs, err := h.convSvc.List(c.UserContext(), middleware.GetPrincipal(c), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convs)
}

func (h *ConversationHandler) Create(c *fiber.Ctx) error {
	var req model.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	conv, err := h.convSvc.Create(c.UserContext(), middleware.GetPrincipal(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(conv)
}

func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	conv, err := h.convSvc.Get(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

func (h *ConversationHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	conv, err := h.convSvc.Update(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

func (h *ConversationHandler) UpdateLocation(c *fiber.Ctx) error {
	var req model.LocationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	conv, err := h.convSvc.UpdateLocation(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	n, err := h.convSvc.MarkRead(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	msgs, err := h.msgSvc.List(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}
