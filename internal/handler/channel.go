package handler

import (
	"github.com/adrianoneco/app-chatapp/internal/middleware"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ChannelHandler struct {
	channelSvc *service.ChannelService
}

func NewChannelHandler(channelSvc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelSvc: channelSvc}
}

func (h *ChannelHandler) List(c *fiber.Ctx) error {
	channels, err := h.channelSvc.List(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(channels)
}

func (h *ChannelHandler) Get(c *fiber.Ctx) error {
	ch, err := h.channelSvc.Get(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ch)
}

func (h *ChannelHandler) Create(c *fiber.Ctx) error {
	var req model.ChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ch, err := h.channelSvc.Create(c.UserContext(), middleware.GetPrincipal(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(ch)
}

func (h *ChannelHandler) Update(c *fiber.Ctx) error {
	var req model.ChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ch, err := h.channelSvc.Update(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ch)
}

func (h *ChannelHandler) Delete(c *fiber.Ctx) error {
	if err := h.channelSvc.Delete(c.UserContext(), middleware.GetPrincipal(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
