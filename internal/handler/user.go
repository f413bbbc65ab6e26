package handler

import (
	"github.com/adrianoneco/app-chatapp/internal/middleware"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userSvc   *service.UserService
	uploadSvc *service.UploadService
}

func NewUserHandler(userSvc *service.UserService, uploadSvc *service.UploadService) *UserHandler {
	return &UserHandler{userSvc: userSvc, uploadSvc: uploadSvc}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.userSvc.List(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	user, err := h.userSvc.Get(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req model.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.userSvc.Create(c.UserContext(), middleware.GetPrincipal(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(user)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.userSvc.Update(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) UpdatePreferences(c *fiber.Ctx) error {
	var req model.PreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.userSvc.UpdatePreferences(c.UserContext(), middleware.GetPrincipal(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := h.userSvc.Delete(c.UserContext(), middleware.GetPrincipal(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *UserHandler) UploadAvatar(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	id := c.Params("id")
	if !p.IsAdmin() && p.UserID != id {
		return respondError(c, service.ErrForbidden)
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "no file uploaded", "field": "avatar"})
	}
	url, err := h.uploadSvc.SaveAvatar(id, fh)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.userSvc.SetAvatar(c.UserContext(), p, id, url)
	if err != nil {
		_ = h.uploadSvc.RemoveAvatar(url)
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "avatar": url})
}

func (h *UserHandler) DeleteAvatar(c *fiber.Ctx) error {
	user, err := h.userSvc.ClearAvatar(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
