package handler

import (
	"context"

	"github.com/adrianoneco/app-chatapp/internal/middleware"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UploadHandler struct {
	uploadSvc *service.UploadService
}

func NewUploadHandler(uploadSvc *service.UploadService) *UploadHandler {
	return &UploadHandler{uploadSvc: uploadSvc}
}

func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "no file uploaded", "field": "file"})
	}
	res, err := h.uploadSvc.SaveMedia(fh)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Corrector proofreads message drafts.
type Corrector interface {
	Correct(ctx context.Context, p *model.Principal, text string) (*model.CorrectTextResponse, error)
}

type AIHandler struct {
	corrector Corrector
}

func NewAIHandler(corrector Corrector) *AIHandler {
	return &AIHandler{corrector: corrector}
}

func (h *AIHandler) CorrectText(c *fiber.Ctx) error {
	var req model.CorrectTextRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.corrector.Correct(c.UserContext(), middleware.GetPrincipal(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
