package handler

import (
	"errors"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError writes err as a JSON error body. Storage failures are logged
// with full detail and reported to the caller as an opaque message.
func respondError(c *fiber.Ctx, err error) error {
	status := service.StatusCode(err)
	body := fiber.Map{"error": service.PublicMessage(err)}

	var ve *service.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["error"] = ve.Message
		body["field"] = ve.Field
	}
	if status >= 500 {
		logger.Log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
}
