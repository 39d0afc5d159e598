package transport

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler logs probe failures and renders them as JSON.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("probe request error", fields...)
		} else {
			logger.Debug("probe request rejected", fields...)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

// NewProbeApp builds the fiber app that serves health and metrics routes.
func NewProbeApp(logger *zap.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "notification-dispatcher",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
	})
}
