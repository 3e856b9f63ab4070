package http

import (
	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type recordActionHandler struct {
	logger *logrus.Logger
	engine *anomaly.Engine
}

func NewRecordActionHandler(logger *logrus.Logger, engine *anomaly.Engine) Handler {
	return &recordActionHandler{
		logger: logger,
		engine: engine,
	}
}

type recordActionRequest struct {
	UserID        string `json:"user_id"`
	IdentityLabel string `json:"identity_label"`
}

// Handle scores an authenticated action reported by a route guard.
func (s *recordActionHandler) Handle(c *fiber.Ctx) error {
	var req recordActionRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.WithError(err).Debug("invalid action event payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	decision := s.engine.RecordUserAction(c.Context(), req.UserID, req.IdentityLabel)

	status := fiber.StatusOK
	if decision.Locked {
		status = fiber.StatusLocked
	}
	return c.Status(status).JSON(decision)
}
