package http

import (
	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type recordLoginHandler struct {
	logger *logrus.Logger
	engine *anomaly.Engine
}

func NewRecordLoginHandler(logger *logrus.Logger, engine *anomaly.Engine) Handler {
	return &recordLoginHandler{
		logger: logger,
		engine: engine,
	}
}

type recordLoginRequest struct {
	UserID        string `json:"user_id"`
	IdentityLabel string `json:"identity_label"`
	SourceIP      string `json:"source_ip"`
	Success       bool   `json:"success"`
}

// Handle scores a login attempt reported by an authentication handler. A
// locked decision maps to 423 so the caller can surface a temporary lockout.
func (s *recordLoginHandler) Handle(c *fiber.Ctx) error {
	var req recordLoginRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.WithError(err).Debug("invalid login event payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}
	sourceIP := req.SourceIP
	if sourceIP == "" {
		sourceIP = c.IP()
	}

	decision := s.engine.RecordLoginAttempt(c.Context(), req.UserID, req.IdentityLabel, sourceIP, req.Success)

	status := fiber.StatusOK
	if decision.Locked {
		status = fiber.StatusLocked
	}
	return c.Status(status).JSON(decision)
}
