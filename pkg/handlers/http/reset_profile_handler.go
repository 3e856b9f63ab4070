package http

import (
	"errors"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/authwatch/authwatch/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type resetProfileHandler struct {
	logger *logrus.Logger
	engine *anomaly.Engine
}

func NewResetProfileHandler(logger *logrus.Logger, engine *anomaly.Engine) Handler {
	return &resetProfileHandler{
		logger: logger,
		engine: engine,
	}
}

type overrideRequest struct {
	Reason string `json:"reason"`
}

// Handle applies the administrative reset override: score zeroed, failed-login
// history cleared, lock removed. The authenticated actor is always logged.
func (s *resetProfileHandler) Handle(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	var req overrideRequest
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required"})
	}

	actor, _ := c.Locals(common.ActorLocalsKey).(string)
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"actor":   actor,
		"reason":  req.Reason,
	}).Info("risk score reset requested")

	if err := s.engine.ResetRiskScore(c.Context(), userID, req.Reason); err != nil {
		if errors.Is(err, anomaly.ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to reset risk score")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reset risk score"})
	}

	return c.JSON(fiber.Map{"status": "reset"})
}
