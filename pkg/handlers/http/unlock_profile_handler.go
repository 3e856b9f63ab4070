package http

import (
	"errors"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/authwatch/authwatch/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type unlockProfileHandler struct {
	logger *logrus.Logger
	engine *anomaly.Engine
}

func NewUnlockProfileHandler(logger *logrus.Logger, engine *anomaly.Engine) Handler {
	return &unlockProfileHandler{
		logger: logger,
		engine: engine,
	}
}

// Handle clears the lock without resetting the score; the score keeps
// decaying normally afterwards.
func (s *unlockProfileHandler) Handle(c *fiber.Ctx) error {
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
	}).Info("account unlock requested")

	if err := s.engine.UnlockAccount(c.Context(), userID, req.Reason); err != nil {
		if errors.Is(err, anomaly.ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to unlock account")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to unlock account"})
	}

	return c.JSON(fiber.Map{"status": "unlocked"})
}
