package http

import (
	"errors"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getProfileHandler struct {
	logger *logrus.Logger
	engine *anomaly.Engine
}

func NewGetProfileHandler(logger *logrus.Logger, engine *anomaly.Engine) Handler {
	return &getProfileHandler{
		logger: logger,
		engine: engine,
	}
}

func (s *getProfileHandler) Handle(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	snapshot, err := s.engine.GetStatus(c.Context(), userID)
	if err != nil {
		if errors.Is(err, anomaly.ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to get profile status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to get profile status"})
	}

	return c.JSON(snapshot)
}
