package http

import (
	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getStatsHandler struct {
	logger *logrus.Logger
	engine *anomaly.Engine
}

func NewGetStatsHandler(logger *logrus.Logger, engine *anomaly.Engine) Handler {
	return &getStatsHandler{
		logger: logger,
		engine: engine,
	}
}

func (s *getStatsHandler) Handle(c *fiber.Ctx) error {
	stats, err := s.engine.GetMetrics(c.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to aggregate engine metrics")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to aggregate engine metrics"})
	}
	return c.JSON(stats)
}
