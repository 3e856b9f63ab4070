package middleware

import (
	"strconv"
	"time"

	"github.com/authwatch/authwatch/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type metricsMiddleware struct {
	logger *logrus.Logger
}

func NewMetricsMiddleware(logger *logrus.Logger) Middleware {
	return &metricsMiddleware{logger: logger}
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// Route path, not the raw URL, to keep label cardinality bounded.
		path := c.Route().Path
		status := c.Response().StatusCode()

		prometheus.RequestTotal.
			WithLabelValues(c.Method(), path, strconv.Itoa(status)).
			Inc()
		prometheus.RequestLatency.
			WithLabelValues(path).
			Observe(float64(time.Since(start).Milliseconds()))

		return err
	}
}
