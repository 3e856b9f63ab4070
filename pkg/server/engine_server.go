package server

import (
	"fmt"

	"github.com/authwatch/authwatch/pkg/config"
	handlers "github.com/authwatch/authwatch/pkg/handlers/http"
	"github.com/authwatch/authwatch/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type (
	EngineServerDI struct {
		MiddlewareTransport middleware.Transport
		HandlerTransport    handlers.HandlerTransport
		Config              *config.Config
		Logger              *logrus.Logger
	}
	// EngineServer exposes the decision endpoints called by authentication
	// handlers and route guards, plus the authenticated admin surface.
	EngineServer struct {
		*BaseServer
		middlewareTransport middleware.Transport
		handlerTransport    handlers.HandlerTransport
	}
)

func NewEngineServer(di EngineServerDI) *EngineServer {
	return &EngineServer{
		BaseServer:          NewBaseServer(di.Config, di.Logger),
		middlewareTransport: di.MiddlewareTransport,
		handlerTransport:    di.HandlerTransport,
	}
}

func (s *EngineServer) Run() error {
	s.setupRoutes()
	s.setupHealthCheck()
	s.setupMetricsEndpoint()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.WithField("addr", addr).Info("Starting authwatch server")
	return s.router.Listen(addr)
}

func (s *EngineServer) setupRoutes() {
	s.router.Use(s.middlewareTransport.RecoverMiddleware.Middleware())
	s.router.Use(s.middlewareTransport.MetricsMiddleware.Middleware())

	v1 := s.router.Group("/api/v1")

	events := v1.Group("/events")
	{
		events.Post("/login", s.handlerTransport.RecordLoginHandler.Handle)
		events.Post("/action", s.handlerTransport.RecordActionHandler.Handle)
	}

	admin := v1.Group("", s.middlewareTransport.AdminAuthMiddleware.Middleware())
	{
		profiles := admin.Group("/profiles")
		{
			profiles.Get("/:user_id", s.handlerTransport.GetProfileHandler.Handle)
			profiles.Post("/:user_id/reset", s.handlerTransport.ResetProfileHandler.Handle)
			profiles.Post("/:user_id/unlock", s.handlerTransport.UnlockProfileHandler.Handle)
		}
		admin.Get("/stats", s.handlerTransport.GetStatsHandler.Handle)
	}

	s.router.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
}
