package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(c *fiber.Ctx) error
}

type HandlerTransport struct {
	// Event ingestion
	RecordLoginHandler  Handler
	RecordActionHandler Handler
	// Admin
	GetProfileHandler    Handler
	ResetProfileHandler  Handler
	UnlockProfileHandler Handler
	GetStatsHandler      Handler
}
