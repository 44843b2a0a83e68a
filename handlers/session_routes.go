package handlers

import (
	"github.com/creativetemmy/pair2pass-sub000/middleware"
	"github.com/creativetemmy/pair2pass-sub000/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(app *fiber.App, sessionService *services.SessionService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/sessions", sessionService.ListSessions)
	secured.Get("/sessions/:id", sessionService.GetSession)
	secured.Get("/sessions/:id/stream", sessionService.StreamSessionSSE)

	// Lobby coordination
	secured.Patch("/sessions/:id/meeting-link", sessionService.SetMeetingLink)
	secured.Post("/sessions/:id/ready", sessionService.MarkReady)
	secured.Post("/sessions/:id/start", sessionService.StartSession)

	// Completion + reviews
	secured.Post("/sessions/:id/complete", sessionService.CompleteSession)
	secured.Post("/sessions/:id/cancel", sessionService.CancelSession)
	secured.Post("/sessions/:id/reviews", sessionService.SubmitReview)
}
