package handlers

import (
	"github.com/creativetemmy/pair2pass-sub000/middleware"
	"github.com/creativetemmy/pair2pass-sub000/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchRequestService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/match-requests", matchService.CreateMatchRequest)
	secured.Get("/match-requests", matchService.ListMatchRequests)

	// Server-validated accept (the create-study-session path)
	secured.Post("/match-requests/:id/accept", matchService.AcceptMatchRequest)
	secured.Post("/match-requests/:id/reject", matchService.RejectMatchRequest)
}
