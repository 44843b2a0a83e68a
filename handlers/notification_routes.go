package handlers

import (
	"github.com/creativetemmy/pair2pass-sub000/middleware"
	"github.com/creativetemmy/pair2pass-sub000/services"

	"github.com/gofiber/fiber/v2"
)

func SetupNotificationRoutes(app *fiber.App, notificationService *services.NotificationService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/notifications", notificationService.ListNotifications)
	secured.Get("/notifications/counts", notificationService.GetNotificationCounts)
	secured.Get("/notifications/stream", notificationService.StreamNotificationsSSE)
	secured.Patch("/notifications/:id/read", notificationService.MarkNotificationRead)
	secured.Post("/notifications/read-all", notificationService.MarkAllNotificationsRead)
}
