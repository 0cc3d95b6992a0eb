package routes

import (
	"github.com/gofiber/fiber/v2"

	"GigVault/internal/handlers"
	"GigVault/internal/middleware"
)

func SetupNotificationRoutes(app *fiber.App) {
	notifications := app.Group("/api/notifications", middleware.Protected())

	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Put("/read-all", handlers.MarkAllNotificationsRead)
}
