package routes

import (
	"github.com/gofiber/fiber/v2"

	"GigVault/internal/handlers"
	"GigVault/internal/middleware"
)

func SetupReleaseRoutes(app *fiber.App) {
	// Release funds (client approves and pays via x402)
	app.Post("/api/release", middleware.Protected(), handlers.ReleaseFunds)
}
