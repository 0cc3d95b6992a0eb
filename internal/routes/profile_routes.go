package routes

import (
	"github.com/gofiber/fiber/v2"

	"GigVault/internal/handlers"
	"GigVault/internal/middleware"
)

func SetupProfileRoutes(app *fiber.App) {
	profile := app.Group("/api/profile", middleware.Protected())

	profile.Get("/", handlers.GetProfile)
	profile.Put("/", handlers.UpdateProfile)

	// Link a payment wallet (required to accept gigs or receive a release)
	profile.Put("/wallet", handlers.ConnectWallet)

	transactions := app.Group("/api/transactions", middleware.Protected())
	transactions.Get("/", handlers.GetMyTransactions)
}
