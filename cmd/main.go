package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"GigVault/internal/database"
	"GigVault/internal/handlers"
	"GigVault/internal/routes"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("❌ Failed to migrate database:", err)
	}
	log.Println("✅ Database connected and migrated successfully")

	// Initialize services
	handlers.InitNotificationService()
	handlers.InitEventBus()
	handlers.InitReleaseService()

	// Cloudinary is optional; submissions fall back to URL-only deliverables
	if err := handlers.InitCloudinaryService(); err != nil {
		log.Printf("⚠️  Cloudinary not configured, attachment uploads disabled: %v", err)
	} else {
		log.Println("✅ Cloudinary service initialized successfully")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:   "GigVault API v1.0",
		BodyLimit: 10 * 1024 * 1024,
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Payment",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to GigVault API",
			"status":  "running",
			"version": "1.0",
		})
	})

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "GigVault",
		})
	})

	// Setup application routes
	routes.SetupRoutes(app)
	routes.SetupProfileRoutes(app)
	routes.SetupGigRoutes(app)
	routes.SetupReleaseRoutes(app)
	routes.SetupNotificationRoutes(app)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 GigVault server starting on http://localhost:%s", port)
	log.Fatal(app.Listen(":" + port))
}
