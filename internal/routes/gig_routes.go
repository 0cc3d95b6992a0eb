package routes

import (
	"github.com/gofiber/fiber/v2"

	"GigVault/internal/handlers"
	"GigVault/internal/middleware"
)

func SetupGigRoutes(app *fiber.App) {
	gigs := app.Group("/api/gigs", middleware.Protected())

	// Browse open gigs (freelancer)
	gigs.Get("/browse", handlers.BrowseOpenGigs)

	// Get all my gigs
	gigs.Get("/my-gigs", handlers.GetMyGigs)

	// Create new gig (client)
	gigs.Post("/", handlers.CreateGig)

	// Accept gig (freelancer)
	gigs.Post("/:id/accept", handlers.AcceptGig)

	// Cancel open gig (client)
	gigs.Post("/:id/cancel", handlers.CancelGig)

	// Submit work for review (freelancer, non-milestone gigs)
	gigs.Post("/:id/submit", handlers.SubmitWork)

	// Reject the pending submission (client)
	gigs.Post("/:id/reject", handlers.RejectSubmission)

	// Milestones of a gig
	gigs.Get("/:id/milestones", handlers.ListMilestones)

	// Audit trail
	gigs.Get("/:id/transactions", handlers.GetGigTransactions)

	// Change stream for dashboards
	gigs.Get("/:id/events", handlers.StreamGigEvents)

	// Get specific gig
	gigs.Get("/:id", handlers.GetGigByID)

	// Delete gig (client)
	gigs.Delete("/:id", handlers.DeleteGig)

	milestones := app.Group("/api/milestones", middleware.Protected())

	// Submit milestone for approval (freelancer)
	milestones.Post("/:id/submit", handlers.SubmitMilestone)
}
