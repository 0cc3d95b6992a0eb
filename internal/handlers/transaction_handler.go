package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"GigVault/internal/database"
	"GigVault/internal/models"
)

// GetGigTransactions returns the audit trail for a gig. Only the two
// parties may read it.
func GetGigTransactions(c *fiber.Ctx) error {
	gigID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid gig id",
		})
	}
	userID := c.Locals("user_id").(uuid.UUID)

	var gig models.Gig
	if err := database.DB.First(&gig, "id = ?", gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Gig not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	if gig.ClientID != userID && (gig.FreelancerID == nil || *gig.FreelancerID != userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this gig",
		})
	}

	var transactions []models.Transaction
	if err := database.DB.
		Where("gig_id = ?", gig.ID).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve transactions",
		})
	}

	return c.JSON(fiber.Map{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// GetMyTransactions returns fund movements across every gig the user is a
// party to.
func GetMyTransactions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	var transactions []models.Transaction
	if err := database.DB.
		Joins("JOIN gigs ON gigs.id = transactions.gig_id").
		Where("gigs.client_id = ? OR gigs.freelancer_id = ?", userID, userID).
		Order("transactions.created_at DESC").
		Find(&transactions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve transactions",
		})
	}

	return c.JSON(fiber.Map{
		"transactions": transactions,
		"count":        len(transactions),
	})
}
