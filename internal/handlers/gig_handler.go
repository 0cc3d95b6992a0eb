package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"GigVault/internal/database"
	"GigVault/internal/guard"
	"GigVault/internal/models"
)

type MilestoneInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Percentage  int    `json:"percentage" validate:"required,gt=0,lte=100"`
}

type CreateGigRequest struct {
	Title         string           `json:"title" validate:"required"`
	Description   string           `json:"description" validate:"required"`
	Budget        decimal.Decimal  `json:"budget"`
	HasMilestones bool             `json:"has_milestones"`
	Milestones    []MilestoneInput `json:"milestones" validate:"dive"`
}

// CreateGig posts a new gig, funds escrow and creates its milestones in one
// transaction. Milestone percentages must add up to exactly 100.
func CreateGig(c *fiber.Ctx) error {
	req := new(CreateGigRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if !req.Budget.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Budget must be greater than zero",
		})
	}

	userID := c.Locals("user_id").(uuid.UUID)

	var client models.Profile
	if err := database.DB.First(&client, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	if !client.IsClient() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only clients can post gigs",
		})
	}

	if !client.HasWallet() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Connect your wallet before funding a gig",
		})
	}

	if req.HasMilestones {
		if len(req.Milestones) < 2 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Milestone gigs need at least two milestones",
			})
		}
		total := 0
		for _, m := range req.Milestones {
			total += m.Percentage
		}
		if total != 100 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Milestone percentages must add up to 100%",
			})
		}
	}

	gig := models.Gig{
		ClientID:        userID,
		Title:           req.Title,
		Description:     req.Description,
		Budget:          req.Budget,
		Status:          models.GigOpen,
		HasMilestones:   req.HasMilestones,
		TotalPaidAmount: decimal.Zero,
		EscrowAddress:   client.WalletAddress,
	}
	if req.HasMilestones {
		gig.MilestoneCount = len(req.Milestones)
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&gig).Error; err != nil {
			return err
		}

		if req.HasMilestones {
			percentages := make([]int, len(req.Milestones))
			for i, m := range req.Milestones {
				percentages[i] = m.Percentage
			}
			amounts := models.SplitBudget(req.Budget, percentages)

			for i, m := range req.Milestones {
				milestone := models.Milestone{
					GigID:         gig.ID,
					Title:         m.Title,
					Description:   m.Description,
					Percentage:    m.Percentage,
					Amount:        amounts[i],
					SequenceOrder: i + 1,
					Status:        models.MilestonePending,
				}
				if err := tx.Create(&milestone).Error; err != nil {
					return err
				}
			}
		}

		// Budget is locked in escrow at creation
		escrowTxn := models.Transaction{
			GigID:  gig.ID,
			Type:   models.TransactionEscrow,
			Amount: req.Budget,
			Status: models.TransactionConfirmed,
		}
		return tx.Create(&escrowTxn).Error
	})

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create gig",
		})
	}

	publishGigEvent(gig.ID, "gig", "created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("%s USDC locked in escrow successfully", req.Budget.StringFixed(2)),
		"gig":     gig,
	})
}

// BrowseOpenGigs lists gigs freelancers can accept
func BrowseOpenGigs(c *fiber.Ctx) error {
	var gigs []models.Gig
	if err := database.DB.Preload("Client").
		Where("status = ?", models.GigOpen).
		Order("created_at DESC").
		Find(&gigs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve gigs",
		})
	}

	return c.JSON(fiber.Map{
		"gigs":  gigs,
		"count": len(gigs),
	})
}

// GetMyGigs retrieves the authenticated user's gigs, as client or freelancer
func GetMyGigs(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)
	role := c.Query("role")

	query := database.DB.Preload("Client").Preload("Freelancer")

	switch role {
	case "client":
		query = query.Where("client_id = ?", userID)
	case "freelancer":
		query = query.Where("freelancer_id = ?", userID)
	default:
		query = query.Where("client_id = ? OR freelancer_id = ?", userID, userID)
	}

	var gigs []models.Gig
	if err := query.Order("created_at DESC").Find(&gigs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve gigs",
		})
	}

	return c.JSON(fiber.Map{
		"gigs":  gigs,
		"count": len(gigs),
	})
}

// GetGigByID retrieves a gig with its milestones and latest submission
func GetGigByID(c *fiber.Ctx) error {
	gigID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid gig id",
		})
	}

	var gig models.Gig
	if err := database.DB.
		Preload("Client").
		Preload("Freelancer").
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		First(&gig, "id = ?", gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Gig not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	var submission models.Submission
	hasSubmission := true
	if err := database.DB.Preload("Freelancer").
		Where("gig_id = ?", gig.ID).
		Order("submitted_at DESC").
		First(&submission).Error; err != nil {
		hasSubmission = false
	}

	resp := fiber.Map{"gig": gig}
	if hasSubmission {
		resp["submission"] = submission
	}
	return c.JSON(resp)
}

// AcceptGig assigns the authenticated freelancer to an open gig. The
// freelancer is set exactly once, at acceptance.
func AcceptGig(c *fiber.Ctx) error {
	gigID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid gig id",
		})
	}
	userID := c.Locals("user_id").(uuid.UUID)

	var freelancer models.Profile
	if err := database.DB.First(&freelancer, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	if !freelancer.IsFreelancer() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only freelancers can accept gigs",
		})
	}

	if !freelancer.HasWallet() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Connect your wallet before accepting gigs",
		})
	}

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

	if gig.ClientID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "You cannot accept your own gig",
		})
	}

	if !gig.Status.CanTransitionTo(models.GigInProgress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Cannot accept gig with status: %s", gig.Status),
		})
	}

	// Conditional write so two freelancers cannot both claim the gig
	res := database.DB.Model(&models.Gig{}).
		Where("id = ? AND status = ? AND freelancer_id IS NULL", gig.ID, models.GigOpen).
		Updates(map[string]interface{}{
			"freelancer_id": userID,
			"status":        models.GigInProgress,
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to accept gig",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Gig is no longer available",
		})
	}

	if err := notificationService.NotifyGigAccepted(gig.ClientID, freelancer.FullName, gig.Title, gig.ID); err != nil {
		fmt.Printf("Failed to notify client: %v\n", err)
	}
	publishGigEvent(gig.ID, "gig", "accepted")

	return c.JSON(fiber.Map{
		"message": "Gig accepted! Start working on it now.",
		"gig": fiber.Map{
			"id":     gig.ID,
			"status": models.GigInProgress,
		},
	})
}

// CancelGig cancels an open gig before any freelancer accepts it
func CancelGig(c *fiber.Ctx) error {
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

	if err := guard.Authorize(userID, &gig, guard.RoleClient); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the client can cancel this gig",
		})
	}

	if !gig.Status.CanTransitionTo(models.GigCancelled) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Cannot cancel gig with status: %s", gig.Status),
		})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Gig{}).
			Where("id = ? AND status = ?", gig.ID, models.GigOpen).
			Update("status", models.GigCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		// Escrow refund goes back to the client wallet
		refund := models.Transaction{
			GigID:  gig.ID,
			Type:   models.TransactionRefund,
			Amount: gig.Budget,
			Status: models.TransactionConfirmed,
		}
		return tx.Create(&refund).Error
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Gig is no longer cancellable",
		})
	}

	publishGigEvent(gig.ID, "gig", "cancelled")

	return c.JSON(fiber.Map{
		"message": "Gig cancelled and escrow refunded",
		"gig": fiber.Map{
			"id":     gig.ID,
			"status": models.GigCancelled,
		},
	})
}

// DeleteGig removes a gig and everything it owns. Allowed for the client
// regardless of payment state.
func DeleteGig(c *fiber.Ctx) error {
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

	if err := guard.Authorize(userID, &gig, guard.RoleClient); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the client can delete this gig",
		})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gig_id = ?", gig.ID).Delete(&models.Milestone{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gig_id = ?", gig.ID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gig_id = ?", gig.ID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&gig).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete gig",
		})
	}

	publishGigEvent(gig.ID, "gig", "deleted")

	return c.JSON(fiber.Map{
		"message": "Gig deleted successfully",
	})
}
