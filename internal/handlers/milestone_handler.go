package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"GigVault/internal/database"
	"GigVault/internal/guard"
	"GigVault/internal/models"
)

type SubmitMilestoneRequest struct {
	Notes string `json:"notes"`
}

// ListMilestones returns a gig's milestones in sequence order
func ListMilestones(c *fiber.Ctx) error {
	gigID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid gig id",
		})
	}

	var milestones []models.Milestone
	if err := database.DB.
		Where("gig_id = ?", gigID).
		Order("sequence_order ASC").
		Find(&milestones).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve milestones",
		})
	}

	return c.JSON(fiber.Map{
		"milestones": milestones,
		"count":      len(milestones),
	})
}

// SubmitMilestone marks a milestone as submitted for client approval.
// Milestones are strict-sequence: milestone k is submittable only when every
// earlier milestone is paid.
func SubmitMilestone(c *fiber.Ctx) error {
	milestoneID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid milestone id",
		})
	}
	userID := c.Locals("user_id").(uuid.UUID)

	req := new(SubmitMilestoneRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var milestone models.Milestone
	if err := database.DB.Preload("Gig").First(&milestone, "id = ?", milestoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Milestone not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	if err := guard.Authorize(userID, &milestone.Gig, guard.RoleFreelancer); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the assigned freelancer can submit milestones",
		})
	}

	if !milestone.Status.CanTransitionTo(models.MilestoneSubmitted) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Cannot submit milestone with status: %s", milestone.Status),
		})
	}

	// Sequence gate: every earlier milestone must already be paid
	var unpaidBefore int64
	if err := database.DB.Model(&models.Milestone{}).
		Where("gig_id = ? AND sequence_order < ? AND status <> ?",
			milestone.GigID, milestone.SequenceOrder, models.MilestonePaid).
		Count(&unpaidBefore).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}
	if unpaidBefore > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Previous milestone must be paid before submitting this one",
		})
	}

	now := time.Now()
	res := database.DB.Model(&models.Milestone{}).
		Where("id = ? AND status = ?", milestone.ID, models.MilestonePending).
		Updates(map[string]interface{}{
			"status":           models.MilestoneSubmitted,
			"submission_notes": req.Notes,
			"submitted_at":     now,
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to submit milestone",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Milestone was already submitted",
		})
	}

	if err := notificationService.NotifyMilestoneSubmitted(milestone.Gig.ClientID, milestone.Title, milestone.Gig.Title, milestone.GigID); err != nil {
		fmt.Printf("Failed to notify client: %v\n", err)
	}
	publishGigEvent(milestone.GigID, "milestone", "submitted")

	return c.JSON(fiber.Map{
		"message": "Milestone submitted for approval",
		"milestone": fiber.Map{
			"id":           milestone.ID,
			"status":       models.MilestoneSubmitted,
			"submitted_at": now,
		},
	})
}
