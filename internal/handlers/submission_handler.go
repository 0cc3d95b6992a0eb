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

type SubmitWorkRequest struct {
	DeliverableURL string `json:"deliverable_url" validate:"required,url"`
	Notes          string `json:"notes"`
}

type RejectSubmissionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// SubmitWork files the freelancer's deliverable for a non-milestone gig and
// moves the gig to submitted. An optional multipart "attachment" file is
// stored alongside the deliverable URL.
func SubmitWork(c *fiber.Ctx) error {
	gigID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid gig id",
		})
	}
	userID := c.Locals("user_id").(uuid.UUID)

	req := new(SubmitWorkRequest)
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

	if err := guard.Authorize(userID, &gig, guard.RoleFreelancer); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the assigned freelancer can submit work",
		})
	}

	if gig.HasMilestones {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "This gig uses milestones, submit them individually",
		})
	}

	if !gig.Status.CanTransitionTo(models.GigSubmitted) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Cannot submit work for gig with status: %s", gig.Status),
		})
	}

	// One live submission per gig: a pending one must be reviewed first
	var pending int64
	if err := database.DB.Model(&models.Submission{}).
		Where("gig_id = ? AND status = ?", gig.ID, models.SubmissionPending).
		Count(&pending).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}
	if pending > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A submission is already awaiting review",
		})
	}

	submission := models.Submission{
		GigID:          gig.ID,
		FreelancerID:   userID,
		DeliverableURL: req.DeliverableURL,
		Notes:          req.Notes,
		Status:         models.SubmissionPending,
	}

	// Optional file attachment
	if file, err := c.FormFile("attachment"); err == nil && cloudinaryService != nil {
		upload, err := cloudinaryService.UploadDeliverable(file, gig.ID.String())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to upload attachment",
			})
		}
		submission.AttachmentURL = upload.SecureURL
		submission.AttachmentPublicID = upload.PublicID
		submission.AttachmentName = file.Filename
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Gig{}).
			Where("id = ? AND status = ?", gig.ID, models.GigInProgress).
			Update("status", models.GigSubmitted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to submit work",
		})
	}

	var freelancer models.Profile
	if err := database.DB.First(&freelancer, "id = ?", userID).Error; err == nil {
		if err := notificationService.NotifyWorkSubmitted(gig.ClientID, freelancer.FullName, gig.Title, gig.ID); err != nil {
			fmt.Printf("Failed to notify client: %v\n", err)
		}
		var client models.Profile
		if err := database.DB.First(&client, "id = ?", gig.ClientID).Error; err == nil {
			if err := emailService.SendWorkSubmittedEmail(client.Email, freelancer.FullName, gig.Title); err != nil {
				fmt.Printf("Failed to email client: %v\n", err)
			}
		}
	}
	publishGigEvent(gig.ID, "submission", "created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Work submitted. Waiting for client review.",
		"submission": submission,
	})
}

// RejectSubmission sends the gig back to in_progress so the freelancer can
// resubmit. Approval goes through the release endpoint instead.
func RejectSubmission(c *fiber.Ctx) error {
	gigID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid gig id",
		})
	}
	userID := c.Locals("user_id").(uuid.UUID)

	req := new(RejectSubmissionRequest)
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
			"error": "Only the client can review submissions",
		})
	}

	if !gig.Status.CanTransitionTo(models.GigInProgress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Cannot reject work for gig with status: %s", gig.Status),
		})
	}

	var submission models.Submission
	if err := database.DB.
		Where("gig_id = ? AND status = ?", gig.ID, models.SubmissionPending).
		Order("submitted_at DESC").
		First(&submission).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No submission awaiting review",
		})
	}

	now := time.Now()
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submission.ID, models.SubmissionPending).
			Updates(map[string]interface{}{
				"status":           models.SubmissionRejected,
				"reviewed_at":      now,
				"rejection_reason": req.Reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&models.Gig{}).
			Where("id = ? AND status = ?", gig.ID, models.GigSubmitted).
			Update("status", models.GigInProgress).Error
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to reject submission",
		})
	}

	if err := notificationService.NotifyWorkRejected(submission.FreelancerID, gig.Title, req.Reason, gig.ID); err != nil {
		fmt.Printf("Failed to notify freelancer: %v\n", err)
	}
	publishGigEvent(gig.ID, "submission", "rejected")

	return c.JSON(fiber.Map{
		"message": "Submission rejected. Freelancer can now resubmit.",
		"submission": fiber.Map{
			"id":     submission.ID,
			"status": models.SubmissionRejected,
			"reason": req.Reason,
		},
	})
}
