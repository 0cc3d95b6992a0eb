package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"GigVault/internal/apperrors"
	"GigVault/internal/database"
	"GigVault/internal/models"
	"GigVault/internal/services"
	"GigVault/internal/x402"
)

type ReleaseRequest struct {
	MilestoneID *uuid.UUID `json:"milestone_id"`
	GigID       *uuid.UUID `json:"gig_id"`
	PaymentType string     `json:"payment_type" validate:"required,oneof=milestone full"`
}

// ReleaseFunds drives the payment-release flow. Without an X-Payment header
// it answers 402 with a payment challenge; with one it settles the proof and
// advances milestone/gig state atomically.
func ReleaseFunds(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	req := new(ReleaseRequest)
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

	var proof *x402.PaymentProof
	if header := c.Get("X-Payment"); header != "" {
		decoded, err := x402.DecodeProof(header)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid payment proof",
			})
		}
		proof = decoded
	}

	result, err := releaseService.Release(userID, services.ReleaseRequest{
		MilestoneID: req.MilestoneID,
		GigID:       req.GigID,
		PaymentType: services.PaymentType(req.PaymentType),
		Proof:       proof,
	})
	if err != nil {
		return releaseError(c, err)
	}

	if result.Challenge != nil {
		return c.Status(fiber.StatusPaymentRequired).JSON(result.Challenge)
	}

	receipt := x402.Receipt{
		Success:     true,
		Transaction: result.TxSignature,
		Network:     result.Network,
		Payer:       result.Payer,
	}
	c.Set("X-Payment-Response", x402.EncodeReceipt(receipt))

	notifyReleased(result)
	publishGigEvent(result.GigID, "transaction", "release")

	return c.JSON(fiber.Map{
		"success": true,
		"message": result.Message,
		"transaction_info": fiber.Map{
			"escrow_address":    result.EscrowAddress,
			"amount_released":   result.AmountReleased,
			"freelancer_wallet": result.FreelancerWallet,
			"tx_signature":      result.TxSignature,
			"payer":             result.Payer,
			"note":              "Payment processed via x402 protocol. Funds sent to freelancer wallet.",
		},
	})
}

// releaseError maps the orchestrator's error taxonomy to HTTP statuses:
// 404 for missing records, 400 for everything the caller can correct.
func releaseError(c *fiber.Ctx, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if code := apperrors.CodeOf(err); code != "" {
		if code == apperrors.CodeSettlementFailed {
			c.Set("X-Payment-Response", x402.EncodeReceipt(x402.Receipt{
				Success:     false,
				ErrorReason: err.Error(),
			}))
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to process release",
	})
}

func notifyReleased(result *services.ReleaseResult) {
	if err := notificationService.NotifyPaymentReleased(result.FreelancerID, result.GigTitle, result.AmountReleased, result.GigID); err != nil {
		fmt.Printf("Failed to notify freelancer: %v\n", err)
	}

	var freelancer models.Profile
	if err := database.DB.First(&freelancer, "id = ?", result.FreelancerID).Error; err != nil {
		return
	}
	if err := emailService.SendPaymentReleasedEmail(freelancer.Email, result.GigTitle, result.AmountReleased.StringFixed(2), result.FreelancerWallet); err != nil {
		fmt.Printf("Failed to email freelancer: %v\n", err)
	}
}
