package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"GigVault/internal/database"
	"GigVault/internal/models"
)

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
}

type ConnectWalletRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,min=32,max=44"`
}

// GetProfile retrieves the authenticated user's profile
func GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	var profile models.Profile
	if err := database.DB.First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Profile not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":             profile.ID,
			"full_name":      profile.FullName,
			"email":          profile.Email,
			"user_type":      profile.UserType,
			"wallet_address": profile.WalletAddress,
			"created_at":     profile.CreatedAt,
			"updated_at":     profile.UpdatedAt,
		},
	})
}

// UpdateProfile updates profile information
func UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	req := new(UpdateProfileRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var profile models.Profile
	if err := database.DB.First(&profile, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	if req.FullName != "" {
		profile.FullName = req.FullName
	}

	if err := database.DB.Save(&profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update profile",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user": fiber.Map{
			"id":        profile.ID,
			"full_name": profile.FullName,
		},
	})
}

// ConnectWallet links a payment wallet address to the profile. Required
// before a freelancer can accept gigs or receive a release.
func ConnectWallet(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	req := new(ConnectWalletRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid wallet address",
		})
	}

	var profile models.Profile
	if err := database.DB.First(&profile, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	profile.WalletAddress = &req.WalletAddress
	if err := database.DB.Save(&profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to connect wallet",
		})
	}

	return c.JSON(fiber.Map{
		"message":        "Wallet connected successfully",
		"wallet_address": profile.WalletAddress,
	})
}
