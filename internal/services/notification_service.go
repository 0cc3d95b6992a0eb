package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"GigVault/internal/database"
	"GigVault/internal/models"
)

type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// CreateNotification creates a new notification
func (s *NotificationService) CreateNotification(userID uuid.UUID, notifType models.NotificationType, title, message string, data map[string]interface{}) error {
	// Convert data to JSON string
	var dataJSON string
	if data != nil {
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}
		dataJSON = string(jsonBytes)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    dataJSON,
		IsRead:  false,
	}

	if err := database.DB.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// NotifyGigAccepted notifies the client when a freelancer accepts their gig
func (s *NotificationService) NotifyGigAccepted(clientID uuid.UUID, freelancerName, gigTitle string, gigID uuid.UUID) error {
	return s.CreateNotification(
		clientID,
		models.NotificationGigAccepted,
		"Gig Accepted",
		fmt.Sprintf("%s has accepted your gig \"%s\" and started working on it", freelancerName, gigTitle),
		map[string]interface{}{
			"gig_id":          gigID,
			"freelancer_name": freelancerName,
		},
	)
}

// NotifyWorkSubmitted notifies the client when the freelancer submits work
func (s *NotificationService) NotifyWorkSubmitted(clientID uuid.UUID, freelancerName, gigTitle string, gigID uuid.UUID) error {
	return s.CreateNotification(
		clientID,
		models.NotificationWorkSubmitted,
		"Work Submitted",
		fmt.Sprintf("%s submitted work for \"%s\". Review it to release payment.", freelancerName, gigTitle),
		map[string]interface{}{
			"gig_id":          gigID,
			"freelancer_name": freelancerName,
		},
	)
}

// NotifyWorkRejected notifies the freelancer when the client rejects a submission
func (s *NotificationService) NotifyWorkRejected(freelancerID uuid.UUID, gigTitle, reason string, gigID uuid.UUID) error {
	return s.CreateNotification(
		freelancerID,
		models.NotificationWorkRejected,
		"Submission Rejected",
		fmt.Sprintf("Your submission for \"%s\" was rejected. Reason: %s. You can resubmit.", gigTitle, reason),
		map[string]interface{}{
			"gig_id": gigID,
			"reason": reason,
		},
	)
}

// NotifyMilestoneSubmitted notifies the client when a milestone is submitted
func (s *NotificationService) NotifyMilestoneSubmitted(clientID uuid.UUID, milestoneTitle, gigTitle string, gigID uuid.UUID) error {
	return s.CreateNotification(
		clientID,
		models.NotificationMilestoneSubmitted,
		"Milestone Submitted",
		fmt.Sprintf("Milestone \"%s\" of \"%s\" was submitted for your approval", milestoneTitle, gigTitle),
		map[string]interface{}{
			"gig_id":          gigID,
			"milestone_title": milestoneTitle,
		},
	)
}

// NotifyPaymentReleased notifies the freelancer when funds are released
func (s *NotificationService) NotifyPaymentReleased(freelancerID uuid.UUID, gigTitle string, amount decimal.Decimal, gigID uuid.UUID) error {
	return s.CreateNotification(
		freelancerID,
		models.NotificationPaymentReleased,
		"Payment Released",
		fmt.Sprintf("%s USDC has been released to your wallet for \"%s\"", amount.StringFixed(2), gigTitle),
		map[string]interface{}{
			"gig_id": gigID,
			"amount": amount.StringFixed(2),
		},
	)
}
