package handlers

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"GigVault/internal/database"
	"GigVault/internal/services"
)

var validate = validator.New()

var (
	notificationService *services.NotificationService
	emailService        *services.EmailService
	cloudinaryService   *services.CloudinaryService
	eventBus            services.EventBus
	releaseService      *services.ReleaseService
)

// InitNotificationService initializes in-app and email notifications
func InitNotificationService() {
	notificationService = services.NewNotificationService()
	emailService = services.NewEmailService()
}

// InitCloudinaryService initializes deliverable uploads
func InitCloudinaryService() error {
	var err error
	cloudinaryService, err = services.NewCloudinaryService()
	return err
}

// InitEventBus wires the gig change event bus. Redis when REDIS_URL is set,
// in-process otherwise.
func InitEventBus() {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		log.Println("⚠️  No REDIS_URL set, using in-process event bus")
		eventBus = services.NewMemoryBus()
		return
	}

	bus, err := services.NewRedisBus(url)
	if err != nil {
		log.Printf("⚠️  Failed to connect to Redis (%v), using in-process event bus", err)
		eventBus = services.NewMemoryBus()
		return
	}
	eventBus = bus
}

// InitReleaseService wires the release orchestrator to the facilitator
func InitReleaseService() {
	releaseService = services.NewReleaseService(database.DB, services.NewFacilitatorService())
}

func publishGigEvent(gigID uuid.UUID, kind, action string) {
	if eventBus == nil {
		return
	}
	event := services.GigEvent{
		GigID:     gigID,
		Kind:      kind,
		Action:    action,
		Timestamp: time.Now(),
	}
	if err := eventBus.Publish(context.Background(), event); err != nil {
		log.Printf("Failed to publish gig event: %v", err)
	}
}
