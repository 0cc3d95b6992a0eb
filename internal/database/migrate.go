package database

import (
    "fmt"
    "log"

    "GigVault/internal/models"
)

func Migrate() error {
    log.Println("Running database migrations...")

    err := DB.AutoMigrate(
        &models.Profile{},
        &models.Gig{},
        &models.Milestone{},
        &models.Submission{},
        &models.Transaction{},
        &models.Notification{},
        &models.PaymentChallenge{},
    )

    if err != nil {
        log.Printf("Error migrating database: %v", err)
        return fmt.Errorf("failed to migrate database: %w", err)
    }

    log.Println("Database migration completed successfully")
    return nil
}
