package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentChallenge is an append-only audit row written whenever a 402
// challenge is issued. It carries no gig or milestone state; settlement uses
// the newest row per resource to reject proofs older than the challenge
// timeout.
type PaymentChallenge struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"resource_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	TimeoutSeconds int             `gorm:"not null" json:"timeout_seconds"`
	IssuedAt       time.Time       `gorm:"not null" json:"issued_at"`
}

func (PaymentChallenge) TableName() string {
	return "payment_challenges"
}

func (pc *PaymentChallenge) BeforeCreate(tx *gorm.DB) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	if pc.IssuedAt.IsZero() {
		pc.IssuedAt = time.Now()
	}
	return nil
}

// Expired reports whether a proof presented at now is too old to settle
// against this challenge.
func (pc *PaymentChallenge) Expired(now time.Time) bool {
	return now.Sub(pc.IssuedAt) > time.Duration(pc.TimeoutSeconds)*time.Second
}
