package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string
type TransactionStatus string

const (
	TransactionEscrow           TransactionType = "escrow"
	TransactionRelease          TransactionType = "release"
	TransactionMilestoneRelease TransactionType = "milestone_release"
	TransactionRefund           TransactionType = "refund"
)

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is an append-only audit record of a fund movement. Rows are
// never updated or deleted after creation.
type Transaction struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	GigID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"gig_id"`
	Type        TransactionType   `gorm:"type:varchar(20);not null" json:"transaction_type"`
	Amount      decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"amount"`
	TxSignature *string           `gorm:"type:varchar(128)" json:"tx_signature"`
	Status      TransactionStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
