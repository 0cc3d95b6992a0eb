package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneSubmitted MilestoneStatus = "submitted"
	MilestoneApproved  MilestoneStatus = "approved"
	MilestonePaid      MilestoneStatus = "paid"
)

// Milestone is one ordered installment of a gig's budget. Milestones are
// created in bulk at gig creation and processed strictly in sequence order.
type Milestone struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GigID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"gig_id"`
	Title           string          `gorm:"not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Percentage      int             `gorm:"not null" json:"percentage"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	SequenceOrder   int             `gorm:"not null" json:"sequence_order"`
	Status          MilestoneStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	SubmissionNotes *string         `gorm:"type:text" json:"submission_notes"`
	SubmittedAt     *time.Time      `json:"submitted_at"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	PaidAt          *time.Time      `json:"paid_at"`
	TxSignature     *string         `gorm:"type:varchar(128)" json:"tx_signature"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Gig Gig `gorm:"foreignKey:GigID" json:"gig,omitempty"`
}

func (Milestone) TableName() string {
	return "milestones"
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SplitBudget divides a gig budget into per-milestone amounts by percentage.
// The last slot absorbs the rounding remainder so the amounts always sum to
// exactly the budget.
func SplitBudget(budget decimal.Decimal, percentages []int) []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(percentages))
	remaining := budget
	for i, pct := range percentages {
		if i == len(percentages)-1 {
			amounts[i] = remaining
			break
		}
		amount := budget.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(2)
		amounts[i] = amount
		remaining = remaining.Sub(amount)
	}
	return amounts
}
